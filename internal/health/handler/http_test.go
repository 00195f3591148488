package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) PingContext(ctx context.Context) error { return f.err }

func TestHealthz(t *testing.T) {
	cases := []struct {
		name       string
		db         Pinger
		wantStatus int
	}{
		{"db up", &fakePinger{}, http.StatusOK},
		{"db down", &fakePinger{err: errors.New("refused")}, http.StatusServiceUnavailable},
		{"no db configured", nil, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(tc.db)
			rec := httptest.NewRecorder()
			h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}
