package security

import "testing"

func TestParsePrivateKey_Inline(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if signer == nil {
		t.Fatal("signer should not be nil")
	}
}

func TestParsePublicKey_Inline(t *testing.T) {
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if pub == nil {
		t.Fatal("public key should not be nil")
	}
}

func TestParseKeys_Invalid(t *testing.T) {
	if _, err := ParsePrivateKey(""); err == nil {
		t.Error("ParsePrivateKey with empty input should fail")
	}
	if _, err := ParsePrivateKey("not pem at all"); err == nil {
		t.Error("ParsePrivateKey with garbage should fail")
	}
	if _, err := ParsePublicKey("-----BEGIN JUNK-----\nabc\n-----END JUNK-----"); err == nil {
		t.Error("ParsePublicKey with unknown block type should fail")
	}
}
