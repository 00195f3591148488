// Package useragent classifies User-Agent strings into coarse device types
// for the per-device session list.
package useragent

import "strings"

// Device types reported to clients on the session list.
const (
	DeviceDesktop = "Desktop"
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
)

// tablet keywords are checked before mobile ones: tablet user agents
// frequently also contain "mobile".
var tabletKeywords = []string{"ipad", "tablet", "kindle", "silk", "playbook"}

var mobileKeywords = []string{"mobile", "iphone", "ipod", "android", "blackberry", "windows phone", "opera mini"}

// DeviceType returns the device type for the given User-Agent string using
// keyword classification. Unknown or empty user agents default to Desktop.
func DeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return DeviceDesktop
	}
	for _, kw := range tabletKeywords {
		if strings.Contains(ua, kw) {
			return DeviceTablet
		}
	}
	for _, kw := range mobileKeywords {
		if strings.Contains(ua, kw) {
			return DeviceMobile
		}
	}
	return DeviceDesktop
}
