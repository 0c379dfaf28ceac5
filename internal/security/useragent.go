package security

import "strings"

// Fingerprint is the coarse device classification stored on a session.
type Fingerprint struct {
	DeviceType string
	Browser    string
	OS         string
}

// ParseUserAgent classifies a User-Agent string by substring. Deliberately
// coarse: sessions only need enough detail for an admin to spot an
// unfamiliar device, not full UA intelligence.
func ParseUserAgent(ua string) Fingerprint {
	s := strings.ToLower(ua)

	fp := Fingerprint{DeviceType: "Desktop", Browser: "Unknown", OS: "Unknown"}

	switch {
	case strings.Contains(s, "tablet") || strings.Contains(s, "ipad"):
		fp.DeviceType = "Tablet"
	case strings.Contains(s, "mobile") || strings.Contains(s, "android"):
		fp.DeviceType = "Mobile"
	}

	switch {
	case strings.Contains(s, "edg"):
		fp.Browser = "Microsoft Edge"
	case strings.Contains(s, "chrome"):
		fp.Browser = "Chrome"
	case strings.Contains(s, "firefox"):
		fp.Browser = "Firefox"
	case strings.Contains(s, "safari"):
		fp.Browser = "Safari"
	case strings.Contains(s, "opera") || strings.Contains(s, "opr"):
		fp.Browser = "Opera"
	case strings.Contains(s, "msie") || strings.Contains(s, "trident"):
		fp.Browser = "Internet Explorer"
	}

	switch {
	case strings.Contains(s, "windows"):
		fp.OS = "Windows"
	case strings.Contains(s, "mac os") || strings.Contains(s, "macos"):
		fp.OS = "macOS"
	case strings.Contains(s, "android"):
		fp.OS = "Android"
	case strings.Contains(s, "iphone") || strings.Contains(s, "ipad") || strings.Contains(s, "ios"):
		fp.OS = "iOS"
	case strings.Contains(s, "linux"):
		fp.OS = "Linux"
	}

	return fp
}
