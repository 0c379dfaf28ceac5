package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUserAgent(t *testing.T) {
	testCases := []struct {
		name string
		ua   string
		want Fingerprint
	}{
		{
			name: "chrome on windows desktop",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			want: Fingerprint{DeviceType: "Desktop", Browser: "Chrome", OS: "Windows"},
		},
		{
			name: "edge wins over chrome token",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 Edg/120.0",
			want: Fingerprint{DeviceType: "Desktop", Browser: "Microsoft Edge", OS: "Windows"},
		},
		{
			name: "safari on iphone",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Version/17.0 Mobile/15E148 Safari/604.1",
			want: Fingerprint{DeviceType: "Mobile", Browser: "Safari", OS: "iOS"},
		},
		{
			name: "ipad counts as tablet",
			ua:   "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 Version/16.0 Safari/604.1",
			want: Fingerprint{DeviceType: "Tablet", Browser: "Safari", OS: "iOS"},
		},
		{
			name: "firefox on android phone",
			ua:   "Mozilla/5.0 (Android 14; Mobile; rv:121.0) Gecko/121.0 Firefox/121.0",
			want: Fingerprint{DeviceType: "Mobile", Browser: "Firefox", OS: "Android"},
		},
		{
			name: "firefox on linux",
			ua:   "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			want: Fingerprint{DeviceType: "Desktop", Browser: "Firefox", OS: "Linux"},
		},
		{
			name: "old internet explorer",
			ua:   "Mozilla/5.0 (Windows NT 6.1; Trident/7.0; rv:11.0) like Gecko",
			want: Fingerprint{DeviceType: "Desktop", Browser: "Internet Explorer", OS: "Windows"},
		},
		{
			name: "empty string",
			ua:   "",
			want: Fingerprint{DeviceType: "Desktop", Browser: "Unknown", OS: "Unknown"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseUserAgent(tc.ua))
		})
	}
}
