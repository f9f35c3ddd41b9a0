package links

import "testing"

func TestUAClassifierClassify(t *testing.T) {
	c := NewUAClassifier()

	const (
		chromeMac  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		safariiOS  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
		firefoxWin = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0"
		googlebot  = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	)

	tests := []struct {
		name        string
		raw         string
		wantBrowser string
		wantOS      string
		wantDevice  string
	}{
		{"chrome on mac", chromeMac, "Chrome", "macOS", "Desktop"},
		{"safari on iphone", safariiOS, "Safari", "iOS", "iPhone"},
		{"firefox on windows", firefoxWin, "Firefox", "Windows", "Desktop"},
		{"googlebot", googlebot, "Googlebot", "Unknown", "Bot"},
		{"empty", "", "Unknown", "Unknown", "Unknown"},
		{"whitespace only", "   ", "Unknown", "Unknown", "Unknown"},
		{"garbage", "definitely-not-a-user-agent", "Unknown", "Unknown", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.raw)
			if got.Browser != tt.wantBrowser {
				t.Errorf("Browser = %q, want %q", got.Browser, tt.wantBrowser)
			}
			if got.OS != tt.wantOS {
				t.Errorf("OS = %q, want %q", got.OS, tt.wantOS)
			}
			if got.Device != tt.wantDevice {
				t.Errorf("Device = %q, want %q", got.Device, tt.wantDevice)
			}
		})
	}
}
