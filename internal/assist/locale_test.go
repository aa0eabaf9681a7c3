package assist

import "testing"

func TestSupportedLocale(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"en-GB", "en-GB"},
		{"ja-JP", "ja-JP"},
		{"xx-YY", DefaultLocale},
		{"", DefaultLocale},
		{"en-gb", DefaultLocale},
	}

	for _, tt := range tests {
		if got := SupportedLocale(tt.locale); got != tt.want {
			t.Errorf("SupportedLocale(%q) = %q, want %q", tt.locale, got, tt.want)
		}
	}
}

func TestSupportedLocalesContainsDefault(t *testing.T) {
	for _, l := range SupportedLocales() {
		if l == DefaultLocale {
			return
		}
	}
	t.Errorf("SupportedLocales() does not contain %s", DefaultLocale)
}
