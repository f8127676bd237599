package translation

import "testing"

func TestTagURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		lang     string
		expected string
	}{
		{
			name:     "no query string",
			url:      "https://t.example/a",
			lang:     "es",
			expected: "https://t.example/a?locale=es",
		},
		{
			name:     "existing query string",
			url:      "https://t.example/a?x=1",
			lang:     "fr",
			expected: "https://t.example/a?x=1&locale=fr",
		},
		{
			name:     "locale already present",
			url:      "https://t.example/a?locale=de",
			lang:     "fr",
			expected: "https://t.example/a?locale=de",
		},
		{
			name:     "locale present among other params",
			url:      "https://t.example/a?x=1&locale=de",
			lang:     "es",
			expected: "https://t.example/a?x=1&locale=de",
		},
		{
			name:     "locale key match is case-sensitive",
			url:      "https://t.example/a?Locale=de",
			lang:     "es",
			expected: "https://t.example/a?Locale=de&locale=es",
		},
		{
			name:     "language code is escaped",
			url:      "https://t.example/a",
			lang:     "es 419",
			expected: "https://t.example/a?locale=es+419",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TagURL(tt.url, tt.lang); got != tt.expected {
				t.Errorf("TagURL(%q, %q) = %q, want %q", tt.url, tt.lang, got, tt.expected)
			}
		})
	}
}
