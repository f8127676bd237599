package storage

import "testing"

func TestParseURL(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		bucket      string
		key         string
		expectError bool
	}{
		{
			name:   "bucket and key",
			url:    "s3://my-bucket/alerts.pb",
			bucket: "my-bucket",
			key:    "alerts.pb",
		},
		{
			name:   "nested key",
			url:    "s3://my-bucket/feeds/v2/alerts.json",
			bucket: "my-bucket",
			key:    "feeds/v2/alerts.json",
		},
		{
			name:        "not an s3 URL",
			url:         "https://example.com/alerts.pb",
			expectError: true,
		},
		{
			name:        "missing key",
			url:         "s3://my-bucket",
			expectError: true,
		},
		{
			name:        "empty key",
			url:         "s3://my-bucket/",
			expectError: true,
		},
		{
			name:        "empty",
			url:         "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseURL(tt.url)
			if tt.expectError {
				if err == nil {
					t.Errorf("ParseURL(%q) should have failed", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURL(%q) error: %v", tt.url, err)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Errorf("ParseURL(%q) = (%q, %q), want (%q, %q)", tt.url, bucket, key, tt.bucket, tt.key)
			}
		})
	}
}
