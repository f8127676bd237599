package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/transitops/alerts-translator/internal/config"
	"github.com/transitops/alerts-translator/internal/domain"
	"github.com/transitops/alerts-translator/internal/feed"
)

// memStorage is an in-memory object store.
type memStorage struct {
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Fetch(ctx context.Context, url string) ([]byte, bool, error) {
	data, ok := m.objects[url]
	return data, ok, nil
}

func (m *memStorage) Upload(ctx context.Context, url string, body []byte, contentType string) error {
	m.objects[url] = body
	return nil
}

type echoTranslator struct {
	calls int64
}

func (e *echoTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	atomic.AddInt64(&e.calls, 1)
	return fmt.Sprintf("[%s] %s", targetLang, text), nil
}

func testConfig(sourceURL string, destURLs ...string) config.Config {
	return config.Config{
		SourceURL:        sourceURL,
		DestinationURLs:  destURLs,
		TargetLanguages:  []string{"es"},
		ConcurrencyLimit: 4,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleFeedBytes(t *testing.T, timestamp uint64, format feed.Format) []byte {
	t.Helper()
	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(timestamp),
		},
		Entity: []*gtfs.FeedEntity{
			{
				Id: proto.String("a1"),
				Alert: &gtfs.Alert{
					HeaderText: &gtfs.TranslatedString{
						Translation: []*gtfs.TranslatedString_Translation{
							{Text: proto.String("Delay expected"), Language: proto.String("en")},
						},
					},
				},
			},
		},
	}
	data, err := feed.Encode(msg, format)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	return data
}

func TestRunValidation(t *testing.T) {
	tests := []struct {
		name      string
		sourceURL string
		destURLs  []string
	}{
		{
			name:      "empty source",
			sourceURL: "",
			destURLs:  []string{"s3://dest/alerts.pb"},
		},
		{
			name:      "no destinations",
			sourceURL: "s3://src/alerts.pb",
			destURLs:  nil,
		},
		{
			name:      "source equals destination",
			sourceURL: "s3://same/alerts.pb",
			destURLs:  []string{"s3://other/alerts.pb", "s3://same/alerts.pb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(testConfig(tt.sourceURL, tt.destURLs...), newMemStorage(), &echoTranslator{}, discardLogger())
			if _, err := h.Run(context.Background(), tt.sourceURL); err == nil {
				t.Error("Run() should have failed validation")
			}
		})
	}
}

func TestRunFirstRunUploadsEverywhere(t *testing.T) {
	store := newMemStorage()
	store.objects["s3://src/alerts.pb"] = sampleFeedBytes(t, 100, feed.FormatProtobuf)

	cfg := testConfig("s3://src/alerts.pb", "s3://dest/alerts.pb", "s3://dest/alerts.json")
	tr := &echoTranslator{}
	h := New(cfg, store, tr, discardLogger())

	result, err := h.Run(context.Background(), cfg.SourceURL)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if !result.Uploaded {
		t.Error("first run should upload")
	}
	if result.Metrics.StringsDispatched != 1 {
		t.Errorf("StringsDispatched = %d, want 1", result.Metrics.StringsDispatched)
	}
	if _, ok := store.objects["s3://dest/alerts.pb"]; !ok {
		t.Error("protobuf destination not written")
	}
	if _, ok := store.objects["s3://dest/alerts.json"]; !ok {
		t.Error("JSON destination not written")
	}

	// Destination formats follow the key extension.
	jsonOut := store.objects["s3://dest/alerts.json"]
	if _, err := feed.Decode(jsonOut, feed.FormatJSON); err != nil {
		t.Errorf("JSON destination is not valid JSON: %v", err)
	}
	pbOut := store.objects["s3://dest/alerts.pb"]
	if _, err := feed.Decode(pbOut, feed.FormatProtobuf); err != nil {
		t.Errorf("protobuf destination is not valid protobuf: %v", err)
	}
}

func TestRunSecondRunSkipsUpload(t *testing.T) {
	store := newMemStorage()
	store.objects["s3://src/alerts.pb"] = sampleFeedBytes(t, 100, feed.FormatProtobuf)

	cfg := testConfig("s3://src/alerts.pb", "s3://dest/alerts.pb", "s3://dest/alerts.json")
	h := New(cfg, store, &echoTranslator{}, discardLogger())

	if _, err := h.Run(context.Background(), cfg.SourceURL); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	tr := &echoTranslator{}
	h = New(cfg, store, tr, discardLogger())
	result, err := h.Run(context.Background(), cfg.SourceURL)
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}

	if tr.calls != 0 {
		t.Errorf("second run dispatched %d remote calls, want 0", tr.calls)
	}
	if result.Uploaded {
		t.Error("second run on unchanged input should skip upload")
	}
}

func TestRunMissingSource(t *testing.T) {
	cfg := testConfig("s3://src/alerts.pb", "s3://dest/alerts.pb")
	h := New(cfg, newMemStorage(), &echoTranslator{}, discardLogger())

	if _, err := h.Run(context.Background(), cfg.SourceURL); err == nil {
		t.Error("Run() should fail when the source feed is absent")
	}
}

func TestRunMalformedSource(t *testing.T) {
	store := newMemStorage()
	store.objects["s3://src/alerts.json"] = []byte("{broken")

	cfg := testConfig("s3://src/alerts.json", "s3://dest/alerts.pb")
	h := New(cfg, store, &echoTranslator{}, discardLogger())

	if _, err := h.Run(context.Background(), cfg.SourceURL); err == nil {
		t.Error("Run() should fail on a malformed source feed")
	}
	if _, ok := store.objects["s3://dest/alerts.pb"]; ok {
		t.Error("nothing should be written after a decode failure")
	}
}

func TestShouldUpload(t *testing.T) {
	withTimestamp := func(ts uint64) *gtfs.FeedMessage {
		return &gtfs.FeedMessage{
			Header: &gtfs.FeedHeader{
				GtfsRealtimeVersion: proto.String("2.0"),
				Timestamp:           proto.Uint64(ts),
			},
		}
	}

	tests := []struct {
		name     string
		oldFeed  *gtfs.FeedMessage
		newFeed  *gtfs.FeedMessage
		metrics  domain.Metrics
		expected bool
	}{
		{
			name:     "no previous output",
			oldFeed:  nil,
			newFeed:  withTimestamp(100),
			expected: true,
		},
		{
			name:     "timestamp changed",
			oldFeed:  withTimestamp(90),
			newFeed:  withTimestamp(100),
			expected: true,
		},
		{
			name:     "unchanged but strings dispatched",
			oldFeed:  withTimestamp(100),
			newFeed:  withTimestamp(100),
			metrics:  domain.Metrics{StringsDispatched: 3},
			expected: true,
		},
		{
			name:     "unchanged and nothing dispatched",
			oldFeed:  withTimestamp(100),
			newFeed:  withTimestamp(100),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldUpload(tt.oldFeed, tt.newFeed, tt.metrics); got != tt.expected {
				t.Errorf("ShouldUpload() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReferenceDestinationPrefersJSON(t *testing.T) {
	tests := []struct {
		name     string
		destURLs []string
		expected string
	}{
		{
			name:     "json among destinations",
			destURLs: []string{"s3://d/alerts.pb", "s3://d/alerts.json"},
			expected: "s3://d/alerts.json",
		},
		{
			name:     "no json destination",
			destURLs: []string{"s3://d/alerts.pb", "s3://d/alerts2.pb"},
			expected: "s3://d/alerts.pb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := referenceDestination(tt.destURLs); got != tt.expected {
				t.Errorf("referenceDestination() = %q, want %q", got, tt.expected)
			}
		})
	}
}
