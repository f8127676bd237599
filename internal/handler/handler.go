// Package handler provides the Lambda handler for the alerts translator.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/transitops/alerts-translator/internal/config"
	"github.com/transitops/alerts-translator/internal/dispatch"
	"github.com/transitops/alerts-translator/internal/domain"
	"github.com/transitops/alerts-translator/internal/feed"
	"github.com/transitops/alerts-translator/internal/processor"
)

// Storage is the feed object store. Fetch reports found == false for a
// missing object (a first run has no previous output to reuse).
type Storage interface {
	Fetch(ctx context.Context, url string) (data []byte, found bool, err error)
	Upload(ctx context.Context, url string, body []byte, contentType string) error
}

// Handler runs one feed translation end to end: fetch, diff, dispatch,
// merge, upload.
type Handler struct {
	cfg        config.Config
	storage    Storage
	translator dispatch.Translator
	logger     *slog.Logger
}

// New wires a handler from its collaborators.
func New(cfg config.Config, storage Storage, translator dispatch.Translator, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:        cfg,
		storage:    storage,
		translator: translator,
		logger:     logger,
	}
}

// Run translates the feed at sourceURL and uploads the result to every
// configured destination. It either fully succeeds or fails without
// writing anything.
func (h *Handler) Run(ctx context.Context, sourceURL string) (domain.RunResult, error) {
	var result domain.RunResult

	if err := validateURLs(sourceURL, h.cfg.DestinationURLs); err != nil {
		return result, err
	}

	sourceData, found, err := h.storage.Fetch(ctx, sourceURL)
	if err != nil {
		return result, err
	}
	if !found {
		return result, fmt.Errorf("source feed not found: %s", sourceURL)
	}

	sourceFormat := feed.FormatForURL(sourceURL)
	newFeed, err := feed.Decode(sourceData, sourceFormat)
	if err != nil {
		return result, err
	}

	refURL := referenceDestination(h.cfg.DestinationURLs)
	h.logger.Info("fetching previous output", "url", refURL)

	oldFeed, err := h.fetchOldFeed(ctx, refURL)
	if err != nil {
		return result, err
	}

	metrics, err := processor.Process(ctx, newFeed, oldFeed, h.translator, processor.Options{
		TargetLanguages: h.cfg.TargetLanguages,
		Concurrency:     h.cfg.ConcurrencyLimit,
		Force:           h.cfg.ForceRetranslate,
	})
	if err != nil {
		return result, err
	}
	result.Metrics = metrics

	h.logger.Info("run complete", "metrics", metrics)

	if !ShouldUpload(oldFeed, newFeed, metrics) {
		h.logger.Info("no translation changes detected, skipping upload")
		result.StatusCode = 200
		result.Body = "No changes"
		return result, nil
	}

	for _, destURL := range h.cfg.DestinationURLs {
		destFormat := feed.FormatForURL(destURL)
		data, err := feed.Encode(newFeed, destFormat)
		if err != nil {
			return result, err
		}
		if err := h.storage.Upload(ctx, destURL, data, feed.ContentType(destFormat)); err != nil {
			return result, err
		}
		h.logger.Info("uploaded", "url", destURL)
	}

	result.StatusCode = 200
	result.Body = "Translation completed"
	result.Uploaded = true
	return result, nil
}

// fetchOldFeed loads the previously published output. Absence is not an
// error: a first run has nothing to reuse. A present but malformed old
// feed is fatal like any other decode error.
func (h *Handler) fetchOldFeed(ctx context.Context, url string) (*gtfs.FeedMessage, error) {
	data, found, err := h.storage.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return feed.Decode(data, feed.FormatForURL(url))
}

// ShouldUpload decides whether the processed feed needs publishing. A run
// is skipped only when nothing changed: the previous output exists, its
// header timestamp matches, and no strings were dispatched.
func ShouldUpload(oldFeed, newFeed *gtfs.FeedMessage, metrics domain.Metrics) bool {
	if oldFeed == nil {
		return true
	}
	if oldFeed.GetHeader().GetTimestamp() != newFeed.GetHeader().GetTimestamp() {
		return true
	}
	return metrics.StringsDispatched > 0
}

// referenceDestination picks the destination used for translation reuse.
// A JSON destination is preferred since it is the richer encoding.
func referenceDestination(destURLs []string) string {
	for _, url := range destURLs {
		if strings.HasSuffix(url, ".json") {
			return url
		}
	}
	return destURLs[0]
}

func validateURLs(sourceURL string, destURLs []string) error {
	if sourceURL == "" {
		return fmt.Errorf("no source URL provided")
	}
	if len(destURLs) == 0 {
		return fmt.Errorf("no destination URLs provided")
	}
	for _, destURL := range destURLs {
		if destURL == sourceURL {
			return fmt.Errorf("source URL matches one of the destinations: %s", sourceURL)
		}
	}
	return nil
}
