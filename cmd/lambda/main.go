// Package main is the entry point for the alerts translator Lambda function.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/transitops/alerts-translator/internal/config"
	"github.com/transitops/alerts-translator/internal/handler"
	"github.com/transitops/alerts-translator/internal/logging"
	"github.com/transitops/alerts-translator/internal/smartling"
	"github.com/transitops/alerts-translator/internal/storage"
)

// Resolved once per cold start. The Smartling client keeps its token for
// the warm lifetime of the instance, so later runs skip authentication.
var (
	cfg        config.Config
	logger     *slog.Logger
	translator *smartling.Client
)

func main() {
	ctx := context.Background()

	cfg = config.Load()
	logger = logging.New(cfg.LogLevel)

	if err := cfg.ResolveSecrets(ctx); err != nil {
		logger.Error("failed to resolve secrets", "error", err)
		os.Exit(1)
	}

	translator = smartling.New(cfg.Smartling.UserID, cfg.Smartling.UserSecret, cfg.Smartling.AccountUID)

	lambda.Start(handleRequest)
}

func handleRequest(ctx context.Context, event json.RawMessage) (interface{}, error) {
	// Warmup detection (MUST be first - before any other processing)
	if warmup, ok := IsWarmupEvent(event); ok {
		return HandleWarmup(ctx, warmup)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sourceURL, err := resolveSource(event)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(ctx)
	if err != nil {
		return nil, err
	}

	h := handler.New(cfg, store, translator, logger)
	return h.Run(ctx, sourceURL)
}

// s3Event is the subset of the S3 notification payload we care about.
type s3Event struct {
	Records []struct {
		S3 *struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// resolveSource implements the hybrid trigger: an S3 event names the
// object that changed, a scheduled invocation falls back to the
// configured source URL.
func resolveSource(event json.RawMessage) (string, error) {
	var evt s3Event
	if err := json.Unmarshal(event, &evt); err == nil && len(evt.Records) > 0 && evt.Records[0].S3 != nil {
		record := evt.Records[0].S3
		// Object keys arrive URL-encoded in S3 notifications.
		key, err := url.QueryUnescape(record.Object.Key)
		if err != nil {
			return "", fmt.Errorf("failed to unescape object key %q: %w", record.Object.Key, err)
		}
		return fmt.Sprintf("s3://%s/%s", record.Bucket.Name, key), nil
	}

	if cfg.SourceURL == "" {
		return "", fmt.Errorf("no source URL provided via environment or event")
	}
	return cfg.SourceURL, nil
}
