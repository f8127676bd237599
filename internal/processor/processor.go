// Package processor sequences one translation run over a decoded feed:
// build the reuse map from the previous output, diff the incoming English
// text against it, dispatch only the missing pairs, and write the merged
// translations back onto the feed.
package processor

import (
	"context"
	"fmt"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/transitops/alerts-translator/internal/dispatch"
	"github.com/transitops/alerts-translator/internal/domain"
	"github.com/transitops/alerts-translator/internal/feed"
	"github.com/transitops/alerts-translator/internal/translation"
)

// Options configure a single run.
type Options struct {
	// TargetLanguages is the ordered set of language codes to produce.
	TargetLanguages []string
	// Concurrency caps simultaneously in-flight translation requests.
	Concurrency int
	// Force treats every (text, language) pair as missing, retranslating
	// the whole feed regardless of what the previous output contains.
	Force bool
}

// Process translates newFeed in place. oldFeed is the previously published
// output and may be nil on a first run, in which case nothing is reused.
// On any error the new feed is left untouched and nothing should be
// published: a feed with a silently missing language never leaves this
// function.
func Process(ctx context.Context, newFeed, oldFeed *gtfs.FeedMessage, tr dispatch.Translator, opts Options) (domain.Metrics, error) {
	var metrics domain.Metrics

	if len(opts.TargetLanguages) == 0 {
		return metrics, fmt.Errorf("no target languages configured")
	}

	oldMap := make(translation.Map)
	if oldFeed != nil {
		oldMap = translation.NewMap(feed.ExtractTexts(oldFeed))
	}

	newTexts := feed.ExtractTexts(newFeed)
	newURLs := feed.ExtractURLs(newFeed)

	workSet := translation.NewWorkSet(newTexts, opts.TargetLanguages)
	missing := workSet.Missing(oldMap, opts.Force)

	metrics.AlertsProcessed = countAlerts(newFeed)
	metrics.StringsDispatched = len(missing)
	metrics.StringsReused = workSet.Size() - len(missing)

	results, err := dispatch.Run(ctx, tr, missing, opts.Concurrency)
	if err != nil {
		return metrics, err
	}

	merged := oldMap
	merged.Merge(results)

	if err := apply(newTexts, newURLs, merged, opts.TargetLanguages); err != nil {
		return metrics, err
	}

	return metrics, nil
}

// apply rewrites every text field from the merged map and locale-tags
// every URL field. It is total: a target language absent from the map for
// some English text aborts the run instead of producing a partially
// translated feed.
func apply(texts []feed.TextField, urls []feed.URLField, merged translation.Map, languages []string) error {
	for _, f := range texts {
		for _, lang := range languages {
			translated, ok := merged.Lookup(f.English, lang)
			if !ok {
				return fmt.Errorf("no %s translation for %s field of alert %s", lang, f.Name, f.EntityID)
			}
			feed.SetTranslation(f.Value, lang, translated)
		}
	}

	for _, f := range urls {
		for _, lang := range languages {
			feed.SetTranslation(f.Value, lang, translation.TagURL(f.English, lang))
		}
	}

	return nil
}

func countAlerts(msg *gtfs.FeedMessage) int {
	count := 0
	for _, entity := range msg.GetEntity() {
		if entity.GetAlert() != nil {
			count++
		}
	}
	return count
}
