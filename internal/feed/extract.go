package feed

import (
	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// Translatable alert attributes, in traversal order.
var textFieldNames = []string{
	"header_text",
	"description_text",
	"tts_header_text",
	"tts_description_text",
}

// TextField is one populated translatable attribute of one alert: its
// English value, whatever translations it already carries, and a handle
// to the underlying message so translations can be written back.
type TextField struct {
	EntityID string
	Name     string
	English  string
	Existing map[string]string
	Value    *gtfs.TranslatedString
}

// URLField is one populated URL attribute of one alert. URLs are never
// translated; they receive a mechanical locale tag instead.
type URLField struct {
	EntityID string
	English  string
	Value    *gtfs.TranslatedString
}

// ExtractTexts walks every alert in the feed and returns a tuple for each
// populated text field. The feed is not mutated. Fields with no English
// value are skipped; an absent field is never reported as an empty string.
func ExtractTexts(msg *gtfs.FeedMessage) []TextField {
	var fields []TextField

	for _, entity := range msg.GetEntity() {
		alert := entity.GetAlert()
		if alert == nil {
			continue
		}

		values := []*gtfs.TranslatedString{
			alert.GetHeaderText(),
			alert.GetDescriptionText(),
			alert.GetTtsHeaderText(),
			alert.GetTtsDescriptionText(),
		}

		for i, ts := range values {
			english, existing := splitTranslations(ts)
			if english == "" {
				continue
			}
			fields = append(fields, TextField{
				EntityID: entity.GetId(),
				Name:     textFieldNames[i],
				English:  english,
				Existing: existing,
				Value:    ts,
			})
		}
	}

	return fields
}

// ExtractURLs returns every populated alert URL field.
func ExtractURLs(msg *gtfs.FeedMessage) []URLField {
	var fields []URLField

	for _, entity := range msg.GetEntity() {
		alert := entity.GetAlert()
		if alert == nil {
			continue
		}

		ts := alert.GetUrl()
		english, _ := splitTranslations(ts)
		if english == "" {
			continue
		}
		fields = append(fields, URLField{
			EntityID: entity.GetId(),
			English:  english,
			Value:    ts,
		})
	}

	return fields
}

// splitTranslations separates the English value of a translated string
// from its other per-language values. An entry with language "en" or no
// language at all is the English source.
func splitTranslations(ts *gtfs.TranslatedString) (string, map[string]string) {
	if ts == nil {
		return "", nil
	}

	english := ""
	existing := make(map[string]string)

	for _, tr := range ts.GetTranslation() {
		lang := tr.GetLanguage()
		if lang == "" || lang == "en" {
			if english == "" {
				english = tr.GetText()
			}
			continue
		}
		existing[lang] = tr.GetText()
	}

	return english, existing
}

// SetTranslation writes one per-language value onto a translated string,
// replacing an existing entry for the same language or appending a new one.
func SetTranslation(ts *gtfs.TranslatedString, lang, text string) {
	for _, tr := range ts.GetTranslation() {
		if tr.GetLanguage() == lang {
			tr.Text = proto.String(text)
			return
		}
	}
	ts.Translation = append(ts.Translation, &gtfs.TranslatedString_Translation{
		Text:     proto.String(text),
		Language: proto.String(lang),
	})
}
