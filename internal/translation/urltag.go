package translation

import "net/url"

// TagURL appends a locale={lang} query parameter to an English URL,
// using ? or & depending on whether a query string is already present.
// A URL that already carries a locale parameter is returned unchanged.
// URLs are never sent to the remote translation service.
func TagURL(raw, lang string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if u.Query().Has("locale") {
		return raw
	}

	sep := "?"
	if u.RawQuery != "" {
		sep = "&"
	}
	return raw + sep + "locale=" + url.QueryEscape(lang)
}
