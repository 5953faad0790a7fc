package fileserver

import "strings"

// langPrefix marks URIs that resolve against the client's language.
const langPrefix = "/$lang/"

// languageCandidates parses an Accept-Language header into the ordered
// list of lowercase language tags the client sent. Quality parameters are
// dropped; header order is preserved.
func languageCandidates(header string) []string {
	if header == "" {
		return nil
	}
	var langs []string
	for _, cell := range strings.Split(header, ",") {
		lang := strings.TrimSpace(cell)
		if i := strings.IndexAny(lang, "; "); i >= 0 {
			lang = lang[:i]
		}
		if lang != "" {
			langs = append(langs, strings.ToLower(lang))
		}
	}
	return langs
}
