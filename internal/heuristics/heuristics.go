// Package heuristics holds the cheap, pure metadata taggers used during
// ingestion: language detection, tradition guessing, symbol hints, and
// concordance term extraction. None of them consult external services.
package heuristics

import (
	"regexp"
	"sort"
	"strings"

	"github.com/abadojack/whatlanggo"
)

const (
	languageSampleChars = 2000
	minDetectChars      = 20
	minTermChars        = 4
)

// DetectLanguage returns an ISO language code for the text, or "unknown"
// when the sample is too short or the detector is not confident.
func DetectLanguage(text string) string {
	sample := strings.TrimSpace(text)
	if len(sample) > languageSampleChars {
		sample = sample[:languageSampleChars]
	}
	if len(sample) < minDetectChars {
		return "unknown"
	}

	info := whatlanggo.Detect(sample)
	if !info.IsReliable() {
		return "unknown"
	}
	if code := info.Lang.Iso6391(); code != "" {
		return code
	}
	return whatlanggo.LangToString(info.Lang)
}

var symbolKeywords = []string{
	"figure",
	"seal",
	"sigil",
	"pentacle",
	"diagram",
	"plate",
	"illustration",
	"engraving",
	"talisman",
	"amulet",
}

// DetectSymbolHint marks text that appears to reference figures, seals,
// or other visual symbols, so answers can point readers at the original
// page instead of pretending to see the image.
func DetectSymbolHint(text string) bool {
	lowered := strings.ToLower(text)
	for _, k := range symbolKeywords {
		if strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}

// GuessTradition assigns a rough domain label. It is deliberately
// conservative; the label is a hint for context, not an authority.
func GuessTradition(text string) string {
	lowered := strings.ToLower(text)

	contains := func(keys ...string) bool {
		for _, k := range keys {
			if strings.Contains(lowered, k) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("kabbalah", "sefirot", "sephiroth", "tiferet", "binah", "yesod"):
		return "Jewish mysticism / Kabbalah (heuristic)"
	case contains("psalm", "psalms", "jesus", "mary", "saint", "angel"):
		return "Christian / folk Catholic devotional / liturgical material (heuristic)"
	case contains("hoodoo", "conjure", "rootwork", "mojo", "jack ball"):
		return "African American hoodoo / conjure (heuristic)"
	case contains("pentacle", "pentagram", "solomon", "goetia", "seal of"):
		return "Solomonic / ceremonial esoteric text (heuristic)"
	case contains("thelema", "crowley", "ordo templi orientis"):
		return "Thelemic / modern ceremonial (heuristic)"
	case contains("golden dawn", "lbrp", "rose cross", "shemesh", "mizrah"):
		return "Hermetic Order of the Golden Dawn (heuristic)"
	case contains("spiritism", "espiritismo", "mesa blanca"):
		return "Spiritism / Espiritismo (heuristic)"
	default:
		return "Unknown / mixed domain (heuristic)"
	}
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {}, "on": {},
	"for": {}, "with": {}, "by": {}, "at": {}, "is": {}, "it": {}, "this": {},
	"that": {}, "a": {}, "an": {}, "as": {}, "from": {}, "be": {}, "are": {},
	"was": {}, "were": {}, "but": {}, "not": {}, "into": {}, "about": {},
	"over": {}, "under": {}, "between": {}, "within": {}, "without": {},
	"through": {},
}

var edgePunct = regexp.MustCompile(`^[^\w']+|[^\w']+$`)

// CandidateTerms extracts a unique, sorted set of normalized terms from a
// chunk for the concordance. Tokens are lowercased, trimmed of edge
// punctuation (inner hyphens and apostrophes survive), and filtered for
// length and basic English stopwords.
func CandidateTerms(text, language string) []string {
	if text == "" {
		return nil
	}

	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(text) {
		norm := strings.ToLower(edgePunct.ReplaceAllString(tok, ""))
		if len(norm) < minTermChars {
			continue
		}
		if language == "" || language == "unknown" || language == "en" {
			if _, stop := stopwords[norm]; stop {
				continue
			}
		}
		seen[norm] = struct{}{}
	}

	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}
