package heuristics

import (
	"reflect"
	"testing"
)

func TestDetectLanguageShortInput(t *testing.T) {
	tests := []string{"", "   ", "short", "tiny text here"}
	for _, text := range tests {
		if got := DetectLanguage(text); got != "unknown" {
			t.Errorf("DetectLanguage(%q) = %q; want unknown", text, got)
		}
	}
}

func TestDetectLanguageEnglish(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog, and the dog barely notices " +
		"because it has seen this particular fox perform the same trick every morning."
	if got := DetectLanguage(text); got != "en" {
		t.Errorf("DetectLanguage = %q; want en", got)
	}
}

func TestDetectSymbolHint(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"the seal of Saturn is a planetary pentacle", true},
		{"see the figure on the following plate", true},
		{"unrelated text about gardening", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := DetectSymbolHint(tt.text); got != tt.want {
			t.Errorf("DetectSymbolHint(%q) = %v; want %v", tt.text, got, tt.want)
		}
	}
}

func TestGuessTradition(t *testing.T) {
	if got := GuessTradition("the pentacle of Solomon"); got != "Solomonic / ceremonial esoteric text (heuristic)" {
		t.Errorf("unexpected tradition: %q", got)
	}
	if got := GuessTradition("notes on tomato gardening"); got != "Unknown / mixed domain (heuristic)" {
		t.Errorf("unexpected fallback tradition: %q", got)
	}
}

func TestCandidateTerms(t *testing.T) {
	got := CandidateTerms("The Seal, of Saturn... the SEAL again; short ok", "en")
	want := []string{"again", "saturn", "seal", "short"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CandidateTerms = %v; want %v", got, want)
	}
}

func TestCandidateTermsStopwordsOnlyForEnglish(t *testing.T) {
	// "with" is an English stopword; it survives for other languages.
	if terms := CandidateTerms("with without", "en"); len(terms) != 1 || terms[0] != "without" {
		t.Errorf("english terms = %v", terms)
	}
	if terms := CandidateTerms("with without", "de"); len(terms) != 2 {
		t.Errorf("non-english terms = %v", terms)
	}
}

func TestCandidateTermsEmpty(t *testing.T) {
	if terms := CandidateTerms("", "en"); terms != nil {
		t.Errorf("expected nil terms, got %v", terms)
	}
}
