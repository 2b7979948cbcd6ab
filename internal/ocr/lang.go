// SPDX-License-Identifier: MIT

// Package ocr downloads recognition models and turns subtitle bitmaps into
// text.
package ocr

import (
	"strings"

	"golang.org/x/text/language"
)

// Family identifies the script family a recognition model covers.
type Family int

const (
	FamilyLatin Family = iota
	FamilyCJK
	FamilyKorean
	FamilyCyrillic
	FamilyArabic
	FamilyDevanagari
	FamilyThai
	FamilyTamil
	FamilyTelugu
)

// Families lists every supported script family.
var Families = []Family{
	FamilyLatin, FamilyCJK, FamilyKorean, FamilyCyrillic, FamilyArabic,
	FamilyDevanagari, FamilyThai, FamilyTamil, FamilyTelugu,
}

// String returns the directory name of the family under the model root.
func (f Family) String() string {
	switch f {
	case FamilyLatin:
		return "latin"
	case FamilyCJK:
		return "cjk"
	case FamilyKorean:
		return "korean"
	case FamilyCyrillic:
		return "cyrillic"
	case FamilyArabic:
		return "arabic"
	case FamilyDevanagari:
		return "devanagari"
	case FamilyThai:
		return "thai"
	case FamilyTamil:
		return "tamil"
	case FamilyTelugu:
		return "telugu"
	default:
		return "unknown"
	}
}

// byScript maps ISO 15924 script codes, as resolved by x/text, to families.
var byScript = map[string]Family{
	"Latn": FamilyLatin,
	"Hans": FamilyCJK,
	"Hant": FamilyCJK,
	"Jpan": FamilyCJK,
	"Hani": FamilyCJK,
	"Kana": FamilyCJK,
	"Hira": FamilyCJK,
	"Hang": FamilyKorean,
	"Kore": FamilyKorean,
	"Cyrl": FamilyCyrillic,
	"Arab": FamilyArabic,
	"Deva": FamilyDevanagari,
	"Thai": FamilyThai,
	"Taml": FamilyTamil,
	"Telu": FamilyTelugu,
}

// byName covers English language names and legacy ISO 639-2/B codes that the
// tag parser does not resolve.
var byName = map[string]Family{
	"english":    FamilyLatin,
	"french":     FamilyLatin,
	"german":     FamilyLatin,
	"spanish":    FamilyLatin,
	"italian":    FamilyLatin,
	"portuguese": FamilyLatin,
	"dutch":      FamilyLatin,
	"chinese":    FamilyCJK,
	"japanese":   FamilyCJK,
	"korean":     FamilyKorean,
	"russian":    FamilyCyrillic,
	"ukrainian":  FamilyCyrillic,
	"arabic":     FamilyArabic,
	"persian":    FamilyArabic,
	"hindi":      FamilyDevanagari,
	"marathi":    FamilyDevanagari,
	"nepali":     FamilyDevanagari,
	"thai":       FamilyThai,
	"tamil":      FamilyTamil,
	"telugu":     FamilyTelugu,
	// ISO 639-2/B forms not accepted by language.Parse
	"chi": FamilyCJK,
	"fre": FamilyLatin,
	"ger": FamilyLatin,
	"dut": FamilyLatin,
	"gre": FamilyLatin,
	"per": FamilyArabic,
	"rum": FamilyLatin,
	"cze": FamilyLatin,
}

// FamilyForLanguage resolves a language identifier (ISO 639-1/2/3 code or an
// English name, case-insensitive) to the script family whose model can read
// it. The second return is false for unsupported languages.
func FamilyForLanguage(lang string) (Family, bool) {
	s := strings.ToLower(strings.TrimSpace(lang))
	if s == "" {
		return 0, false
	}
	if f, ok := byName[s]; ok {
		return f, true
	}
	tag, err := language.Parse(s)
	if err != nil {
		return 0, false
	}
	script, conf := tag.Script()
	if conf == language.No {
		return 0, false
	}
	f, ok := byScript[script.String()]
	return f, ok
}
