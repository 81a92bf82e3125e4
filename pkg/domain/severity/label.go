// Package severity turns free-text pothole assessments into a coarse
// urgency label and maps that label to user-facing guidance.
package severity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Label is the severity token exactly as it appeared between brackets in
// the assessment text.
type Label string

// Canonical labels. The model may answer in Portuguese (BAIXO, MÉDIO,
// ALTO, CRÍTICO); those spellings resolve to the same levels.
const (
	LabelLow       Label = "LOW"
	LabelMedium    Label = "MEDIUM"
	LabelHigh      Label = "HIGH"
	LabelCritical  Label = "CRITICAL"
	LabelUndefined Label = "UNDEFINED"
)

// Level is the normalised urgency a label resolves to.
type Level int

const (
	LevelUnknown Level = iota
	LevelLow
	LevelMedium
	LevelHigh
	LevelCritical
)

var levelNames = map[Level]string{
	LevelUnknown:  "unknown",
	LevelLow:      "low",
	LevelMedium:   "medium",
	LevelHigh:     "high",
	LevelCritical: "critical",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return levelNames[LevelUnknown]
}

// spellings maps accent-stripped, upper-cased tokens to levels.
var spellings = map[string]Level{
	"LOW":      LevelLow,
	"BAIXO":    LevelLow,
	"BAIXA":    LevelLow,
	"MEDIUM":   LevelMedium,
	"MEDIO":    LevelMedium,
	"MEDIA":    LevelMedium,
	"MODERADO": LevelMedium,
	"HIGH":     LevelHigh,
	"ALTO":     LevelHigh,
	"ALTA":     LevelHigh,
	"CRITICAL": LevelCritical,
	"CRITICO":  LevelCritical,
	"CRITICA":  LevelCritical,
}

// Level resolves the label, ignoring case, surrounding space and accents.
func (l Label) Level() Level {
	if level, ok := spellings[fold(string(l))]; ok {
		return level
	}
	return LevelUnknown
}

// Known reports whether the label resolves to a concrete level.
func (l Label) Known() bool {
	return l.Level() != LevelUnknown
}

func (l Label) String() string {
	return string(l)
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.TrimSpace(out))
}
