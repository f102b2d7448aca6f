// Package badge labels a course by the kind of analysis material it carries.
package badge

import (
	"encoding/json"
	"strings"

	"github.com/p-n-ai/pai-analysis/internal/analysis"
)

// Label is the short badge text shown on a course card.
type Label string

const (
	LabelTextAnalysis Label = "본문분석"
	LabelVocabulary   Label = "단어장"
	LabelWorkbook     Label = "워크북"
	LabelVariant      Label = "변형문제"
	LabelDefault      Label = "분석자료"
)

// Badge is a derived, never persisted classification of a course.
type Badge struct {
	Label      Label  `json:"label"`
	StyleClass string `json:"styleClass"`
}

var styles = map[Label]string{
	LabelTextAnalysis: "bg-blue-100 text-blue-700",
	LabelVocabulary:   "bg-green-100 text-green-700",
	LabelWorkbook:     "bg-orange-100 text-orange-700",
	LabelVariant:      "bg-purple-100 text-purple-700",
	LabelDefault:      "bg-gray-100 text-gray-700",
}

// titleKeywords is checked in order; the first keyword found in a title wins.
var titleKeywords = []struct {
	keyword string
	label   Label
}{
	{"변형문제", LabelVariant},
	{"워크북", LabelWorkbook},
	{"단어장", LabelVocabulary},
	{"본문분석", LabelTextAnalysis},
}

// For returns the badge for a label.
func For(label Label) Badge {
	style, ok := styles[label]
	if !ok {
		label = LabelDefault
		style = styles[LabelDefault]
	}
	return Badge{Label: label, StyleClass: style}
}

// Classify labels a course from its title and stored curriculum. Content wins over the
// title whenever the curriculum decodes to an object that has any analysis field.
// It does no I/O, so linked references fall back to the title.
func Classify(title, curriculum string) Badge {
	guess := fromTitle(title)

	content, ok := probe(curriculum)
	if !ok {
		return For(guess)
	}

	workbook := content.workbookFlag() || guess == LabelWorkbook
	switch {
	case content.has("questions"):
		return For(LabelVariant)
	case content.hasStructure() || (content.has("sentences") && !workbook):
		return For(LabelTextAnalysis)
	case content.has("sentences") && workbook:
		return For(LabelWorkbook)
	case content.has("vocabulary"):
		return For(LabelVocabulary)
	}
	return For(guess)
}

func fromTitle(title string) Label {
	for _, k := range titleKeywords {
		if strings.Contains(title, k.keyword) {
			return k.label
		}
	}
	return LabelDefault
}

type fields map[string]json.RawMessage

// probe decodes the curriculum into its top-level fields without validating them.
func probe(curriculum string) (fields, bool) {
	ref := analysis.ParseReference(curriculum)
	if ref.Kind != analysis.RefRaw {
		return nil, false
	}
	raw, err := analysis.Unwrap([]byte(ref.Raw))
	if err != nil || raw[0] != '{' {
		return nil, false
	}
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, false
	}
	return f, true
}

// has reports whether key holds a non-empty array.
func (f fields) has(key string) bool {
	var items []json.RawMessage
	if err := json.Unmarshal(f[key], &items); err != nil {
		return false
	}
	return len(items) > 0
}

// hasStructure accepts an overview object or a plain summary string.
func (f fields) hasStructure() bool {
	var s map[string]json.RawMessage
	if err := json.Unmarshal(f["structure"], &s); err == nil {
		return s != nil
	}
	var summary string
	if err := json.Unmarshal(f["structure"], &summary); err == nil {
		return strings.TrimSpace(summary) != ""
	}
	return false
}

func (f fields) workbookFlag() bool {
	for _, key := range []string{"workbook", "isWorkbook"} {
		var b bool
		if err := json.Unmarshal(f[key], &b); err == nil && b {
			return true
		}
	}
	var kind string
	if err := json.Unmarshal(f["type"], &kind); err == nil {
		return strings.EqualFold(kind, "workbook")
	}
	return false
}
