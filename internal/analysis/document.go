// Package analysis models the sentence-analysis documents attached to courses and
// resolves a course's stored curriculum field into a normalized Document.
package analysis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Color is the emphasis color of an analysis span.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorRed    Color = "red"
	ColorGreen  Color = "green"
	ColorPurple Color = "purple"
	ColorOrange Color = "orange"
	ColorNone   Color = "none"
)

// Known reports whether c is one of the palette colors.
func (c Color) Known() bool {
	switch c {
	case ColorBlue, ColorRed, ColorGreen, ColorPurple, ColorOrange, ColorNone:
		return true
	}
	return false
}

// Hex returns the print color for c. Unknown colors and ColorNone print as body text.
func (c Color) Hex() string {
	switch c {
	case ColorBlue:
		return "#2563eb"
	case ColorRed:
		return "#dc2626"
	case ColorGreen:
		return "#16a34a"
	case ColorPurple:
		return "#9333ea"
	case ColorOrange:
		return "#ea580c"
	default:
		return "#111827"
	}
}

// RGB returns the components of Hex.
func (c Color) RGB() (r, g, b int) {
	v, err := strconv.ParseUint(strings.TrimPrefix(c.Hex(), "#"), 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}

// Emphasized reports whether c should be drawn differently from body text.
func (c Color) Emphasized() bool {
	return c.Known() && c != ColorNone
}

// ColoredSpan is a fragment of a sentence with a display color.
type ColoredSpan struct {
	Text  string `json:"text"`
	Color Color  `json:"color"`
}

// VocabEntry is a single vocabulary item.
type VocabEntry struct {
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
	Type    string `json:"type,omitempty"`
}

// Sentence is one analyzed sentence of the source passage.
type Sentence struct {
	ID            Text          `json:"id"`
	Original      string        `json:"original"`
	Analysis      []ColoredSpan `json:"analysis"`
	Translation   string        `json:"translation"`
	GrammarPoints []string      `json:"grammarPoints"`
	Vocabulary    []VocabEntry  `json:"vocabulary"`
	Paraphrasing  string        `json:"paraphrasing,omitempty"`
}

// Section is a labeled part of the passage structure.
type Section struct {
	Label   string `json:"label"`
	Content string `json:"content"`
}

// Structure is the structural overview of the passage.
type Structure struct {
	Summary  string    `json:"summary"`
	Sections []Section `json:"sections"`
}

// Question is a variant question built from the passage.
type Question struct {
	Question    string   `json:"question"`
	Choices     []string `json:"choices"`
	Answer      Text     `json:"answer,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// Document is the normalized analysis of one passage.
type Document struct {
	Sentences  []Sentence   `json:"sentences"`
	Vocabulary []VocabEntry `json:"vocabulary"`
	Structure  *Structure   `json:"structure,omitempty"`
	Questions  []Question   `json:"questions"`
}

// IsEmpty reports whether the document has nothing to show.
func (d *Document) IsEmpty() bool {
	if d == nil {
		return true
	}
	return len(d.Sentences) == 0 && len(d.Vocabulary) == 0 && len(d.Questions) == 0 && !d.HasStructure()
}

// HasStructure reports whether the document carries a non-empty structure overview.
func (d *Document) HasStructure() bool {
	return d != nil && d.Structure != nil && (d.Structure.Summary != "" || len(d.Structure.Sections) > 0)
}

// Text is a string that also accepts JSON numbers and booleans. Upstream producers are
// inconsistent about quoting sentence ids and answer keys.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*t = ""
	case string:
		*t = Text(x)
	case json.Number:
		*t = Text(x.String())
	case bool:
		*t = Text(strconv.FormatBool(x))
	default:
		return fmt.Errorf("unsupported JSON value for text: %s", data)
	}
	return nil
}

// String returns t as a plain string.
func (t Text) String() string {
	return string(t)
}
