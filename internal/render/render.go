// Package render builds the view model the preview dialog and the course viewer draw.
package render

import (
	"strconv"
	"strings"

	"github.com/p-n-ai/pai-analysis/internal/analysis"
)

// Mode selects how much of a document is shown.
type Mode string

const (
	// ModeSample is the pre-purchase teaser: a few sentences, no structure, no answers.
	ModeSample Mode = "sample"
	// ModeFull shows everything, answers included.
	ModeFull Mode = "full"
)

// Sample mode limits.
const (
	SampleSentences  = 3
	SampleVocabulary = 10
	SampleQuestions  = 1
)

// ParseMode reads a mode name. Anything other than "full" is sample mode.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeFull)) {
		return ModeFull
	}
	return ModeSample
}

// View is the rendered document.
type View struct {
	Mode       Mode                  `json:"mode"`
	Sentences  []SentenceView        `json:"sentences"`
	Vocabulary []analysis.VocabEntry `json:"vocabulary"`
	Structure  *StructureView        `json:"structure,omitempty"`
	Questions  []QuestionView        `json:"questions"`
	Totals     Totals                `json:"totals"`
	Truncated  bool                  `json:"truncated"`
}

// Totals counts what the full document holds, so a sample can say what is missing.
type Totals struct {
	Sentences  int `json:"sentences"`
	Vocabulary int `json:"vocabulary"`
	Questions  int `json:"questions"`
}

// SentenceView is one sentence block.
type SentenceView struct {
	Number        int                   `json:"number"`
	ID            string                `json:"id"`
	Original      string                `json:"original"`
	Spans         []SpanView            `json:"spans"`
	Translation   string                `json:"translation"`
	GrammarPoints []string              `json:"grammarPoints"`
	Vocabulary    []analysis.VocabEntry `json:"vocabulary"`
	Paraphrasing  string                `json:"paraphrasing,omitempty"`
}

// SpanView is a highlighted fragment. Class is empty for plain text.
type SpanView struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
	Class string `json:"class,omitempty"`
}

// StructureView is the structural overview.
type StructureView struct {
	Summary  string             `json:"summary"`
	Sections []analysis.Section `json:"sections"`
}

// QuestionView is a variant question. Answer and Explanation are only set in full mode.
type QuestionView struct {
	Number      int          `json:"number"`
	Question    string       `json:"question"`
	Choices     []ChoiceView `json:"choices"`
	Answer      string       `json:"answer,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
}

// ChoiceView is one answer choice with its circled label.
type ChoiceView struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

var palette = map[analysis.Color]string{
	analysis.ColorBlue:   "text-blue-600 font-semibold",
	analysis.ColorRed:    "text-red-600 font-semibold",
	analysis.ColorGreen:  "text-green-600 font-semibold",
	analysis.ColorPurple: "text-purple-600 font-semibold",
	analysis.ColorOrange: "text-orange-600 font-semibold",
}

var choiceLabels = []string{"①", "②", "③", "④", "⑤", "⑥", "⑦", "⑧", "⑨", "⑩"}

// Render builds the view of doc for mode. A nil doc renders as an empty view.
func Render(doc *analysis.Document, mode Mode) View {
	if mode != ModeFull {
		mode = ModeSample
	}
	if doc == nil {
		doc = &analysis.Document{}
	}

	v := View{
		Mode: mode,
		Totals: Totals{
			Sentences:  len(doc.Sentences),
			Vocabulary: len(doc.Vocabulary),
			Questions:  len(doc.Questions),
		},
	}

	sentences, vocab, questions := doc.Sentences, doc.Vocabulary, doc.Questions
	if mode == ModeSample {
		sentences = head(sentences, SampleSentences)
		vocab = head(vocab, SampleVocabulary)
		questions = head(questions, SampleQuestions)
		v.Truncated = len(sentences) < len(doc.Sentences) ||
			len(vocab) < len(doc.Vocabulary) ||
			len(questions) < len(doc.Questions) ||
			doc.HasStructure()
	}

	v.Sentences = make([]SentenceView, 0, len(sentences))
	for i, s := range sentences {
		v.Sentences = append(v.Sentences, renderSentence(i+1, s))
	}

	v.Vocabulary = append([]analysis.VocabEntry{}, vocab...)

	if mode == ModeFull && doc.HasStructure() {
		v.Structure = &StructureView{
			Summary:  doc.Structure.Summary,
			Sections: append([]analysis.Section{}, doc.Structure.Sections...),
		}
	}

	v.Questions = make([]QuestionView, 0, len(questions))
	for i, q := range questions {
		qv := QuestionView{
			Number:   i + 1,
			Question: q.Question,
			Choices:  renderChoices(q.Choices),
		}
		if mode == ModeFull {
			qv.Answer = q.Answer.String()
			qv.Explanation = q.Explanation
		}
		v.Questions = append(v.Questions, qv)
	}

	return v
}

func renderSentence(number int, s analysis.Sentence) SentenceView {
	sv := SentenceView{
		Number:        number,
		ID:            s.ID.String(),
		Original:      s.Original,
		Translation:   s.Translation,
		GrammarPoints: append([]string{}, s.GrammarPoints...),
		Vocabulary:    append([]analysis.VocabEntry{}, s.Vocabulary...),
		Paraphrasing:  s.Paraphrasing,
	}
	sv.Spans = make([]SpanView, 0, len(s.Analysis))
	for _, span := range s.Analysis {
		sv.Spans = append(sv.Spans, renderSpan(span))
	}
	return sv
}

// renderSpan maps a span color onto the palette; unknown colors render as plain text.
func renderSpan(span analysis.ColoredSpan) SpanView {
	class, ok := palette[span.Color]
	if !ok {
		return SpanView{Text: span.Text}
	}
	return SpanView{Text: span.Text, Color: string(span.Color), Class: class}
}

func renderChoices(choices []string) []ChoiceView {
	out := make([]ChoiceView, 0, len(choices))
	for i, c := range choices {
		out = append(out, ChoiceView{Label: ChoiceLabel(i), Text: c})
	}
	return out
}

// ChoiceLabel returns the circled number for the i-th (0-based) choice.
func ChoiceLabel(i int) string {
	if i >= 0 && i < len(choiceLabels) {
		return choiceLabels[i]
	}
	return "(" + strconv.Itoa(i+1) + ")"
}

func head[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
