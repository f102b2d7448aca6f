package render_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-analysis/internal/analysis"
	"github.com/p-n-ai/pai-analysis/internal/render"
)

func bigDocument(t *testing.T) *analysis.Document {
	t.Helper()

	var sentences, vocab, questions []string
	for i := 1; i <= 6; i++ {
		sentences = append(sentences, fmt.Sprintf(
			`{"id":%d,"original":"Sentence %d.","analysis":[{"text":"Sentence","color":"blue"},{"text":" %d.","color":"none"}],"translation":"문장 %d","grammarPoints":["gp"],"vocabulary":[]}`,
			i, i, i, i))
	}
	for i := 1; i <= 15; i++ {
		vocab = append(vocab, fmt.Sprintf(`{"word":"word%d","meaning":"뜻%d"}`, i, i))
	}
	for i := 1; i <= 3; i++ {
		questions = append(questions, fmt.Sprintf(
			`{"question":"Q%d","choices":["a","b","c","d","e"],"answer":"SECRET-ANSWER-%d","explanation":"SECRET-EXPLANATION-%d"}`,
			i, i, i))
	}

	raw := fmt.Sprintf(`{"sentences":[%s],"vocabulary":[%s],"structure":{"summary":"STRUCTURE-SUMMARY","sections":[{"label":"도입","content":"c"}]},"questions":[%s]}`,
		strings.Join(sentences, ","), strings.Join(vocab, ","), strings.Join(questions, ","))

	doc, err := analysis.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return doc
}

func TestRender_SampleTruncation(t *testing.T) {
	doc := bigDocument(t)

	v := render.Render(doc, render.ModeSample)

	if len(v.Sentences) != 3 {
		t.Errorf("Sentences = %d, want 3", len(v.Sentences))
	}
	if len(v.Vocabulary) > 10 {
		t.Errorf("Vocabulary = %d, want <= 10", len(v.Vocabulary))
	}
	if len(v.Questions) > 1 {
		t.Errorf("Questions = %d, want <= 1", len(v.Questions))
	}
	if v.Structure != nil {
		t.Error("Structure should be suppressed in sample mode")
	}
	if !v.Truncated {
		t.Error("Truncated should be true")
	}
	if v.Totals.Sentences != 6 || v.Totals.Vocabulary != 15 || v.Totals.Questions != 3 {
		t.Errorf("Totals = %+v", v.Totals)
	}
}

func TestRender_SampleHidesAnswers(t *testing.T) {
	doc := bigDocument(t)

	v := render.Render(doc, render.ModeSample)
	for _, q := range v.Questions {
		if q.Answer != "" || q.Explanation != "" {
			t.Errorf("question %d leaks answer %q / explanation %q", q.Number, q.Answer, q.Explanation)
		}
	}

	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, secret := range []string{"SECRET-ANSWER", "SECRET-EXPLANATION", "STRUCTURE-SUMMARY"} {
		if strings.Contains(string(out), secret) {
			t.Errorf("sample view JSON contains %q", secret)
		}
	}
}

func TestRender_Full(t *testing.T) {
	doc := bigDocument(t)

	v := render.Render(doc, render.ModeFull)

	if len(v.Sentences) != 6 || len(v.Vocabulary) != 15 || len(v.Questions) != 3 {
		t.Errorf("counts = %d/%d/%d, want 6/15/3", len(v.Sentences), len(v.Vocabulary), len(v.Questions))
	}
	if v.Structure == nil || v.Structure.Summary != "STRUCTURE-SUMMARY" {
		t.Errorf("Structure = %+v", v.Structure)
	}
	if v.Questions[0].Answer != "SECRET-ANSWER-1" || v.Questions[0].Explanation != "SECRET-EXPLANATION-1" {
		t.Errorf("question 1 = %+v", v.Questions[0])
	}
	if v.Truncated {
		t.Error("Truncated should be false in full mode")
	}
	if v.Questions[2].Choices[4].Label != "⑤" {
		t.Errorf("choice label = %q, want ⑤", v.Questions[2].Choices[4].Label)
	}
}

func TestRender_SmallSampleNotTruncated(t *testing.T) {
	doc, _ := analysis.Decode([]byte(`{"sentences":[{"original":"One."}],"vocabulary":[{"word":"a","meaning":"b"}]}`))

	v := render.Render(doc, render.ModeSample)
	if v.Truncated {
		t.Error("Truncated should be false when nothing was cut")
	}
	if len(v.Sentences) != 1 {
		t.Errorf("Sentences = %d, want 1", len(v.Sentences))
	}
}

func TestRender_Spans(t *testing.T) {
	doc, err := analysis.Decode([]byte(`{"sentences":[{"original":"A B C D","analysis":[
		{"text":"A","color":"red"},{"text":" B","color":"chartreuse"},{"text":" C","color":"none"},{"text":" D","color":"green"}
	]}]}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	spans := render.Render(doc, render.ModeFull).Sentences[0].Spans
	want := []struct {
		text  string
		plain bool
	}{
		{"A", false},
		{" B", true},
		{" C", true},
		{" D", false},
	}
	if len(spans) != len(want) {
		t.Fatalf("spans = %d, want %d", len(spans), len(want))
	}

	var rebuilt strings.Builder
	for i, w := range want {
		if spans[i].Text != w.text {
			t.Errorf("span %d text = %q, want %q", i, spans[i].Text, w.text)
		}
		if (spans[i].Class == "") != w.plain {
			t.Errorf("span %d class = %q, plain = %v", i, spans[i].Class, w.plain)
		}
		rebuilt.WriteString(spans[i].Text)
	}
	if rebuilt.String() != "A B C D" {
		t.Errorf("rebuilt = %q, want original", rebuilt.String())
	}
}

func TestRender_NilDocument(t *testing.T) {
	v := render.Render(nil, render.ModeFull)
	if v.Sentences == nil || v.Questions == nil || v.Vocabulary == nil {
		t.Error("nil document should render empty, non-nil slices")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want render.Mode
	}{
		{"full", render.ModeFull},
		{"FULL", render.ModeFull},
		{" full ", render.ModeFull},
		{"sample", render.ModeSample},
		{"", render.ModeSample},
		{"premium", render.ModeSample},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := render.ParseMode(tt.in); got != tt.want {
				t.Errorf("ParseMode(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestRender_UnknownModeIsSample(t *testing.T) {
	doc := bigDocument(t)
	v := render.Render(doc, render.Mode("premium"))
	if v.Mode != render.ModeSample || len(v.Sentences) != 3 {
		t.Errorf("Mode = %s, Sentences = %d; want sample with 3", v.Mode, len(v.Sentences))
	}
}

func TestChoiceLabel(t *testing.T) {
	if got := render.ChoiceLabel(0); got != "①" {
		t.Errorf("ChoiceLabel(0) = %q", got)
	}
	if got := render.ChoiceLabel(11); got != "(12)" {
		t.Errorf("ChoiceLabel(11) = %q", got)
	}
}
