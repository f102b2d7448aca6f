package badge_test

import (
	"context"
	"testing"

	"github.com/p-n-ai/pai-analysis/internal/analysis"
	"github.com/p-n-ai/pai-analysis/internal/badge"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		title      string
		curriculum string
		want       badge.Label
	}{
		{"questions beat vocabulary", "", `{"questions":[{"question":"Q"}],"vocabulary":[{"word":"a","meaning":"b"}]}`, badge.LabelVariant},
		{"questions beat sentences", "단어장", `{"questions":[{"question":"Q"}],"sentences":[{"original":"x"}]}`, badge.LabelVariant},
		{"structure", "", `{"structure":{"summary":"s","sections":[]}}`, badge.LabelTextAnalysis},
		{"sentences", "", `{"sentences":[{"original":"x"}]}`, badge.LabelTextAnalysis},
		{"sentences flagged workbook", "", `{"sentences":[{"original":"x"}],"workbook":true}`, badge.LabelWorkbook},
		{"sentences isWorkbook", "", `{"sentences":[{"original":"x"}],"isWorkbook":true}`, badge.LabelWorkbook},
		{"sentences type workbook", "", `{"sentences":[{"original":"x"}],"type":"Workbook"}`, badge.LabelWorkbook},
		{"workbook title with sentences", "고2 워크북", `{"sentences":[{"original":"x"}]}`, badge.LabelWorkbook},
		{"workbook title with structure", "고2 워크북", `{"sentences":[{"original":"x"}],"structure":{"summary":"s"}}`, badge.LabelTextAnalysis},
		{"vocabulary only", "본문분석 1강", `{"vocabulary":[{"word":"a","meaning":"b"}]}`, badge.LabelVocabulary},
		{"double encoded", "", `"{\"vocabulary\":[{\"word\":\"a\",\"meaning\":\"b\"}]}"`, badge.LabelVocabulary},
		{"empty arrays fall back to title", "수능 단어장", `{"sentences":[],"questions":[]}`, badge.LabelVocabulary},
		{"null structure", "", `{"structure":null}`, badge.LabelDefault},
		{"unparseable falls back to title", "수능 변형문제", `{broken`, badge.LabelVariant},
		{"linked seminar falls back to title", "본문분석 세트", "linked_seminar:42", badge.LabelTextAnalysis},
		{"linked source falls back to default", "", "linked_source:1", badge.LabelDefault},
		{"nothing", "영어 강의", "", badge.LabelDefault},
		{"array is not an object", "", `[{"original":"x"}]`, badge.LabelDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := badge.Classify(tt.title, tt.curriculum)
			if got.Label != tt.want {
				t.Errorf("Classify(%q, %q) = %s, want %s", tt.title, tt.curriculum, got.Label, tt.want)
			}
			if got.StyleClass == "" {
				t.Error("StyleClass is empty")
			}
		})
	}
}

func TestClassify_TitleKeywordOrder(t *testing.T) {
	tests := []struct {
		title string
		want  badge.Label
	}{
		{"본문분석 + 변형문제 패키지", badge.LabelVariant},
		{"워크북과 단어장", badge.LabelWorkbook},
		{"단어장 본문분석", badge.LabelVocabulary},
		{"올림포스 본문분석", badge.LabelTextAnalysis},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := badge.Classify(tt.title, "").Label; got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.title, got, tt.want)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	const curriculum = `{"sentences":[{"original":"x"}],"vocabulary":[{"word":"a","meaning":"b"}]}`
	first := badge.Classify("워크북", curriculum)
	for i := 0; i < 10; i++ {
		if got := badge.Classify("워크북", curriculum); got != first {
			t.Fatalf("Classify() = %+v on run %d, want %+v", got, i, first)
		}
	}
}

func TestFor_UnknownLabel(t *testing.T) {
	got := badge.For("기타")
	if got.Label != badge.LabelDefault {
		t.Errorf("For(unknown) = %s, want default", got.Label)
	}
}

// A course badged from its content must also preview and export that content.
func TestClassify_AgreesWithResolver(t *testing.T) {
	r := analysis.NewResolver(analysis.ResolverConfig{})

	tests := []struct {
		name       string
		curriculum string
		want       badge.Label
	}{
		{"numeric choices", `{"questions":[{"question":"Q","choices":[1,2,3]}]}`, badge.LabelVariant},
		{"object grammar point", `{"sentences":[{"original":"x","grammarPoints":[{"point":"x"}]}]}`, badge.LabelTextAnalysis},
		{"float sentence id", `{"sentences":[{"id":1.5,"original":"x"}]}`, badge.LabelTextAnalysis},
		{"vocabulary item without word", `{"vocabulary":[{"meaning":"뜻"},{"word":"w","meaning":"m"}]}`, badge.LabelVocabulary},
		{"summary string", `{"structure":"요약"}`, badge.LabelTextAnalysis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := badge.Classify("", tt.curriculum).Label; got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
			res := r.Resolve(context.Background(), tt.curriculum)
			if res.Status != analysis.StatusResolved || res.Document == nil {
				t.Errorf("Resolve() status = %s (err %v), want resolved", res.Status, res.Err)
			}
		})
	}
}
