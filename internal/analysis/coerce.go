package analysis

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
)

// preferredKeys orders the fields read when an object stands where text is expected,
// e.g. a grammar point written as {"point": "...", "explanation": "..."}.
var preferredKeys = []string{"text", "point", "title", "label", "word", "name", "value", "content", "description", "meaning", "explanation"}

// coerceDocument rewrites a decoded payload into the shape Document unmarshals from.
// Leaf values of the wrong type become text and list items with nothing to show are
// dropped, so one odd field never loses the whole document.
func coerceDocument(v map[string]any) map[string]any {
	out := map[string]any{}
	if items, ok := v["sentences"].([]any); ok {
		out["sentences"] = coerceList(items, coerceSentence)
	}
	if items, ok := v["vocabulary"].([]any); ok {
		out["vocabulary"] = coerceList(items, coerceVocab)
	}
	switch st := v["structure"].(type) {
	case map[string]any:
		out["structure"] = coerceStructure(st)
	case string:
		if strings.TrimSpace(st) != "" {
			out["structure"] = map[string]any{"summary": st}
		}
	}
	if items, ok := v["questions"].([]any); ok {
		out["questions"] = coerceList(items, coerceQuestion)
	}
	return out
}

func coerceList(items []any, fn func(any) (map[string]any, bool)) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		if m, ok := fn(item); ok {
			out = append(out, m)
		}
	}
	return out
}

func coerceSentence(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		text := textOf(v)
		return map[string]any{"original": text}, text != ""
	}
	out := map[string]any{
		"id":            textOf(m["id"]),
		"original":      textOf(m["original"]),
		"translation":   textOf(m["translation"]),
		"paraphrasing":  textOf(m["paraphrasing"]),
		"grammarPoints": textList(m["grammarPoints"]),
	}
	if items, ok := m["analysis"].([]any); ok {
		out["analysis"] = coerceList(items, coerceSpan)
	}
	if items, ok := m["vocabulary"].([]any); ok {
		out["vocabulary"] = coerceList(items, coerceVocab)
	}
	return out, true
}

func coerceSpan(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		text := textOf(v)
		return map[string]any{"text": text}, text != ""
	}
	text := textOf(m["text"])
	return map[string]any{"text": text, "color": textOf(m["color"])}, text != ""
}

func coerceVocab(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		word := textOf(v)
		return map[string]any{"word": word}, word != ""
	}
	word := textOf(m["word"])
	return map[string]any{
		"word":    word,
		"meaning": textOf(m["meaning"]),
		"type":    textOf(m["type"]),
	}, word != ""
}

func coerceStructure(m map[string]any) map[string]any {
	out := map[string]any{"summary": textOf(m["summary"])}
	if items, ok := m["sections"].([]any); ok {
		out["sections"] = coerceList(items, coerceSection)
	}
	return out
}

func coerceSection(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		content := textOf(v)
		return map[string]any{"content": content}, content != ""
	}
	label, content := textOf(m["label"]), textOf(m["content"])
	return map[string]any{"label": label, "content": content}, label != "" || content != ""
}

func coerceQuestion(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		q := textOf(v)
		return map[string]any{"question": q}, q != ""
	}
	q, choices := textOf(m["question"]), textList(m["choices"])
	return map[string]any{
		"question":    q,
		"choices":     choices,
		"answer":      textOf(m["answer"]),
		"explanation": textOf(m["explanation"]),
	}, q != "" || len(choices) > 0
}

// textList reads a list of texts. A lone scalar counts as a one-item list.
func textList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		items = []any{v}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if text := textOf(item); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// textOf renders any decoded JSON value as display text.
func textOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case []any:
		return strings.Join(textList(x), ", ")
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			if !slices.Contains(preferredKeys, k) {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		parts := make([]string, 0, len(x))
		for _, k := range append(slices.Clone(preferredKeys), keys...) {
			if val, ok := x[k]; ok {
				if text := textOf(val); text != "" {
					parts = append(parts, text)
				}
			}
		}
		return strings.Join(parts, " - ")
	default:
		return ""
	}
}
