package analysis

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// maxDecodePasses bounds unwrapping of JSON-encoded JSON strings. Stored curriculum is
// at most double-encoded.
const maxDecodePasses = 2

// maxSchemaErrors limits how many schema violations are kept in an error message.
const maxSchemaErrors = 3

var (
	// ErrEmpty is returned when there is no analysis payload at all.
	ErrEmpty = errors.New("analysis payload is empty")
	// ErrCorrupt is returned when a payload is present but cannot be read as a Document.
	ErrCorrupt = errors.New("analysis payload is corrupt")
)

//go:embed schema.json
var documentSchema string

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
})

// Decode parses an analysis payload into a normalized Document.
//
// The payload may be a JSON object, a JSON array of sentences, or either of those
// encoded once more as a JSON string. Anything else is reported as ErrCorrupt. Inside
// the top-level lists, off-type values are read as text rather than rejected.
func Decode(data []byte) (*Document, error) {
	raw, err := Unwrap(data)
	if err != nil {
		return nil, err
	}

	if raw[0] == '[' {
		raw = append(append([]byte(`{"sentences":`), raw...), '}')
	}

	if err := validateShape(raw); err != nil {
		return nil, err
	}

	var tree map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	canonical, err := json.Marshal(coerceDocument(tree))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var doc Document
	if err := json.Unmarshal(canonical, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	doc.Normalize()
	return &doc, nil
}

// Unwrap strips JSON string encoding layers from data and returns the inner object or
// array. A string that still decodes to a string after maxDecodePasses is corrupt.
func Unwrap(data []byte) ([]byte, error) {
	current := bytes.TrimSpace(data)
	if len(current) == 0 || bytes.Equal(current, []byte("null")) {
		return nil, ErrEmpty
	}

	for pass := 0; pass < maxDecodePasses; pass++ {
		if !json.Valid(current) {
			return nil, fmt.Errorf("%w: invalid JSON", ErrCorrupt)
		}
		switch current[0] {
		case '{', '[':
			return current, nil
		case '"':
			var inner string
			if err := json.Unmarshal(current, &inner); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			current = bytes.TrimSpace([]byte(inner))
			if len(current) == 0 {
				return nil, ErrEmpty
			}
		default:
			return nil, fmt.Errorf("%w: not an object or array", ErrCorrupt)
		}
	}

	return nil, fmt.Errorf("%w: not an object or array after %d passes", ErrCorrupt, maxDecodePasses)
}

func validateShape(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling analysis schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, maxSchemaErrors)
	for i, e := range result.Errors() {
		if i == maxSchemaErrors {
			break
		}
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrCorrupt, strings.Join(msgs, "; "))
}

// Normalize fills defaults so renderers and exporters never see nil slices, and
// replaces spans that do not spell out their sentence with one plain span.
func (d *Document) Normalize() {
	if d.Sentences == nil {
		d.Sentences = []Sentence{}
	}
	for i := range d.Sentences {
		s := &d.Sentences[i]
		if s.ID == "" {
			s.ID = Text(strconv.Itoa(i + 1))
		}
		for j := range s.Analysis {
			s.Analysis[j].Color = Color(strings.ToLower(strings.TrimSpace(string(s.Analysis[j].Color))))
			if s.Analysis[j].Color == "" {
				s.Analysis[j].Color = ColorNone
			}
		}
		if s.Original == "" {
			s.Original = s.Reconstruct()
		}
		if len(s.Analysis) == 0 && s.Original != "" {
			s.Analysis = []ColoredSpan{{Text: s.Original, Color: ColorNone}}
		}
		if s.Analysis == nil {
			s.Analysis = []ColoredSpan{}
		}
		if s.GrammarPoints == nil {
			s.GrammarPoints = []string{}
		}
		s.Vocabulary = dedupeVocabulary(s.Vocabulary)
	}

	if ids := d.InconsistentSentences(); len(ids) > 0 {
		slog.Warn("analysis spans do not match their sentences, showing them uncolored", "sentence_ids", ids)
		for i := range d.Sentences {
			s := &d.Sentences[i]
			if !s.SpansConsistent() {
				s.Analysis = []ColoredSpan{{Text: s.Original, Color: ColorNone}}
			}
		}
	}

	d.Vocabulary = dedupeVocabulary(d.Vocabulary)

	if d.Structure != nil && d.Structure.Sections == nil {
		d.Structure.Sections = []Section{}
	}

	if d.Questions == nil {
		d.Questions = []Question{}
	}
	for i := range d.Questions {
		if d.Questions[i].Choices == nil {
			d.Questions[i].Choices = []string{}
		}
	}
}

// dedupeVocabulary keeps the first entry per word, comparing case-insensitively.
func dedupeVocabulary(entries []VocabEntry) []VocabEntry {
	out := make([]VocabEntry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.Word))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
