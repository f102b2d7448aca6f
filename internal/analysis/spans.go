package analysis

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"
)

// Reconstruct concatenates the span texts in order.
func (s Sentence) Reconstruct() string {
	var b strings.Builder
	for _, span := range s.Analysis {
		b.WriteString(span.Text)
	}
	return b.String()
}

// SpansConsistent reports whether the spans spell out Original, ignoring differences in
// whitespace runs and Unicode composition.
func (s Sentence) SpansConsistent() bool {
	return normalizeText(s.Reconstruct()) == normalizeText(s.Original)
}

// InconsistentSentences returns the ids of sentences whose spans do not rebuild the
// original text.
func (d *Document) InconsistentSentences() []string {
	var ids []string
	for _, s := range d.Sentences {
		if !s.SpansConsistent() {
			ids = append(ids, s.ID.String())
		}
	}
	return ids
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// Fingerprint returns a stable content hash of d, suitable as an HTTP entity tag.
func Fingerprint(d *Document) string {
	data, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:16])
}
