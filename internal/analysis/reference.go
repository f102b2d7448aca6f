package analysis

import "strings"

const (
	linkedSeminarPrefix = "linked_seminar:"
	linkedSourcePrefix  = "linked_source:"
)

// ReferenceKind tags what a stored curriculum field holds.
type ReferenceKind int

const (
	RefEmpty ReferenceKind = iota
	RefRaw
	RefLinkedSeminar
	RefLinkedSource
)

func (k ReferenceKind) String() string {
	switch k {
	case RefEmpty:
		return "empty"
	case RefRaw:
		return "raw"
	case RefLinkedSeminar:
		return "linked_seminar"
	case RefLinkedSource:
		return "linked_source"
	default:
		return "unknown"
	}
}

// Reference is the parsed form of a course's curriculum field.
// ID is set for linked kinds, Raw for RefRaw.
type Reference struct {
	Kind ReferenceKind
	ID   string
	Raw  string
}

// ParseReference classifies a curriculum field. It is the only place that inspects the
// linked_* string prefixes.
func ParseReference(curriculum string) Reference {
	trimmed := strings.TrimSpace(curriculum)
	switch {
	case trimmed == "" || trimmed == "null":
		return Reference{Kind: RefEmpty}
	case strings.HasPrefix(trimmed, linkedSeminarPrefix):
		return Reference{Kind: RefLinkedSeminar, ID: strings.TrimSpace(strings.TrimPrefix(trimmed, linkedSeminarPrefix))}
	case strings.HasPrefix(trimmed, linkedSourcePrefix):
		return Reference{Kind: RefLinkedSource, ID: strings.TrimSpace(strings.TrimPrefix(trimmed, linkedSourcePrefix))}
	default:
		return Reference{Kind: RefRaw, Raw: trimmed}
	}
}
