package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-analysis/internal/seminar"
)

const (
	defaultCacheTTL    = 5 * time.Minute
	seminarCachePrefix = "analysis:seminar:v1:"
)

// Status describes how a curriculum field resolved.
type Status int

const (
	StatusResolved Status = iota
	StatusAbsent
	StatusUnsupported
	StatusUnresolvable
	StatusCorrupt
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusAbsent:
		return "absent"
	case StatusUnsupported:
		return "unsupported"
	case StatusUnresolvable:
		return "unresolvable"
	case StatusCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of resolving a curriculum field. Document is non-nil only
// when Status is StatusResolved. Err explains the other statuses; it is informational
// and never needs to be propagated.
type Resolution struct {
	Reference Reference
	Status    Status
	Document  *Document
	Err       error
}

// DocumentCache stores resolved documents of linked records.
type DocumentCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ResolverConfig holds dependencies for the resolver.
type ResolverConfig struct {
	Seminars seminar.Source
	Cache    DocumentCache // optional
	CacheTTL time.Duration // default 5m
}

// Resolver turns stored curriculum fields into documents.
type Resolver struct {
	seminars seminar.Source
	cache    DocumentCache
	cacheTTL time.Duration
}

// NewResolver creates a resolver. A nil seminar source makes every linked seminar
// unresolvable.
func NewResolver(cfg ResolverConfig) *Resolver {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Resolver{
		seminars: cfg.Seminars,
		cache:    cfg.Cache,
		cacheTTL: ttl,
	}
}

// Resolve parses and, for linked seminars, fetches the analysis behind a curriculum field.
// It never panics and never fails: every problem degrades to a Resolution without a
// Document.
func (r *Resolver) Resolve(ctx context.Context, curriculum string) (res Resolution) {
	ref := ParseReference(curriculum)
	defer func() {
		if p := recover(); p != nil {
			slog.Error("analysis resolve panicked", "kind", ref.Kind.String(), "panic", p)
			res = Resolution{Reference: ref, Status: StatusCorrupt, Err: fmt.Errorf("resolve panicked: %v", p)}
		}
	}()

	switch ref.Kind {
	case RefEmpty:
		return Resolution{Reference: ref, Status: StatusAbsent, Err: ErrEmpty}
	case RefLinkedSource:
		slog.Debug("linked source references are not resolved", "source_id", ref.ID)
		return Resolution{Reference: ref, Status: StatusUnsupported, Err: fmt.Errorf("linked source %q is not supported", ref.ID)}
	case RefLinkedSeminar:
		return r.resolveSeminar(ctx, ref)
	default:
		return fromPayload(ref, []byte(ref.Raw))
	}
}

func (r *Resolver) resolveSeminar(ctx context.Context, ref Reference) Resolution {
	if ref.ID == "" {
		return Resolution{Reference: ref, Status: StatusUnresolvable, Err: fmt.Errorf("linked seminar id is empty")}
	}

	key := seminarCachePrefix + ref.ID
	if doc, ok := r.cached(ctx, key); ok {
		return Resolution{Reference: ref, Status: StatusResolved, Document: doc}
	}

	if r.seminars == nil {
		return Resolution{Reference: ref, Status: StatusUnresolvable, Err: fmt.Errorf("no seminar source configured")}
	}

	sem, err := r.seminars.GetSeminar(ctx, ref.ID)
	if err != nil {
		slog.Warn("failed to fetch linked seminar", "seminar_id", ref.ID, "error", err)
		return Resolution{Reference: ref, Status: StatusUnresolvable, Err: err}
	}

	res := fromPayload(ref, programPayload(sem.Program))
	if res.Status == StatusResolved {
		r.store(ctx, key, res.Document)
	}
	return res
}

// programPayload strips the string wrapper the API puts around a program. Objects pass
// through unchanged.
func programPayload(program json.RawMessage) []byte {
	trimmed := bytes.TrimSpace(program)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return trimmed
	}
	return []byte(text)
}

func fromPayload(ref Reference, payload []byte) Resolution {
	doc, err := Decode(payload)
	switch {
	case err == nil:
		return Resolution{Reference: ref, Status: StatusResolved, Document: doc}
	case errors.Is(err, ErrEmpty):
		return Resolution{Reference: ref, Status: StatusAbsent, Err: err}
	default:
		slog.Debug("unparseable analysis payload", "kind", ref.Kind.String(), "error", err)
		return Resolution{Reference: ref, Status: StatusCorrupt, Err: err}
	}
}

func (r *Resolver) cached(ctx context.Context, key string) (*Document, bool) {
	if r.cache == nil {
		return nil, false
	}
	data, ok := r.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("discarding unreadable cached document", "key", key, "error", err)
		return nil, false
	}
	doc.Normalize()
	return &doc, true
}

func (r *Resolver) store(ctx context.Context, key string, doc *Document) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, r.cacheTTL); err != nil {
		slog.Warn("failed to cache resolved document", "key", key, "error", err)
	}
}
