package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content fingerprint used for cache keys.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Kind identifies the category of a document.
type Kind string

const (
	// KindProtocol is a hazard protocol from the emergency guidebook.
	KindProtocol Kind = "protocol"
	// KindIncident is a historical incident report.
	KindIncident Kind = "incident"
)

// Kinds lists every document kind in canonical corpus order.
var Kinds = []Kind{KindProtocol, KindIncident}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if err := ValidateKind(k); err != nil {
		return "", err
	}
	return k, nil
}

// Well-known metadata keys. Metadata is passed through untouched by scoring.
const (
	MetaSeverity            = "severity"
	MetaHazardType          = "hazard_type"
	MetaDate                = "date"
	MetaLocation            = "location"
	MetaResponseTimeMinutes = "response_time_minutes"
	MetaDescription         = "description"
	MetaResolution          = "resolution"
	MetaProtocols           = "protocols"
	MetaEmergencyResponse   = "emergency_response"
	MetaCategory            = "category"
	MetaSource              = "source"
)

// Ref identifies a document. IDs are unique per kind, not globally.
type Ref struct {
	Kind Kind
	ID   string
}

func (r Ref) String() string {
	return string(r.Kind) + "/" + r.ID
}

// Document is a unit of retrievable safety content.
// Documents are treated as immutable once handed to an index.
type Document struct {
	ID       string
	Kind     Kind
	Title    string
	Body     string            // All searchable free text for the kind
	Metadata map[string]string // Kind-specific passthrough fields
}

// Ref returns the document's identity.
func (d *Document) Ref() Ref {
	return Ref{Kind: d.Kind, ID: d.ID}
}

// SearchText returns the text both the lexical and embedding profiles are built from.
func (d *Document) SearchText() string {
	return d.Title + " " + d.Body
}

// Meta returns a metadata value or the empty string.
func (d *Document) Meta(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// Strategy names the scoring strategy that produced a result.
type Strategy string

const (
	StrategyLexical   Strategy = "lexical"
	StrategyEmbedding Strategy = "embedding"
)

// ScoredResult is produced fresh per query and never stored.
type ScoredResult struct {
	Document     *Document
	Score        float64
	MatchedTerms []string // Sorted query tokens present in the document
	Snippet      string
	Strategy     Strategy
}

// Kind is shorthand for the underlying document's kind.
func (r *ScoredResult) Kind() Kind {
	return r.Document.Kind
}

// Standards holds industry response-time benchmarks keyed by hazard type.
type Standards struct {
	AverageResponseMinutes map[string]float64
	UpdatedAt              time.Time
}

// Lookup returns the standard for a hazard type.
func (s *Standards) Lookup(hazardType string) (float64, bool) {
	if s == nil || s.AverageResponseMinutes == nil {
		return 0, false
	}
	v, ok := s.AverageResponseMinutes[hazardType]
	return v, ok
}
