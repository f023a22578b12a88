package models

import (
	"errors"
	"strings"
	"unicode/utf8"
)

type PartyKind string

const (
	PartyKindStudent PartyKind = "student"
	PartyKindAlumni  PartyKind = "alumni"
)

const MaxPartyIDLength = 128

var (
	ErrInvalidPartyKind = errors.New("invalid party kind")
	ErrInvalidPartyID   = errors.New("invalid party id")
)

// ParsePartyKind only accepts the canonical lowercase spellings.
func ParsePartyKind(s string) (PartyKind, error) {
	switch PartyKind(s) {
	case PartyKindStudent, PartyKindAlumni:
		return PartyKind(s), nil
	default:
		return "", ErrInvalidPartyKind
	}
}

func (k PartyKind) Valid() bool {
	return k == PartyKindStudent || k == PartyKindAlumni
}

// PartyRef identifies one side of a relationship. A student and an alumnus
// sharing the same underlying id are different parties.
type PartyRef struct {
	ID   string    `json:"id"`
	Kind PartyKind `json:"kind"`
}

func NewPartyRef(id, kind string) (PartyRef, error) {
	k, err := ParsePartyKind(kind)
	if err != nil {
		return PartyRef{}, err
	}
	ref := PartyRef{ID: id, Kind: k}
	if err := ref.Validate(); err != nil {
		return PartyRef{}, err
	}
	return ref, nil
}

func (p PartyRef) Validate() error {
	if !p.Kind.Valid() {
		return ErrInvalidPartyKind
	}
	if strings.TrimSpace(p.ID) == "" || len(p.ID) > MaxPartyIDLength {
		return ErrInvalidPartyID
	}
	// Postgres text cannot hold NUL or invalid UTF-8.
	if !utf8.ValidString(p.ID) || strings.ContainsRune(p.ID, 0) {
		return ErrInvalidPartyID
	}
	return nil
}

func (p PartyRef) Equal(other PartyRef) bool {
	return p.ID == other.ID && p.Kind == other.Kind
}

func (p PartyRef) Key() string {
	return string(p.Kind) + ":" + p.ID
}

func (p PartyRef) String() string {
	return p.Key()
}

func (p PartyRef) less(other PartyRef) bool {
	if p.Kind != other.Kind {
		return p.Kind < other.Kind
	}
	return p.ID < other.ID
}

// CanonicalPair orders an unordered pair by (kind, id) so that both
// argument orders map to the same storage key.
func CanonicalPair(a, b PartyRef) (lo, hi PartyRef) {
	if b.less(a) {
		return b, a
	}
	return a, b
}
