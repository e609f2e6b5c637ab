// Package remoteid normalizes hub, account and project identifiers.
//
// The remote service hands out the same identifier in two spellings: a bare
// dashed-hex UUID (used by the account admin endpoints) and a "b."-prefixed
// form (used by the data management endpoints). ID stores the parsed UUID and
// renders either spelling on demand.
package remoteid

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Prefix is the scheme prefix used by the data management endpoints.
const Prefix = "b."

var validID = regexp.MustCompile(`^(b\.)?[0-9a-fA-F]{8}-([0-9a-fA-F]{4}-){3}[0-9a-fA-F]{12}$`)

// ID is a normalized remote identifier. The zero value is invalid.
type ID struct {
	id uuid.UUID
}

// Parse normalizes raw into an ID. It never fails: anything that does not
// parse becomes the invalid ID, so callers must check IsValid.
func Parse(raw string) ID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ID{}
	}
	if len(raw) >= len(Prefix) && strings.EqualFold(raw[:len(Prefix)], Prefix) {
		raw = raw[len(Prefix):]
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return ID{}
	}
	return ID{id: u}
}

// FromUUID wraps an already parsed UUID.
func FromUUID(u uuid.UUID) ID {
	return ID{id: u}
}

// IsValidString reports whether s is strictly a bare or prefixed identifier.
func IsValidString(s string) bool {
	return validID.MatchString(s)
}

// IsValid reports whether the ID holds a non-empty value.
func (i ID) IsValid() bool {
	return i.id != uuid.Nil
}

// UUID returns the canonical value.
func (i ID) UUID() uuid.UUID {
	return i.id
}

// DM returns the prefixed, lower-cased form ("b.<uuid>").
func (i ID) DM() string {
	return Prefix + i.Bare()
}

// Bare returns the lower-cased form with no prefix.
func (i ID) Bare() string {
	return strings.ToLower(i.id.String())
}

// String returns the bare form.
func (i ID) String() string {
	return i.Bare()
}

// Equal reports whether both IDs hold the same canonical value. Two invalid
// IDs compare equal, the same as ==.
func (i ID) Equal(other ID) bool {
	return i.id == other.id
}

// MarshalText writes the bare form, or nothing for an invalid ID.
func (i ID) MarshalText() ([]byte, error) {
	if !i.IsValid() {
		return []byte{}, nil
	}
	return []byte(i.Bare()), nil
}

// UnmarshalText accepts either spelling. Unparseable text yields the invalid ID.
func (i *ID) UnmarshalText(text []byte) error {
	*i = Parse(string(text))
	return nil
}

// Pair ties an account (hub) to one of its projects.
type Pair struct {
	Account ID `json:"acctID"`
	Project ID `json:"projID"`
}

// NewPair parses both identifiers.
func NewPair(account, project string) Pair {
	return Pair{Account: Parse(account), Project: Parse(project)}
}

// IsValid reports whether both identifiers are valid.
func (p Pair) IsValid() bool {
	return p.Account.IsValid() && p.Project.IsValid()
}
