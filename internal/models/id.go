package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID is the canonical identifier for every persisted entity. Two IDs are equal
// exactly when they name the same entity, whatever textual form they were parsed from.
type ID uuid.UUID

// NilID is the zero identifier and means "absent".
var NilID ID

// NewID returns a fresh random identifier.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID accepts any representation understood by uuid.Parse (case-insensitive hex,
// optional braces or urn:uuid: prefix). The nil UUID is rejected.
func ParseID(s string) (ID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return NilID, fmt.Errorf("parse id %q: %w", s, err)
	}
	id := ID(parsed)
	if id.IsZero() {
		return NilID, fmt.Errorf("parse id %q: nil identifier", s)
	}
	return id, nil
}

// MustParseID is ParseID for constants in tests and seeds.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool {
	return id == NilID
}

// Equal reports whether both identifiers name the same entity.
func (id ID) Equal(other ID) bool {
	return id == other
}

// String returns the canonical lower-case hyphenated form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(data []byte) error {
	parsed, err := ParseID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(id.String())
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = NilID
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return id.UnmarshalText([]byte(s))
}

// Value implements driver.Valuer so IDs bind directly as UUID query arguments.
func (id ID) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	return id.String(), nil
}

// Scan implements sql.Scanner for UUID columns.
func (id *ID) Scan(src any) error {
	var u uuid.UUID
	if err := u.Scan(src); err != nil {
		return fmt.Errorf("scan id: %w", err)
	}
	*id = ID(u)
	return nil
}
