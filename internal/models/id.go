package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind is the entity prefix carried by an ID.
type Kind string

const (
	KindSubject      Kind = "sub"
	KindSlot         Kind = "slot"
	KindAvailability Kind = "av"
	KindSchedule     Kind = "sch"
)

// ErrInvalidID is returned when an identifier cannot be parsed.
var ErrInvalidID = errors.New("invalid identifier")

// ID identifies a persisted entity as <kind>_<uuid>. The zero ID means "none" and is
// stored as NULL.
type ID struct {
	kind Kind
	uuid uuid.UUID
}

// NewID allocates a random identifier of the given kind.
func NewID(kind Kind) ID {
	return ID{kind: kind, uuid: uuid.New()}
}

// ParseID parses raw and checks that it carries kind.
func ParseID(kind Kind, raw string) (ID, error) {
	id, err := parseAny(raw)
	if err != nil {
		return ID{}, err
	}
	if id.kind != kind {
		return ID{}, fmt.Errorf("%w: %q is not a %s id", ErrInvalidID, raw, kind)
	}
	return id, nil
}

// MustParseID is ParseID for constants and tests.
func MustParseID(kind Kind, raw string) ID {
	id, err := ParseID(kind, raw)
	if err != nil {
		panic(err)
	}
	return id
}

func parseAny(raw string) (ID, error) {
	prefix, rest, ok := strings.Cut(strings.TrimSpace(raw), "_")
	if !ok {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	kind := Kind(prefix)
	switch kind {
	case KindSubject, KindSlot, KindAvailability, KindSchedule:
	default:
		return ID{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidID, prefix)
	}
	u, err := uuid.Parse(rest)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q: %v", ErrInvalidID, raw, err)
	}
	return ID{kind: kind, uuid: u}, nil
}

// Kind returns the entity kind.
func (id ID) Kind() Kind { return id.kind }

// IsZero reports whether id is unset.
func (id ID) IsZero() bool { return id == ID{} }

func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return string(id.kind) + "_" + id.uuid.String()
}

// Less orders identifiers by their string form.
func (id ID) Less(other ID) bool { return id.String() < other.String() }

// MarshalText renders map keys.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = ID{}
		return nil
	}
	parsed, err := parseAny(string(text))
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
		*id = ID{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return id.UnmarshalText([]byte(raw))
}

// Scan implements sql.Scanner.
func (id *ID) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*id = ID{}
		return nil
	case string:
		return id.UnmarshalText([]byte(v))
	case []byte:
		return id.UnmarshalText(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidID, src)
	}
}

// Value implements driver.Valuer.
func (id ID) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	return id.String(), nil
}
