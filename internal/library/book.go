// Package library implements the book collection: the record type, the field
// validator and the file-backed store.
package library

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned when no book has the requested ID.
	ErrNotFound = errors.New("book not found")
	// ErrConflict is returned when creating a book whose ID is already used.
	ErrConflict = errors.New("book ID already exists")
)

// ValidationError lists every problem found in a submitted book.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Errors, "; ")
}

// BookID identifies a book. It holds the book_id value exactly as submitted,
// in compact JSON encoding, so any JSON type is accepted and echoed back
// unchanged. The zero value encodes as null.
type BookID string

// StringID returns the BookID of the JSON string s.
func StringID(s string) BookID {
	b, _ := json.Marshal(s)
	return BookID(b)
}

func newBookID(v any) (BookID, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode book_id: %w", err)
	}
	return BookID(b), nil
}

// Matches reports whether id is the JSON string s. IDs of any other JSON type
// never match a path parameter.
func (id BookID) Matches(s string) bool {
	if len(id) == 0 || id[0] != '"' {
		return false
	}
	var v string
	return json.Unmarshal([]byte(id), &v) == nil && v == s
}

// Equal reports whether id and other hold the same scalar value. Objects and
// arrays are never equal to anything, themselves included.
func (id BookID) Equal(other BookID) bool {
	a, ok := id.scalar()
	if !ok {
		return false
	}
	b, ok := other.scalar()
	return ok && a == b
}

func (id BookID) scalar() (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(id), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		return nil, false
	}
	return v, true
}

// MarshalJSON implements json.Marshaler.
func (id BookID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return []byte(id), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *BookID) UnmarshalJSON(b []byte) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return err
	}
	*id = BookID(buf.String())
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (id *BookID) UnmarshalYAML(n *yaml.Node) error {
	var v any
	if err := n.Decode(&v); err != nil {
		return err
	}
	nid, err := newBookID(v)
	if err != nil {
		return err
	}
	*id = nid
	return nil
}

// JSONSchema implements jsonschema.JSONSchema.
func (BookID) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Description: "Unique identifier chosen by the client, of any JSON type"}
}

// Book is a single record of the collection.
type Book struct {
	BookID BookID  `json:"book_id" yaml:"book_id" jsonschema:"description=Unique identifier chosen by the client"`
	Title  string  `json:"title" yaml:"title" jsonschema:"description=Title of the book"`
	Author string  `json:"author" yaml:"author" jsonschema:"description=Author of the book"`
	Genre  string  `json:"genre" yaml:"genre" jsonschema:"description=Genre of the book"`
	Year   float64 `json:"year" yaml:"year" jsonschema:"description=Publication year"`
	Copies float64 `json:"copies" yaml:"copies" jsonschema:"description=Number of copies available"`
}

// BookPatch holds the fields submitted in an update. Nil fields are left
// unchanged.
type BookPatch struct {
	BookID *BookID  `json:"-"`
	Title  *string  `json:"title"`
	Author *string  `json:"author"`
	Genre  *string  `json:"genre"`
	Year   *float64 `json:"year"`
	Copies *float64 `json:"copies"`
}

// Apply merges the submitted fields over b.
//
// book_id is not special-cased: submitting it renames the book.
func (p *BookPatch) Apply(b *Book) {
	if p.BookID != nil {
		b.BookID = *p.BookID
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Genre != nil {
		b.Genre = *p.Genre
	}
	if p.Year != nil {
		b.Year = *p.Year
	}
	if p.Copies != nil {
		b.Copies = *p.Copies
	}
}

// decodeFields converts a validated candidate into out. book_id is left to
// the caller.
func decodeFields(fields map[string]any, out any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode book: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode book: %w", err)
	}
	return nil
}
