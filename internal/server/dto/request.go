package dto

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNotObject is returned when a book payload is valid JSON but not an
// object.
var ErrNotObject = errors.New("request body must be a JSON object")

// BookFields is a book payload kept as a decoded JSON object so that the
// presence and JSON type of each field can be checked. Numbers are decoded as
// json.Number.
type BookFields map[string]any

// UnmarshalJSON implements json.Unmarshaler.
func (f *BookFields) UnmarshalJSON(b []byte) error {
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	var v any
	if err := d.Decode(&v); err != nil {
		return err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return ErrNotObject
	}
	*f = m
	return nil
}

// --- Books ---

// ListBooksRequest is a request to list every book.
type ListBooksRequest struct{}

// Validate is a no-op for ListBooksRequest.
func (r *ListBooksRequest) Validate() error {
	return nil
}

// GetBookRequest is a request to get a single book.
type GetBookRequest struct {
	ID string `path:"id"`
}

// Validate validates the get book request fields.
func (r *GetBookRequest) Validate() error {
	if r.ID == "" {
		return BadRequest("Book ID is required")
	}
	return nil
}

// CreateBookRequest is a request to create a book. The body is the book
// itself.
//
// Field checks are done by the library so that every problem is reported at
// once.
type CreateBookRequest struct {
	Fields BookFields
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *CreateBookRequest) UnmarshalJSON(b []byte) error {
	return r.Fields.UnmarshalJSON(b)
}

// Validate is a no-op for CreateBookRequest.
func (r *CreateBookRequest) Validate() error {
	return nil
}

// UpdateBookRequest is a request to update some fields of a book. The body
// holds only the fields to change.
type UpdateBookRequest struct {
	ID     string `path:"id"`
	Fields BookFields
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *UpdateBookRequest) UnmarshalJSON(b []byte) error {
	return r.Fields.UnmarshalJSON(b)
}

// Validate validates the update book request fields.
func (r *UpdateBookRequest) Validate() error {
	if r.ID == "" {
		return BadRequest("Book ID is required")
	}
	return nil
}

// DeleteBookRequest is a request to delete a book.
type DeleteBookRequest struct {
	ID string `path:"id"`
}

// Validate validates the delete book request fields.
func (r *DeleteBookRequest) Validate() error {
	if r.ID == "" {
		return BadRequest("Book ID is required")
	}
	return nil
}

// --- Operations ---

// HealthRequest is a request to check server health.
type HealthRequest struct{}

// Validate is a no-op for HealthRequest.
func (r *HealthRequest) Validate() error {
	return nil
}

// SchemaRequest is a request for the JSON Schema of a book.
type SchemaRequest struct{}

// Validate is a no-op for SchemaRequest.
func (r *SchemaRequest) Validate() error {
	return nil
}

// MaxHistoryLimit caps the number of commits returned by one history request.
const MaxHistoryLimit = 1000

// HistoryRequest is a request for the change history of the data file.
type HistoryRequest struct {
	Limit int `query:"limit"`
}

// Validate validates the history request fields.
func (r *HistoryRequest) Validate() error {
	if r.Limit < 0 {
		return BadRequest("limit must be non-negative")
	}
	if r.Limit > MaxHistoryLimit {
		return BadRequest("limit must be at most 1000")
	}
	return nil
}
