package dto

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// --- Common Responses ---

// MessageResponse is a response carrying only a message.
type MessageResponse struct {
	Message string `json:"message"`
}

// --- Book Responses ---

// BookID is a book_id in compact JSON encoding. It can be any JSON value;
// the zero value encodes as null.
type BookID string

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

// Book is the API representation of a book.
type Book struct {
	BookID BookID  `json:"book_id"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Genre  string  `json:"genre"`
	Year   float64 `json:"year"`
	Copies float64 `json:"copies"`
}

// CreatedBook is the response from creating a book. It is sent with
// 201 Created.
type CreatedBook struct {
	Book
}

// HTTPStatus returns the status code of the response.
func (*CreatedBook) HTTPStatus() int {
	return http.StatusCreated
}

// BookList is the response from listing books. It is serialized as a bare
// JSON array.
type BookList []Book

// --- Operations Responses ---

// HealthResponse is the response from the health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Books   int    `json:"books"`
}

// Commit is one change to the data file.
type Commit struct {
	Hash    string `json:"hash"`
	Message string `json:"message"`
	Author  string `json:"author"`
	Date    string `json:"date"`
}

// HistoryResponse lists the changes to the data file, newest first.
type HistoryResponse struct {
	Commits []Commit `json:"commits"`
}
