package handlers

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/maruel/librarydb/internal/library"
	"github.com/maruel/librarydb/internal/server/dto"
)

// testServices returns Services backed by an empty data file.
func testServices(t *testing.T) *Services {
	t.Helper()
	store := library.NewStore(filepath.Join(t.TempDir(), "books.json"))
	if _, err := store.Init(nil); err != nil {
		t.Fatal(err)
	}
	return &Services{Books: store}
}

func fields(t *testing.T, s string) dto.BookFields {
	t.Helper()
	var f dto.BookFields
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		t.Fatal(err)
	}
	return f
}

// statusOf returns the HTTP status carried by err, or 0.
func statusOf(err error) int {
	var ews dto.ErrorWithStatus
	if errors.As(err, &ews) {
		return ews.StatusCode()
	}
	return 0
}
