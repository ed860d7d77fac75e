package library

import (
	"context"
	"fmt"
	"slices"

	"github.com/maruel/librarydb/internal/jsonldb"
)

// Store is the book collection persisted in a single JSON file.
//
// Each call reads the whole file; mutations rewrite it entirely. Mutations
// are serialized within the process.
type Store struct {
	table *jsonldb.Table[Book]
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{table: jsonldb.NewTable[Book](path)}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.table.Path()
}

// Init creates the backing file with seed if it does not exist. It returns
// true if the file was created.
func (s *Store) Init(seed []Book) (bool, error) {
	return s.table.Init(seed)
}

// List returns every book in insertion order.
func (s *Store) List(_ context.Context) ([]Book, error) {
	return s.table.Load()
}

// Get returns the first book whose ID is the JSON string id.
func (s *Store) Get(_ context.Context, id string) (Book, error) {
	books, err := s.table.Load()
	if err != nil {
		return Book{}, err
	}
	if i := indexOf(books, id); i >= 0 {
		return books[i], nil
	}
	return Book{}, fmt.Errorf("%q: %w", id, ErrNotFound)
}

// Create validates fields as a complete book and appends it.
//
// It returns a *ValidationError when fields is invalid and ErrConflict when
// another book has the same scalar ID.
func (s *Store) Create(_ context.Context, fields map[string]any) (Book, error) {
	if errs := Validate(fields, true); len(errs) != 0 {
		return Book{}, &ValidationError{Errors: errs}
	}
	var b Book
	if err := decodeFields(fields, &b); err != nil {
		return Book{}, err
	}
	id, err := newBookID(fields["book_id"])
	if err != nil {
		return Book{}, err
	}
	b.BookID = id
	err = s.table.Modify(func(books []Book) ([]Book, error) {
		if slices.ContainsFunc(books, func(o Book) bool { return o.BookID.Equal(id) }) {
			return nil, fmt.Errorf("%s: %w", id, ErrConflict)
		}
		return append(books, b), nil
	})
	if err != nil {
		return Book{}, err
	}
	return b, nil
}

// Update merges fields over the book with the given ID.
//
// The lookup happens before validation: an unknown ID yields ErrNotFound even
// when fields is invalid.
func (s *Store) Update(_ context.Context, id string, fields map[string]any) (Book, error) {
	var updated Book
	err := s.table.Modify(func(books []Book) ([]Book, error) {
		i := indexOf(books, id)
		if i < 0 {
			return nil, fmt.Errorf("%q: %w", id, ErrNotFound)
		}
		if errs := Validate(fields, false); len(errs) != 0 {
			return nil, &ValidationError{Errors: errs}
		}
		var p BookPatch
		if err := decodeFields(fields, &p); err != nil {
			return nil, err
		}
		if v, ok := fields["book_id"]; ok {
			nid, err := newBookID(v)
			if err != nil {
				return nil, err
			}
			p.BookID = &nid
		}
		p.Apply(&books[i])
		updated = books[i]
		return books, nil
	})
	if err != nil {
		return Book{}, err
	}
	return updated, nil
}

// Delete removes every book whose ID is the JSON string id.
func (s *Store) Delete(_ context.Context, id string) error {
	return s.table.Modify(func(books []Book) ([]Book, error) {
		n := len(books)
		books = slices.DeleteFunc(books, func(b Book) bool { return b.BookID.Matches(id) })
		if len(books) == n {
			return nil, fmt.Errorf("%q: %w", id, ErrNotFound)
		}
		return books, nil
	})
}

func indexOf(books []Book, id string) int {
	return slices.IndexFunc(books, func(b Book) bool { return b.BookID.Matches(id) })
}
