package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/maruel/librarydb/internal/jsonldb"
)

const validBook = `{"book_id":"b1","title":"T","author":"A","genre":"G","year":2000,"copies":3}`

func setupStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "data.json"))
	if _, err := s.Init(nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return s
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	want := Book{BookID: StringID("b1"), Title: "T", Author: "A", Genre: "G", Year: 2000, Copies: 3}

	t.Run("Create", func(t *testing.T) {
		t.Run("valid", func(t *testing.T) {
			s := setupStore(t)
			got, err := s.Create(ctx, decode(t, validBook))
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if got != want {
				t.Errorf("Create() = %+v, want %+v", got, want)
			}
			books, err := s.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(books, []Book{want}) {
				t.Errorf("List() = %+v", books)
			}
		})
		t.Run("book_id of any type", func(t *testing.T) {
			tests := []struct {
				name string
				id   string
			}{
				{"number", `7`},
				{"float", `7.5`},
				{"null", `null`},
				{"bool", `true`},
				{"object", `{"isbn":"x"}`},
				{"array", `[1,2]`},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					s := setupStore(t)
					got, err := s.Create(ctx, decode(t, `{"book_id":`+tt.id+`,"title":"T","author":"A","genre":"G","year":1,"copies":1}`))
					if err != nil {
						t.Fatalf("Create() error = %v", err)
					}
					if got.BookID != BookID(tt.id) {
						t.Errorf("BookID = %s, want %s", got.BookID, tt.id)
					}
					books, err := s.List(ctx)
					if err != nil {
						t.Fatal(err)
					}
					if len(books) != 1 || books[0].BookID != BookID(tt.id) {
						t.Errorf("List() = %+v", books)
					}
				})
			}
		})
		t.Run("numeric book_id is not a path match", func(t *testing.T) {
			s := setupStore(t)
			if _, err := s.Create(ctx, decode(t, `{"book_id":7,"title":"T","author":"A","genre":"G","year":1,"copies":1}`)); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Get(ctx, "7"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(7) error = %v, want ErrNotFound", err)
			}
			// The string "7" is a different ID.
			if _, err := s.Create(ctx, decode(t, `{"book_id":"7","title":"T","author":"A","genre":"G","year":1,"copies":1}`)); err != nil {
				t.Errorf("Create(\"7\") error = %v", err)
			}
		})
		t.Run("errors", func(t *testing.T) {
			tests := []struct {
				name     string
				body     string
				wantErrs []string
			}{
				{"missing fields", `{"book_id":"b1"}`, []string{
					"Missing field: title", "Missing field: author", "Missing field: genre",
					"Missing field: year", "Missing field: copies",
				}},
				{"bad year", `{"book_id":"b1","title":"T","author":"A","genre":"G","year":"x","copies":3}`, []string{"Year must be a number"}},
				{"year out of range", `{"book_id":"b1","title":"T","author":"A","genre":"G","year":1e400,"copies":3}`, []string{"Year must be a number"}},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					s := setupStore(t)
					_, err := s.Create(ctx, decode(t, tt.body))
					var verr *ValidationError
					if !errors.As(err, &verr) {
						t.Fatalf("Create() error = %v, want *ValidationError", err)
					}
					if !slices.Equal(verr.Errors, tt.wantErrs) {
						t.Errorf("Errors = %q, want %q", verr.Errors, tt.wantErrs)
					}
					books, err := s.List(ctx)
					if err != nil {
						t.Fatal(err)
					}
					if len(books) != 0 {
						t.Errorf("List() = %+v, want empty", books)
					}
				})
			}
		})
		t.Run("conflict", func(t *testing.T) {
			s := setupStore(t)
			if _, err := s.Create(ctx, decode(t, validBook)); err != nil {
				t.Fatal(err)
			}
			_, err := s.Create(ctx, decode(t, `{"book_id":"b1","title":"Other","author":"A","genre":"G","year":1,"copies":1}`))
			if !errors.Is(err, ErrConflict) {
				t.Fatalf("Create() error = %v, want ErrConflict", err)
			}
			books, err := s.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(books, []Book{want}) {
				t.Errorf("collection changed: %+v", books)
			}
		})
		t.Run("conflict by value", func(t *testing.T) {
			tests := []struct {
				name     string
				first    string
				second   string
				conflict bool
			}{
				{"same number", `42`, `42.0`, true},
				{"null", `null`, `null`, true},
				{"number and string", `42`, `"42"`, false},
				{"objects", `{"a":1}`, `{"a":1}`, false},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					s := setupStore(t)
					body := `,"title":"T","author":"A","genre":"G","year":1,"copies":1}`
					if _, err := s.Create(ctx, decode(t, `{"book_id":`+tt.first+body)); err != nil {
						t.Fatal(err)
					}
					_, err := s.Create(ctx, decode(t, `{"book_id":`+tt.second+body))
					if got := errors.Is(err, ErrConflict); got != tt.conflict {
						t.Errorf("Create() error = %v, want conflict %t", err, tt.conflict)
					}
				})
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		s := setupStore(t)
		if _, err := s.Create(ctx, decode(t, validBook)); err != nil {
			t.Fatal(err)
		}
		got, err := s.Get(ctx, "b1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != want {
			t.Errorf("Get() = %+v, want %+v", got, want)
		}
		if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("partial", func(t *testing.T) {
			s := setupStore(t)
			if _, err := s.Create(ctx, decode(t, validBook)); err != nil {
				t.Fatal(err)
			}
			got, err := s.Update(ctx, "b1", decode(t, `{"title":"X"}`))
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			exp := want
			exp.Title = "X"
			if got != exp {
				t.Errorf("Update() = %+v, want %+v", got, exp)
			}
			stored, err := s.Get(ctx, "b1")
			if err != nil {
				t.Fatal(err)
			}
			if stored != exp {
				t.Errorf("stored = %+v, want %+v", stored, exp)
			}
		})
		t.Run("keeps order", func(t *testing.T) {
			s := setupStore(t)
			for _, id := range []string{"a", "b", "c"} {
				body := `{"book_id":"` + id + `","title":"T","author":"A","genre":"G","year":1,"copies":1}`
				if _, err := s.Create(ctx, decode(t, body)); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := s.Update(ctx, "b", decode(t, `{"copies":9}`)); err != nil {
				t.Fatal(err)
			}
			books, err := s.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			var ids []BookID
			for _, b := range books {
				ids = append(ids, b.BookID)
			}
			if !slices.Equal(ids, []BookID{StringID("a"), StringID("b"), StringID("c")}) {
				t.Errorf("order = %q", ids)
			}
		})
		t.Run("renames", func(t *testing.T) {
			s := setupStore(t)
			if _, err := s.Create(ctx, decode(t, validBook)); err != nil {
				t.Fatal(err)
			}
			got, err := s.Update(ctx, "b1", decode(t, `{"book_id":"b2"}`))
			if err != nil {
				t.Fatal(err)
			}
			if got.BookID != StringID("b2") {
				t.Errorf("BookID = %s, want b2", got.BookID)
			}
			if _, err := s.Get(ctx, "b1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(b1) error = %v, want ErrNotFound", err)
			}
		})
		t.Run("book_id set to null", func(t *testing.T) {
			s := setupStore(t)
			if _, err := s.Create(ctx, decode(t, validBook)); err != nil {
				t.Fatal(err)
			}
			got, err := s.Update(ctx, "b1", decode(t, `{"book_id":null}`))
			if err != nil {
				t.Fatal(err)
			}
			if got.BookID != "null" {
				t.Errorf("BookID = %s, want null", got.BookID)
			}
		})
		t.Run("not found before validation", func(t *testing.T) {
			s := setupStore(t)
			_, err := s.Update(ctx, "nope", decode(t, `{"year":"x"}`))
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Update() error = %v, want ErrNotFound", err)
			}
		})
		t.Run("invalid", func(t *testing.T) {
			s := setupStore(t)
			if _, err := s.Create(ctx, decode(t, validBook)); err != nil {
				t.Fatal(err)
			}
			_, err := s.Update(ctx, "b1", decode(t, `{"year":"x","title":"Y"}`))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Update() error = %v, want *ValidationError", err)
			}
			stored, err := s.Get(ctx, "b1")
			if err != nil {
				t.Fatal(err)
			}
			if stored != want {
				t.Errorf("stored = %+v, want unchanged %+v", stored, want)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		s := setupStore(t)
		if _, err := s.Create(ctx, decode(t, validBook)); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, "b1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Get(ctx, "b1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, "b1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Delete() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("storage errors", func(t *testing.T) {
		s := setupStore(t)
		if err := os.Remove(s.Path()); err != nil {
			t.Fatal(err)
		}
		if _, err := s.List(ctx); !errors.Is(err, jsonldb.ErrStorage) {
			t.Errorf("List() error = %v, want ErrStorage", err)
		}
		if _, err := s.Create(ctx, decode(t, validBook)); !errors.Is(err, jsonldb.ErrStorage) {
			t.Errorf("Create() error = %v, want ErrStorage", err)
		}
	})
}
