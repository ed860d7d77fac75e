package jsonldb

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
)

type testRow struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func setupTable(t *testing.T) (*Table[testRow], string) {
	path := filepath.Join(t.TempDir(), "rows.json")
	table := NewTable[testRow](path)
	if _, err := table.Init(nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return table, path
}

func TestTable(t *testing.T) {
	t.Run("Init", func(t *testing.T) {
		t.Run("creates file with empty array", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", "rows.json")
			table := NewTable[testRow](path)
			created, err := table.Init(nil)
			if err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			if !created {
				t.Error("Init() created = false, want true")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if got := string(data); got != "[]\n" {
				t.Errorf("file content = %q, want %q", got, "[]\n")
			}
		})
		t.Run("seeds rows", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rows.json")
			table := NewTable[testRow](path)
			seed := []testRow{{1, "One"}, {2, "Two"}}
			if _, err := table.Init(seed); err != nil {
				t.Fatal(err)
			}
			rows, err := table.Load()
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(rows, seed) {
				t.Errorf("Load() = %v, want %v", rows, seed)
			}
		})
		t.Run("keeps existing file", func(t *testing.T) {
			table, path := setupTable(t)
			if err := table.save([]testRow{{1, "One"}}); err != nil {
				t.Fatal(err)
			}
			created, err := table.Init([]testRow{{9, "Nine"}})
			if err != nil {
				t.Fatal(err)
			}
			if created {
				t.Error("Init() created = true, want false")
			}
			rows, err := NewTable[testRow](path).Load()
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != 1 || rows[0].ID != 1 {
				t.Errorf("Load() = %v, want the original row", rows)
			}
		})
	})

	t.Run("Load", func(t *testing.T) {
		t.Run("errors", func(t *testing.T) {
			tests := []struct {
				name    string
				content *string
			}{
				{"missing file", nil},
				{"malformed json", ptr("[{")},
				{"not an array", ptr(`{"id": 1}`)},
				{"empty file", ptr("")},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					path := filepath.Join(t.TempDir(), "rows.json")
					if tt.content != nil {
						if err := os.WriteFile(path, []byte(*tt.content), 0o644); err != nil {
							t.Fatal(err)
						}
					}
					_, err := NewTable[testRow](path).Load()
					if !errors.Is(err, ErrStorage) {
						t.Errorf("Load() error = %v, want ErrStorage", err)
					}
				})
			}
		})
		t.Run("null is empty", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rows.json")
			if err := os.WriteFile(path, []byte("null"), 0o644); err != nil {
				t.Fatal(err)
			}
			rows, err := NewTable[testRow](path).Load()
			if err != nil {
				t.Fatal(err)
			}
			if rows == nil || len(rows) != 0 {
				t.Errorf("Load() = %#v, want empty non-nil slice", rows)
			}
		})
	})

	t.Run("save", func(t *testing.T) {
		t.Run("pretty prints", func(t *testing.T) {
			table, path := setupTable(t)
			if err := table.save([]testRow{{1, "One"}}); err != nil {
				t.Fatal(err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			want := "[\n  {\n    \"id\": 1,\n    \"name\": \"One\"\n  }\n]\n"
			if string(data) != want {
				t.Errorf("file content = %q, want %q", data, want)
			}
		})
		t.Run("leaves no temporary file", func(t *testing.T) {
			table, path := setupTable(t)
			if err := table.save([]testRow{{1, "One"}}); err != nil {
				t.Fatal(err)
			}
			entries, err := os.ReadDir(filepath.Dir(path))
			if err != nil {
				t.Fatal(err)
			}
			for _, e := range entries {
				if strings.Contains(e.Name(), ".tmp") {
					t.Errorf("unexpected temporary file %s", e.Name())
				}
			}
		})
		t.Run("missing directory", func(t *testing.T) {
			table := NewTable[testRow](filepath.Join(t.TempDir(), "gone", "rows.json"))
			if err := table.save(nil); !errors.Is(err, ErrStorage) {
				t.Errorf("save() error = %v, want ErrStorage", err)
			}
		})
	})

	t.Run("Modify", func(t *testing.T) {
		t.Run("appends", func(t *testing.T) {
			table, _ := setupTable(t)
			err := table.Modify(func(rows []testRow) ([]testRow, error) {
				return append(rows, testRow{1, "One"}), nil
			})
			if err != nil {
				t.Fatal(err)
			}
			rows, err := table.Load()
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != 1 {
				t.Errorf("len = %d, want 1", len(rows))
			}
		})
		t.Run("error skips save", func(t *testing.T) {
			table, _ := setupTable(t)
			errStop := errors.New("stop")
			err := table.Modify(func(rows []testRow) ([]testRow, error) {
				return append(rows, testRow{1, "One"}), errStop
			})
			if !errors.Is(err, errStop) {
				t.Fatalf("Modify() error = %v, want %v", err, errStop)
			}
			rows, err := table.Load()
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != 0 {
				t.Errorf("len = %d, want 0", len(rows))
			}
		})
		t.Run("concurrent writers", func(t *testing.T) {
			table, _ := setupTable(t)
			const n = 50
			var wg sync.WaitGroup
			for i := range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := table.Modify(func(rows []testRow) ([]testRow, error) {
						return append(rows, testRow{ID: i}), nil
					})
					if err != nil {
						t.Errorf("Modify() error = %v", err)
					}
				}()
			}
			wg.Wait()
			rows, err := table.Load()
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != n {
				t.Errorf("len = %d, want %d (lost updates)", len(rows), n)
			}
		})
		t.Run("missing file", func(t *testing.T) {
			table := NewTable[testRow](filepath.Join(t.TempDir(), "rows.json"))
			called := false
			err := table.Modify(func(rows []testRow) ([]testRow, error) {
				called = true
				return rows, nil
			})
			if !errors.Is(err, ErrStorage) {
				t.Errorf("Modify() error = %v, want ErrStorage", err)
			}
			if called {
				t.Error("fn should not be called when load fails")
			}
		})
	})
}

func ptr[T any](v T) *T {
	return &v
}
