package library

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// seedFile is the layout of a YAML seed file.
type seedFile struct {
	Books []Book `yaml:"books"`
}

// LoadSeed reads the initial books from a YAML file.
//
// The IDs must be unique.
func LoadSeed(path string) ([]Book, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	for i, b := range f.Books {
		if b.BookID == "" {
			return nil, fmt.Errorf("seed file %s: book %d has no book_id", path, i)
		}
		if slices.ContainsFunc(f.Books[:i], func(o Book) bool { return o.BookID.Equal(b.BookID) }) {
			return nil, fmt.Errorf("seed file %s: duplicate book_id %s", path, b.BookID)
		}
	}
	return f.Books, nil
}
