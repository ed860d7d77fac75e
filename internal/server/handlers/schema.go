package handlers

import (
	"context"

	"github.com/invopop/jsonschema"
	"github.com/maruel/librarydb/internal/jsonldb"
	"github.com/maruel/librarydb/internal/library"
	"github.com/maruel/librarydb/internal/server/dto"
)

// Schema returns the JSON Schema of a book.
func Schema(_ context.Context, _ *dto.SchemaRequest) (*jsonschema.Schema, error) {
	return jsonldb.Schema[library.Book](), nil
}
