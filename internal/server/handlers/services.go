// Defines shared service dependencies for handlers.

package handlers

import (
	"github.com/maruel/librarydb/internal/library"
	"github.com/maruel/librarydb/internal/storage"
	"github.com/maruel/librarydb/internal/storage/git"
)

// Services holds all service dependencies for handlers.
type Services struct {
	Books   *library.Store
	History *git.Repo // nil when history is disabled
}

// Config holds configuration values needed by handlers.
type Config struct {
	Version string
	Quotas  storage.ServerQuotas
}
