package handlers

import (
	"context"

	"github.com/maruel/librarydb/internal/server/dto"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	svc     *Services
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(svc *Services, version string) *HealthHandler {
	return &HealthHandler{svc: svc, version: version}
}

// Health reports the server version and the number of stored books. It fails
// when the data file cannot be read.
func (h *HealthHandler) Health(ctx context.Context, _ *dto.HealthRequest) (*dto.HealthResponse, error) {
	books, err := h.svc.Books.List(ctx)
	if err != nil {
		return nil, bookError(err)
	}
	return &dto.HealthResponse{Status: "ok", Version: h.version, Books: len(books)}, nil
}
