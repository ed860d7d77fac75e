package handlers

import (
	"context"
	"net/http"

	"github.com/maruel/librarydb/internal/server/dto"
)

// HistoryHandler lists the commits touching the data file.
type HistoryHandler struct {
	svc *Services
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(svc *Services) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

// History returns the most recent changes to the data file, newest first.
func (h *HistoryHandler) History(ctx context.Context, req *dto.HistoryRequest) (*dto.HistoryResponse, error) {
	if h.svc.History == nil {
		return nil, dto.NewAPIError(http.StatusNotFound, dto.ErrorCodeNotFound, "History is disabled")
	}
	commits, err := h.svc.History.History(ctx, h.svc.Books.Path(), req.Limit)
	if err != nil {
		return nil, dto.InternalWithError("Failed to read history", err)
	}
	return &dto.HistoryResponse{Commits: commitsToDTO(commits)}, nil
}
