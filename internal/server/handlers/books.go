// Handles the book CRUD endpoints.

package handlers

import (
	"context"

	"github.com/maruel/librarydb/internal/server/dto"
)

// BookHandler handles book HTTP requests.
type BookHandler struct {
	svc *Services
}

// NewBookHandler creates a new book handler.
func NewBookHandler(svc *Services) *BookHandler {
	return &BookHandler{svc: svc}
}

// ListBooks returns every book in insertion order.
func (h *BookHandler) ListBooks(ctx context.Context, _ *dto.ListBooksRequest) (*dto.BookList, error) {
	books, err := h.svc.Books.List(ctx)
	if err != nil {
		return nil, bookError(err)
	}
	out := booksToDTO(books)
	return &out, nil
}

// GetBook returns the book with the requested ID.
func (h *BookHandler) GetBook(ctx context.Context, req *dto.GetBookRequest) (*dto.Book, error) {
	b, err := h.svc.Books.Get(ctx, req.ID)
	if err != nil {
		return nil, bookError(err)
	}
	out := bookToDTO(&b)
	return &out, nil
}

// CreateBook stores a new book.
func (h *BookHandler) CreateBook(ctx context.Context, req *dto.CreateBookRequest) (*dto.CreatedBook, error) {
	b, err := h.svc.Books.Create(ctx, req.Fields)
	if err != nil {
		return nil, bookError(err)
	}
	return &dto.CreatedBook{Book: bookToDTO(&b)}, nil
}

// UpdateBook merges the submitted fields into an existing book.
func (h *BookHandler) UpdateBook(ctx context.Context, req *dto.UpdateBookRequest) (*dto.Book, error) {
	b, err := h.svc.Books.Update(ctx, req.ID, req.Fields)
	if err != nil {
		return nil, bookError(err)
	}
	out := bookToDTO(&b)
	return &out, nil
}

// DeleteBook removes the book with the requested ID.
func (h *BookHandler) DeleteBook(ctx context.Context, req *dto.DeleteBookRequest) (*dto.MessageResponse, error) {
	if err := h.svc.Books.Delete(ctx, req.ID); err != nil {
		return nil, bookError(err)
	}
	return &dto.MessageResponse{Message: "Book deleted successfully"}, nil
}
