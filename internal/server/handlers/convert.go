// Converts library types to API responses.

package handlers

import (
	"time"

	"github.com/maruel/librarydb/internal/library"
	"github.com/maruel/librarydb/internal/server/dto"
	"github.com/maruel/librarydb/internal/storage/git"
)

func bookToDTO(b *library.Book) dto.Book {
	return dto.Book{
		BookID: dto.BookID(b.BookID),
		Title:  b.Title,
		Author: b.Author,
		Genre:  b.Genre,
		Year:   b.Year,
		Copies: b.Copies,
	}
}

// booksToDTO never returns nil so that an empty collection encodes as [].
func booksToDTO(books []library.Book) dto.BookList {
	out := make(dto.BookList, len(books))
	for i := range books {
		out[i] = bookToDTO(&books[i])
	}
	return out
}

func commitsToDTO(commits []*git.Commit) []dto.Commit {
	out := make([]dto.Commit, len(commits))
	for i, c := range commits {
		out[i] = dto.Commit{
			Hash:    c.Hash,
			Message: c.Message,
			Author:  c.Author,
			Date:    c.Date.UTC().Format(time.RFC3339),
		}
	}
	return out
}
