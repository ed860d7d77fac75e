package server

import (
	"testing"

	"github.com/maruel/librarydb/internal/server/dto"
)

func TestAcceptsBody(t *testing.T) {
	type tagged struct {
		ID    string `path:"id"`
		Limit int    `query:"limit"`
		Skip  string `json:"-"`
		note  string
	}
	type plain struct {
		ID   string `path:"id"`
		Name string `json:"name"`
	}
	tests := []struct {
		name  string
		input any
		want  bool
	}{
		{"create", &dto.CreateBookRequest{}, true},
		{"update", &dto.UpdateBookRequest{}, true},
		{"delete", &dto.DeleteBookRequest{}, false},
		{"empty", &dto.ListBooksRequest{}, false},
		{"only tagged fields", &tagged{}, false},
		{"body field", &plain{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := acceptsBody(tt.input); got != tt.want {
				t.Errorf("acceptsBody() = %t, want %t", got, tt.want)
			}
		})
	}
}
