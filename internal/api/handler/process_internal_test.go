package handler

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not multipart", http.ErrNotMultipart, http.StatusBadRequest},
		{"missing boundary", http.ErrMissingBoundary, http.StatusBadRequest},
		{"missing file", http.ErrMissingFile, http.StatusBadRequest},
		{"truncated body", fmt.Errorf("multipart: NextPart: %w", io.EOF), http.StatusBadRequest},
		{"malformed part", errors.New(`multipart: expecting a new Part; got line "junk"`), http.StatusBadRequest},
		{"body over limit", &http.MaxBytesError{Limit: 1 << 20}, http.StatusRequestEntityTooLarge},
		{"form over limit", multipart.ErrMessageTooLarge, http.StatusRequestEntityTooLarge},
		{"temp file", &fs.PathError{Op: "open", Path: "/tmp/multipart-123", Err: errors.New("no space left on device")}, http.StatusInternalServerError},
		{"wrapped temp file", fmt.Errorf("spool: %w", &fs.PathError{Op: "write", Path: "/tmp/multipart-123", Err: io.ErrShortWrite}), http.StatusInternalServerError},
		{"unknown", errors.New("connection reset by peer"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formErrorStatus(tt.err))
		})
	}
}
