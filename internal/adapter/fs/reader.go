package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

var (
	ErrNotText  = errors.New("content is not valid UTF-8 text")
	ErrTooLarge = errors.New("file exceeds size limit")
)

// TextReader reads whole files as UTF-8 text.
type TextReader struct {
	maxBytes int64
}

// NewTextReader creates a reader. maxBytes <= 0 disables the size limit.
func NewTextReader(maxBytes int64) *TextReader {
	return &TextReader{maxBytes: maxBytes}
}

// ReadText returns the file content, or an error if it cannot be opened, is
// larger than the limit, or does not decode as UTF-8.
func (r *TextReader) ReadText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var reader io.Reader = f
	if r.maxBytes > 0 {
		// One extra byte distinguishes "exactly at limit" from "over".
		reader = io.LimitReader(f, r.maxBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if r.maxBytes > 0 && int64(len(data)) > r.maxBytes {
		return "", fmt.Errorf("%w (%d bytes)", ErrTooLarge, r.maxBytes)
	}
	if !utf8.Valid(data) {
		return "", ErrNotText
	}
	return string(data), nil
}
