package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestTextReader_ReadsUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	if err := os.WriteFile(path, []byte("héllo\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := NewTextReader(0).ReadText(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "héllo\n" {
		t.Errorf("expected %q, got %q", "héllo\n", got)
	}
}

func TestTextReader_RejectsInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 0x00, 0x81}, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewTextReader(0).ReadText(path)
	if !errors.Is(err, ErrNotText) {
		t.Errorf("expected ErrNotText, got %v", err)
	}
}

func TestTextReader_SizeLimit(t *testing.T) {
	dir := t.TempDir()
	exact := filepath.Join(dir, "exact.txt")
	over := filepath.Join(dir, "over.txt")
	if err := os.WriteFile(exact, []byte("12345"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(over, []byte("123456"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewTextReader(5)
	if _, err := r.ReadText(exact); err != nil {
		t.Errorf("expected file at limit to be read, got %v", err)
	}
	if _, err := r.ReadText(over); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestTextReader_MissingFile(t *testing.T) {
	_, err := NewTextReader(0).ReadText(filepath.Join(t.TempDir(), "missing.txt"))
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
