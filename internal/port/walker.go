package port

import "codeflat/internal/domain"

type FileWalker interface {
	Walk(root string) (*domain.WalkResult, error)
}

type FileReader interface {
	ReadText(path string) (string, error)
}
