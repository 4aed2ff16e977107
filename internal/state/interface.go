package state

import "github.com/llehouerou/lumiplay/internal/storage"

// FileReader reads a whole file from the card.
type FileReader interface {
	ReadFile(name string) ([]byte, error)
}

// FileWriter rewrites an existing file on the card.
type FileWriter interface {
	WriteFile(name string, data []byte) error
}

// Verify the volume can hold the state file at compile time.
var (
	_ FileReader = (*storage.Volume)(nil)
	_ FileWriter = (*storage.Volume)(nil)
)
