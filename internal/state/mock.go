package state

import "errors"

// MemFile is an in-memory FileReader/FileWriter for tests.
type MemFile struct {
	Files map[string][]byte
	// Writes counts successful WriteFile calls.
	Writes int
}

// NewMemFile returns an empty MemFile.
func NewMemFile() *MemFile {
	return &MemFile{Files: map[string][]byte{}}
}

func (m *MemFile) ReadFile(name string) ([]byte, error) {
	data, ok := m.Files[name]
	if !ok {
		return nil, errors.New("state: file not found")
	}
	return data, nil
}

func (m *MemFile) WriteFile(name string, data []byte) error {
	m.Files[name] = append([]byte(nil), data...)
	m.Writes++
	return nil
}
