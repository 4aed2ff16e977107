// Package storage is the card volume seen by the playback core.
//
// It mirrors the constraints of a tiny FAT driver: a flat two-level
// directory tree iterated in directory order, directory handles with a
// sequential cursor and an indexed (linear cost) seek, files that can be
// rewritten in place but never created, and a single open file at a time.
// Opening or rewriting another file invalidates the previously open one;
// Snapshot and Restore bring it back.
package storage

import (
	"errors"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
)

var (
	// ErrNoFile is returned by Dir.Seek when the index is past the end.
	ErrNoFile = errors.New("storage: no such entry")
	// ErrNotExist is returned when writing a file the card does not hold.
	ErrNotExist = errors.New("storage: file does not exist")
	// ErrFileStale is returned by a File whose slot was taken by another file.
	ErrFileStale = errors.New("storage: file no longer open")
	// ErrReadOnly is returned by WriteFile on a volume without a writer.
	ErrReadOnly = errors.New("storage: volume is read-only")
)

// Entry describes one directory entry. The zero Entry marks the end of a
// listing.
type Entry struct {
	Name string
	Path string // slash-separated path from the volume root
	Size int64
	Dir  bool
}

// Valid reports whether e refers to an entry.
func (e Entry) Valid() bool { return e.Name != "" }

// WriteFunc rewrites the content of an existing file. It must fail with an
// error matching ErrNotExist when the file is absent.
type WriteFunc func(name string, data []byte) error

// Mounter mounts a card. Each call yields a fresh volume.
type Mounter interface {
	Mount() (*Volume, error)
}

// Volume is a mounted card.
type Volume struct {
	fsys   fs.FS
	write  WriteFunc
	active *File
}

// NewVolume wraps fsys. A nil write makes the volume read-only.
func NewVolume(fsys fs.FS, write WriteFunc) *Volume {
	return &Volume{fsys: fsys, write: write}
}

// OpenDir lists the directory at name ("/" or "" is the root).
func (v *Volume) OpenDir(name string) (*Dir, error) {
	name = clean(name)
	des, err := fs.ReadDir(v.fsys, name)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		if strings.HasPrefix(de.Name(), ".") {
			continue
		}
		e := Entry{
			Name: de.Name(),
			Path: path.Join(name, de.Name()),
			Dir:  de.IsDir(),
		}
		if info, err := de.Info(); err == nil && !e.Dir {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}
	slices.SortStableFunc(entries, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })

	return &Dir{path: name, entries: entries}, nil
}

// Open opens e for reading, closing the file open so far.
func (v *Volume) Open(e Entry) (*File, error) {
	if e.Dir {
		return nil, &fs.PathError{Op: "open", Path: e.Path, Err: fs.ErrInvalid}
	}
	f, err := v.fsys.Open(e.Path)
	if err != nil {
		return nil, err
	}
	if v.active != nil {
		v.active.close()
	}
	v.active = &File{vol: v, name: e.Path, f: f}
	return v.active, nil
}

// ReadFile reads a whole file. It takes the file slot: the file open so far
// goes stale.
func (v *Volume) ReadFile(name string) ([]byte, error) {
	v.active = nil
	return fs.ReadFile(v.fsys, clean(name))
}

// WriteFile rewrites an existing file. It takes the file slot: the file open
// so far goes stale.
func (v *Volume) WriteFile(name string, data []byte) error {
	v.active = nil
	if v.write == nil {
		return ErrReadOnly
	}
	return v.write(clean(name), data)
}

// Position captures the open file so it can be restored after the slot was
// used for something else.
type Position struct {
	file *File
}

// Snapshot captures the currently open file.
func (v *Volume) Snapshot() Position {
	return Position{file: v.active}
}

// Restore reopens the file captured by p at the offset it had.
func (v *Volume) Restore(p Position) {
	if p.file == nil || p.file.closed {
		return
	}
	v.active = p.file
}

func clean(name string) string {
	name = strings.Trim(path.Clean("/"+name), "/")
	if name == "" {
		return "."
	}
	return name
}

// Dir is an open directory with a read cursor.
type Dir struct {
	path    string
	entries []Entry
	next    int
}

// Path returns the directory path.
func (d *Dir) Path() string { return d.path }

// Read returns the entry under the cursor and advances it. At the end of the
// listing it returns the zero Entry.
func (d *Dir) Read() Entry {
	if d.next >= len(d.entries) {
		return Entry{}
	}
	e := d.entries[d.next]
	d.next++
	return e
}

// Rewind moves the cursor back to the first entry.
func (d *Dir) Rewind() { d.next = 0 }

// Seek returns the n-th entry and leaves the cursor just after it. It walks
// the listing from the start, like the driver it stands for.
func (d *Dir) Seek(n uint32) (Entry, error) {
	d.Rewind()
	for i := uint32(0); ; i++ {
		e := d.Read()
		if !e.Valid() {
			return Entry{}, ErrNoFile
		}
		if i == n {
			return e, nil
		}
	}
}

// Count returns the number of entries in the directory.
func (d *Dir) Count() uint32 { return uint32(len(d.entries)) }

// File is the open file of a volume.
type File struct {
	vol    *Volume
	name   string
	f      fs.File
	closed bool
}

// Name returns the file path.
func (f *File) Name() string { return f.name }

func (f *File) usable() error {
	if f.closed || f.vol.active != f {
		return ErrFileStale
	}
	return nil
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	if err := f.usable(); err != nil {
		return 0, err
	}
	return f.f.Read(p)
}

// Seek implements io.Seeker when the underlying file system supports it.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := f.usable(); err != nil {
		return 0, err
	}
	s, ok := f.f.(io.Seeker)
	if !ok {
		return 0, errors.ErrUnsupported
	}
	return s.Seek(offset, whence)
}

// Close releases the file.
func (f *File) Close() error {
	if f.vol.active == f {
		f.vol.active = nil
	}
	return f.close()
}

func (f *File) close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.f.Close()
}

var _ io.ReadSeeker = (*File)(nil)
