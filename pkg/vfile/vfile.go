// Package vfile implements the File primitive of §6: a uniform
// byte-range reader, whole-file mapper, and append/sync writer over
// either an in-memory buffer or an on-disk file. pkg/store writes and
// replays each persisted layer's log through this interface, so the
// same save and load code runs against in-memory test files and
// on-disk ones.
package vfile

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/regulumdb/ferricstore/pkg/iohelp"
	"github.com/regulumdb/ferricstore/pkg/storeerr"
)

// File is a single named byte sequence, such as a persisted layer's
// replay log.
type File interface {
	// Exists reports whether the file has been written yet.
	Exists() bool
	// Size returns the current length in bytes.
	Size() (int64, error)
	// OpenReadFrom returns a closeable reader positioned at offset.
	OpenReadFrom(offset int64) (io.ReadCloser, error)
	// Map returns the whole file as an immutable byte slice. For
	// disk-backed files this is a read-only mmap; callers must not
	// retain it past the File's lifetime.
	Map() ([]byte, error)
	// OpenWriter returns a Writer for producing the file's contents.
	// It is an error to open a writer for a file that already Exists.
	OpenWriter() (Writer, error)
}

// Writer accumulates the bytes of a File being built. Append-only:
// once SyncAll has been called the Writer is no longer usable.
type Writer interface {
	io.Writer
	// SyncAll publishes the writer's contents as the File's final,
	// immutable bytes.
	SyncAll() error
	// Close releases any resources without necessarily publishing
	// partial contents; calling it after a successful SyncAll is a
	// no-op.
	Close() error
}

// --- memory-backed implementation ---

// memFile is an in-memory File, used by tests that never touch disk.
type memFile struct {
	data   []byte
	exists bool
}

// NewMemFile returns a File backed by a growable in-memory buffer.
func NewMemFile() File { return &memFile{} }

func (f *memFile) Exists() bool { return f.exists }

func (f *memFile) Size() (int64, error) {
	if !f.exists {
		return 0, storeerr.ErrNotFound
	}
	return int64(len(f.data)), nil
}

func (f *memFile) OpenReadFrom(offset int64) (io.ReadCloser, error) {
	if !f.exists {
		return nil, storeerr.ErrNotFound
	}
	if offset < 0 || offset > int64(len(f.data)) {
		return nil, storeerr.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(f.data[offset:])), nil
}

func (f *memFile) Map() ([]byte, error) {
	if !f.exists {
		return nil, storeerr.ErrNotFound
	}
	return f.data, nil
}

func (f *memFile) OpenWriter() (Writer, error) {
	if f.exists {
		return nil, storeerr.ErrAlreadyExists
	}
	return &memWriter{f: f}, nil
}

type memWriter struct {
	f    *memFile
	buf  bytes.Buffer
	done bool
}

func (w *memWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, storeerr.ErrAlreadyExists
	}
	return w.buf.Write(p)
}

func (w *memWriter) SyncAll() error {
	if w.done {
		return nil
	}
	w.f.data = append([]byte(nil), w.buf.Bytes()...)
	w.f.exists = true
	w.done = true
	return nil
}

func (w *memWriter) Close() error { return nil }

// --- disk-backed implementation ---

// diskFile is a File backed by a path on the local filesystem. Writes
// go to a sibling temp file, published via rename on SyncAll so a
// reader never observes a partially written file (§6's "atomic
// replace via rename", the same convention used for the label file).
type diskFile struct {
	path string
}

// NewDiskFile returns a File rooted at path.
func NewDiskFile(path string) File { return &diskFile{path: path} }

func (f *diskFile) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

func (f *diskFile) Size() (int64, error) {
	fi, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		return 0, storeerr.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (f *diskFile) OpenReadFrom(offset int64) (io.ReadCloser, error) {
	fh, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return nil, storeerr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	size, err := f.Size()
	if err != nil {
		fh.Close()
		return nil, err
	}
	if offset < 0 || offset > size {
		fh.Close()
		return nil, storeerr.ErrUnexpectedEOF
	}
	return iohelp.NewNamedSectionReader(fh, offset, size-offset), nil
}

func (f *diskFile) Map() ([]byte, error) {
	fh, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return nil, storeerr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	fi, err := fh.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 {
		return nil, nil
	}
	m, err := mmap.Map(fh, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return []byte(m), nil
}

func (f *diskFile) OpenWriter() (Writer, error) {
	if f.Exists() {
		return nil, storeerr.ErrAlreadyExists
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &diskWriter{finalPath: f.path, tmp: tmp}, nil
}

type diskWriter struct {
	finalPath string
	tmp       *os.File
	done      bool
}

func (w *diskWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, storeerr.ErrAlreadyExists
	}
	return w.tmp.Write(p)
}

func (w *diskWriter) SyncAll() error {
	if w.done {
		return nil
	}
	if err := w.tmp.Sync(); err != nil {
		w.tmp.Close()
		return err
	}
	if err := w.tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(w.tmp.Name(), w.finalPath); err != nil {
		return err
	}
	w.done = true
	return nil
}

func (w *diskWriter) Close() error {
	if w.done {
		return nil
	}
	name := w.tmp.Name()
	w.tmp.Close()
	return os.Remove(name)
}
