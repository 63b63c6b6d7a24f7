package blob

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

var ErrBufferClosed = errors.New("buffer closed")

// Buffer collects output chunks and exposes them as a Source once writing is
// done.
type Buffer interface {
	Write(p []byte) (int, error)
	// Source finishes writing and returns the collected bytes.
	Source() (Source, error)
	// Discard drops the collected bytes.
	Discard() error
}

// NewBuffer returns a MemoryBuffer when dir is empty and a FileBuffer in dir
// otherwise.
func NewBuffer(dir string) (Buffer, error) {
	if dir == "" {
		return &MemoryBuffer{}, nil
	}
	return NewFileBuffer(dir)
}

// MemoryBuffer keeps the output in memory.
type MemoryBuffer struct {
	buf    bytes.Buffer
	closed bool
}

func (m *MemoryBuffer) Write(p []byte) (int, error) {
	if m.closed {
		return 0, ErrBufferClosed
	}
	return m.buf.Write(p)
}

func (m *MemoryBuffer) Source() (Source, error) {
	if m.closed {
		return nil, ErrBufferClosed
	}
	m.closed = true
	return bytes.NewReader(m.buf.Bytes()), nil
}

func (m *MemoryBuffer) Discard() error {
	m.buf.Reset()
	m.closed = true
	return nil
}

// FileBuffer spills output to a temporary file so large results do not have
// to fit in memory. The caller owns the file after Source and removes it
// with Discard.
type FileBuffer struct {
	f    *os.File
	done bool
}

// NewFileBuffer creates a temporary file in dir.
func NewFileBuffer(dir string) (*FileBuffer, error) {
	f, err := os.CreateTemp(dir, ".sealkit-blob-*")
	if err != nil {
		return nil, fmt.Errorf("create buffer file: %w", err)
	}
	return &FileBuffer{f: f}, nil
}

func (b *FileBuffer) Write(p []byte) (int, error) {
	if b.done {
		return 0, ErrBufferClosed
	}
	return b.f.Write(p)
}

func (b *FileBuffer) Source() (Source, error) {
	if b.done {
		return nil, ErrBufferClosed
	}
	b.done = true
	if err := b.f.Sync(); err != nil {
		return nil, err
	}
	info, err := b.f.Stat()
	if err != nil {
		return nil, err
	}
	return &File{f: b.f, size: info.Size(), temp: true}, nil
}

// Path returns the temporary file's path.
func (b *FileBuffer) Path() string { return b.f.Name() }

func (b *FileBuffer) Discard() error {
	b.done = true
	name := b.f.Name()
	_ = b.f.Close()
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
