package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// DefaultChunkSize is the chunk size used when a caller passes zero.
const DefaultChunkSize = 64 * 1024

var ErrInvalidChunkSize = errors.New("chunk size must be positive")

// Source is a random-access byte range of known size.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Blob is a source plus the metadata a file carries.
type Blob struct {
	Name        string
	ContentType string
	Source      Source
}

// Size returns the size of the underlying source.
func (b Blob) Size() int64 {
	if b.Source == nil {
		return 0
	}
	return b.Source.Size()
}

// Bytes wraps an in-memory slice as a source.
func Bytes(p []byte) Source { return bytes.NewReader(p) }

// File is a Source backed by an open file.
type File struct {
	f    *os.File
	size int64
	temp bool
}

// OpenFile opens path and returns it as a blob whose content type is guessed
// from the extension.
func OpenFile(path string) (Blob, *File, error) {
	f, err := os.Open(path)
	if err != nil {
		return Blob{}, nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return Blob{}, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	src := &File{f: f, size: info.Size()}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return Blob{Name: filepath.Base(path), ContentType: ct, Source: src}, src, nil
}

func (f *File) ReadAt(p []byte, off int64) (int, error) { return f.f.ReadAt(p, off) }
func (f *File) Size() int64                             { return f.size }
func (f *File) Close() error                            { return f.f.Close() }

// Fold reads src sequentially in chunks of chunkSize bytes and calls fn with
// each chunk and the offset just past it. ctx is checked before every read;
// a cancelled context stops the fold with the context's error. The chunk
// slice is reused between calls.
func Fold(ctx context.Context, src Source, chunkSize int, fn func(chunk []byte, processed int64) error) error {
	if chunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	size := src.Size()
	buf := make([]byte, chunkSize)
	var off int64
	for off < size {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := int64(chunkSize)
		if rem := size - off; rem < n {
			n = rem
		}
		read, err := src.ReadAt(buf[:n], off)
		if int64(read) < n {
			if err == nil || errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("read chunk at %d: %w", off, err)
		}
		off += n
		if err := fn(buf[:n], off); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// WriteFile stores src at path. A source produced by a FileBuffer is moved
// into place instead of copied; if that fails the temporary file is removed.
func WriteFile(src Source, path string, mode os.FileMode) error {
	if f, ok := src.(*File); ok && f.temp {
		err := f.f.Chmod(mode)
		if cerr := f.f.Close(); err == nil {
			err = cerr
		}
		if err == nil {
			err = os.Rename(f.f.Name(), path)
		}
		if err != nil {
			_ = os.Remove(f.f.Name())
		}
		return err
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, io.NewSectionReader(src, 0, src.Size())); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
