package blob_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sealkit/internal/blob"
)

func TestFold_ChunksAndOffsets(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i)
	}

	var got []byte
	var offsets []int64
	err := blob.Fold(context.Background(), blob.Bytes(data), 300, func(chunk []byte, processed int64) error {
		got = append(got, chunk...)
		offsets = append(offsets, processed)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, data, got)
	require.Equal(t, []int64{300, 600, 900, 1000}, offsets)
}

func TestFold_Empty(t *testing.T) {
	calls := 0
	err := blob.Fold(context.Background(), blob.Bytes(nil), 16, func([]byte, int64) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Zero(t, calls)
}

func TestFold_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := blob.Fold(ctx, blob.Bytes(make([]byte, 100)), 10, func([]byte, int64) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, calls)
}

func TestFold_PropagatesCallbackError(t *testing.T) {
	boom := errors.New("boom")
	err := blob.Fold(context.Background(), blob.Bytes(make([]byte, 100)), 10, func([]byte, int64) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.ErrorIs(t, blob.Fold(context.Background(), blob.Bytes(nil), 0, nil), blob.ErrInvalidChunkSize)
}

func TestBuffers_RoundTrip(t *testing.T) {
	for name, dir := range map[string]string{"memory": "", "file": t.TempDir()} {
		t.Run(name, func(t *testing.T) {
			buf, err := blob.NewBuffer(dir)
			require.NoError(t, err)
			defer buf.Discard()

			_, err = buf.Write([]byte("hello "))
			require.NoError(t, err)
			_, err = buf.Write([]byte("world"))
			require.NoError(t, err)

			src, err := buf.Source()
			require.NoError(t, err)
			require.EqualValues(t, 11, src.Size())
			p := make([]byte, 5)
			_, err = src.ReadAt(p, 6)
			require.NoError(t, err)
			require.Equal(t, "world", string(p))

			_, err = buf.Write([]byte("late"))
			require.ErrorIs(t, err, blob.ErrBufferClosed)
		})
	}
}

func TestFileBuffer_DiscardRemoves(t *testing.T) {
	buf, err := blob.NewFileBuffer(t.TempDir())
	require.NoError(t, err)
	path := buf.Path()
	require.NoError(t, buf.Discard())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestOpenFile_Metadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0o600))

	b, f, err := blob.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, "notes.json", b.Name)
	require.Contains(t, b.ContentType, "application/json")
	require.EqualValues(t, 7, b.Size())
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	mem := filepath.Join(dir, "mem.out")
	require.NoError(t, blob.WriteFile(blob.Bytes([]byte("abc")), mem, 0o600))
	got, err := os.ReadFile(mem)
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))

	buf, err := blob.NewFileBuffer(dir)
	require.NoError(t, err)
	_, err = buf.Write([]byte("spilled"))
	require.NoError(t, err)
	src, err := buf.Source()
	require.NoError(t, err)
	moved := filepath.Join(dir, "moved.out")
	require.NoError(t, blob.WriteFile(src, moved, 0o600))
	got, err = os.ReadFile(moved)
	require.NoError(t, err)
	require.Equal(t, "spilled", string(got))
	_, err = os.Stat(buf.Path())
	require.True(t, os.IsNotExist(err))
}

func TestWriteFile_FailedMoveRemovesTempFile(t *testing.T) {
	dir := t.TempDir()
	buf, err := blob.NewFileBuffer(dir)
	require.NoError(t, err)
	_, err = buf.Write([]byte("spilled"))
	require.NoError(t, err)
	src, err := buf.Source()
	require.NoError(t, err)

	err = blob.WriteFile(src, filepath.Join(dir, "missing", "out.bin"), 0o600)
	require.Error(t, err)
	_, err = os.Stat(buf.Path())
	require.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
