package document

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileBlob keeps the document in a single file. Writes go to a temp file in
// the same directory and are renamed over the target.
type FileBlob struct {
	fs   afero.Fs
	path string
}

func NewFileBlob(fs afero.Fs, path string) *FileBlob {
	return &FileBlob{fs: fs, path: path}
}

func (b *FileBlob) Read(_ context.Context) ([]byte, error) {
	data, err := afero.ReadFile(b.fs, b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrBlobNotExist
	}

	return data, err
}

func (b *FileBlob) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(b.path)
	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := afero.TempFile(b.fs, dir, ".items-*.json")
	if err != nil {
		return err
	}
	defer b.fs.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return b.fs.Rename(tmp.Name(), b.path)
}
