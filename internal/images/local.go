package images

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/spf13/afero"
)

// LocalSink writes uploads into a directory that is served at urlPrefix.
type LocalSink struct {
	fs        afero.Fs
	urlPrefix string
	now       func() time.Time
}

// NewLocalSink stores files at the root of fs; callers usually pass a
// BasePathFs over the public images directory.
func NewLocalSink(fs afero.Fs, urlPrefix string) *LocalSink {
	return &LocalSink{
		fs:        fs,
		urlPrefix: urlPrefix,
		now:       time.Now,
	}
}

func (s *LocalSink) Save(_ context.Context, up Upload) (string, error) {
	const op = "images.LocalSink.Save"

	name := objectName(s.now(), up.Filename)
	file := path.Join("/", name)

	f, err := s.fs.Create(file)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if _, err := io.Copy(f, up.Body); err != nil {
		f.Close()
		_ = s.fs.Remove(file)
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(file)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return path.Join("/", s.urlPrefix, name), nil
}
