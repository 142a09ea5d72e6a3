package images

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=mock_$GOFILE

// Upload is one uploaded file as received from a form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Sink stores an upload and returns a reference clients can resolve: a path
// under the public prefix or an absolute URL.
type Sink interface {
	Save(ctx context.Context, up Upload) (string, error)
}

// objectName builds "<unix nano>_<random>_<name>" from the client filename.
// The client name is reduced to its base and to characters safe in URLs.
func objectName(now time.Time, filename string) string {
	var suffix [4]byte
	_, _ = rand.Read(suffix[:])

	return strconv.FormatInt(now.UnixNano(), 10) + "_" + hex.EncodeToString(suffix[:]) + "_" + sanitize(filename)
}

func sanitize(filename string) string {
	base := filepath.Base(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	if base == "." || base == "/" || base == "" {
		return "upload"
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	name := strings.TrimLeft(b.String(), ".")
	if name == "" {
		return "upload"
	}

	return name
}
