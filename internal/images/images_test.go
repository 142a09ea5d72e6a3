package images

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"burger.png":            "burger.png",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\photo.JPG`: "photo.JPG",
		"my photo (1).jpeg":     "my-photo--1-.jpeg",
		"":                      "upload",
		".hidden":               "hidden",
		"/":                     "upload",
	}

	for in, want := range cases {
		in, want := in, want
		t.Run(in, func(t *testing.T) {
			t.Parallel()

			if got := sanitize(in); got != want {
				t.Fatalf("unexpected name: want: %q, got: %q", want, got)
			}
		})
	}
}

func TestObjectNameIsUnique(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	a := objectName(now, "a.png")
	b := objectName(now, "a.png")
	if a == b {
		t.Fatalf("names collide: %s", a)
	}
	if !strings.HasPrefix(a, "1700000000000000000_") || !strings.HasSuffix(a, "_a.png") {
		t.Fatalf("unexpected name layout: %s", a)
	}
}

func TestLocalSinkSave(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	sink := NewLocalSink(fs, "/images")
	sink.now = func() time.Time { return time.Unix(0, 42) }

	ref, err := sink.Save(context.Background(), Upload{
		Filename: "burger.png",
		Body:     strings.NewReader("png-bytes"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.HasPrefix(ref, "/images/42_") || !strings.HasSuffix(ref, "_burger.png") {
		t.Fatalf("unexpected ref: %s", ref)
	}

	data, err := afero.ReadFile(fs, strings.TrimPrefix(ref, "/images"))
	if err != nil {
		t.Fatalf("stored file missing: %s", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestLocalSinkRemovesPartialFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	sink := NewLocalSink(fs, "/images")

	_, err := sink.Save(context.Background(), Upload{
		Filename: "broken.png",
		Body:     io.MultiReader(strings.NewReader("half"), errReader{}),
	})
	if err == nil {
		t.Fatal("expected error")
	}

	entries, err := afero.ReadDir(fs, "/")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(entries) != 0 {
		t.Fatalf("partial file left behind: %v", entries[0].Name())
	}
}

func TestS3SinkSave(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		publicURL string
		putErr    error
		wantRef   string
		wantErr   bool
	}{
		"uploads and returns public url": {
			publicURL: "https://cdn.example.com/",
			wantRef:   "https://cdn.example.com/items/",
		},
		"defaults to bucket url": {
			wantRef: "https://menu-images.s3.eu-west-1.amazonaws.com/items/",
		},
		"upload failure still removes spool": {
			putErr:  errors.New("access denied"),
			wantErr: true,
		},
	}

	for name, tt := range cases {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tmp := afero.NewMemMapFs()
			client := &fakePutter{err: tt.putErr}
			sink := NewS3Sink(client, tmp, "menu-images", "items", tt.publicURL, "eu-west-1")

			ref, err := sink.Save(context.Background(), Upload{
				Filename:    "cake.jpg",
				ContentType: "image/jpeg",
				Body:        strings.NewReader("jpeg-bytes"),
			})

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %s", err)
				}
				if !strings.HasPrefix(ref, tt.wantRef) || !strings.HasSuffix(ref, "_cake.jpg") {
					t.Fatalf("unexpected ref: %s", ref)
				}
				if client.body != "jpeg-bytes" || client.contentType != "image/jpeg" || client.bucket != "menu-images" {
					t.Fatalf("unexpected upload: %+v", client)
				}
				if !strings.HasPrefix(client.key, "items/") {
					t.Fatalf("unexpected key: %s", client.key)
				}
			}

			entries, err := afero.ReadDir(tmp, os.TempDir())
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if len(entries) != 0 {
				t.Fatalf("spool file left behind: %s", entries[0].Name())
			}
		})
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

type fakePutter struct {
	err         error
	bucket      string
	key         string
	contentType string
	body        string
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, in.Body); err != nil {
		return nil, err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	f.body = buf.String()

	return &s3.PutObjectOutput{}, nil
}
