package images

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spf13/afero"
)

type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads into a bucket and returns the object's public URL.
// The upload is spooled to a temp file first: PutObject signs the payload
// and needs a seekable body of known length.
type S3Sink struct {
	client    PutObjectAPI
	bucket    string
	prefix    string
	publicURL string
	tmp       afero.Fs
	now       func() time.Time
}

// NewS3Sink builds a sink for bucket. When publicURL is empty the virtual
// hosted style URL for region is used.
func NewS3Sink(client PutObjectAPI, tmp afero.Fs, bucket, prefix, publicURL, region string) *S3Sink {
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}

	return &S3Sink{
		client:    client,
		bucket:    bucket,
		prefix:    prefix,
		publicURL: strings.TrimRight(publicURL, "/"),
		tmp:       tmp,
		now:       time.Now,
	}
}

func (s *S3Sink) Save(ctx context.Context, up Upload) (string, error) {
	const op = "images.S3Sink.Save"

	spool, err := afero.TempFile(s.tmp, os.TempDir(), "menu-upload-*")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		spool.Close()
		_ = s.tmp.Remove(spool.Name())
	}()

	size, err := io.Copy(spool, up.Body)
	if err != nil {
		return "", fmt.Errorf("%s: spool: %w", op, err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("%s: spool: %w", op, err)
	}

	key := path.Join(s.prefix, objectName(s.now(), up.Filename))

	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          spool,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("%s: upload: %w", op, err)
	}

	return s.publicURL + "/" + key, nil
}
