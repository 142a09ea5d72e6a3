package document

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectAPI is the part of *s3.Client the bucket blob uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// BucketBlob keeps the document as one object in an S3 compatible bucket.
type BucketBlob struct {
	client ObjectAPI
	bucket string
	key    string
}

func NewBucketBlob(client ObjectAPI, bucket, key string) *BucketBlob {
	return &BucketBlob{client: client, bucket: bucket, key: key}
}

func (b *BucketBlob) Read(ctx context.Context) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrBlobNotExist
		}
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (b *BucketBlob) Write(ctx context.Context, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
		CacheControl:  aws.String("no-cache"),
	})

	return err
}
