// Package objectstore wraps an S3-compatible object store (Cloudflare R2)
// behind byte-oriented and typed operations.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Sentinel errors callers can branch on with errors.Is.
var (
	// ErrNotFound marks a read of a missing key.
	ErrNotFound = errors.New("object not found")
	// ErrDecode marks a malformed JSON or Parquet payload on read.
	ErrDecode = errors.New("malformed payload")
)

const defaultEndpointTemplate = "https://{account_id}.r2.cloudflarestorage.com"

// Config identifies the bucket and supplies the access key pair.
type Config struct {
	AccountID        string
	AccessKeyID      string
	SecretAccessKey  string
	Bucket           string
	Region           string
	EndpointTemplate string
}

// s3API is the slice of the S3 client the gateway uses. Kept as an
// interface so tests can substitute an in-memory fake.
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, opts ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, in *s3.UploadPartInput, opts ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, opts ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, opts ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// Gateway owns the S3 client and the bucket identity. It is safe for
// concurrent use and holds no per-run state.
type Gateway struct {
	client s3API
	bucket string
}

// New builds a Gateway bound to one bucket on an S3-compatible endpoint
// derived from the account id.
func New(cfg Config) (*Gateway, error) {
	if cfg.AccountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("access key pair is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	tmpl := cfg.EndpointTemplate
	if tmpl == "" {
		tmpl = defaultEndpointTemplate
	}
	endpoint := strings.ReplaceAll(tmpl, "{account_id}", cfg.AccountID)

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	})

	return &Gateway{client: client, bucket: cfg.Bucket}, nil
}

// Bucket returns the bucket this gateway is bound to.
func (g *Gateway) Bucket() string {
	return g.bucket
}

// isNotFound reports whether err is the "key does not exist" class of
// S3 error (404 / NoSuchKey / NotFound).
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	return false
}

// Exists reports whether the key exists. A missing key is not an error;
// any other HEAD failure propagates.
func (g *Gateway) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head %s: %w", key, err)
	}
	return true, nil
}

// Head returns the object's size, content type and custom metadata.
func (g *Gateway) Head(ctx context.Context, key string) (map[string]string, error) {
	out, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("head %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("head %s: %w", key, err)
	}

	meta := map[string]string{
		"size":         fmt.Sprintf("%d", aws.ToInt64(out.ContentLength)),
		"content-type": aws.ToString(out.ContentType),
	}
	for k, v := range out.Metadata {
		meta[k] = v
	}
	return meta, nil
}

// ListKeys returns every key under prefix, transparently following
// continuation tokens until the listing is exhausted.
func (g *Gateway) ListKeys(ctx context.Context, prefix string, pageSize int32) ([]string, error) {
	if pageSize <= 0 {
		pageSize = 1000
	}

	var keys []string
	var token *string
	for {
		out, err := g.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(g.bucket),
			Prefix:            aws.String(prefix),
			MaxKeys:           aws.Int32(pageSize),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			if k := aws.ToString(obj.Key); k != "" {
				keys = append(keys, k)
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return keys, nil
}

// Delete removes the object at key.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// PutOptions carries the optional headers and tags for a single-part write.
type PutOptions struct {
	ContentType     string
	CacheControl    string
	ContentEncoding string
	Metadata        map[string]string
}

// PutBytes writes data to key in a single atomic request, overwriting any
// existing object.
func (g *Gateway) PutBytes(ctx context.Context, key string, data []byte, opts PutOptions) (*s3.PutObjectOutput, error) {
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}
	if opts.CacheControl != "" {
		in.CacheControl = aws.String(opts.CacheControl)
	}
	if opts.ContentEncoding != "" {
		in.ContentEncoding = aws.String(opts.ContentEncoding)
	}
	if len(opts.Metadata) > 0 {
		in.Metadata = opts.Metadata
	}

	out, err := g.client.PutObject(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", key, err)
	}
	return out, nil
}

// GetBytes reads the whole object at key. A missing key fails with an error
// wrapping ErrNotFound.
func (g *Gateway) GetBytes(ctx context.Context, key string) ([]byte, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}
