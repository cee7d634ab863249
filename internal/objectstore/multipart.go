package objectstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3 rejects parts under 5 MiB except the final one.
const minPartSizeMB = 5

// MultipartOptions configures a chunked upload. PartSizeMB values below the
// S3 minimum are clamped up to 5; the default is 16.
type MultipartOptions struct {
	PartSizeMB  int
	ContentType string
	Metadata    map[string]string
}

// PutLargeBytesMultipart uploads data as sequential parts under one
// multipart session and commits them atomically. If any part fails, the
// session is aborted before the error is returned, so a failed upload
// never leaves a visible object or an orphaned incomplete session.
func (g *Gateway) PutLargeBytesMultipart(ctx context.Context, key string, data []byte, opts MultipartOptions) error {
	partMB := opts.PartSizeMB
	if partMB == 0 {
		partMB = 16
	}
	if partMB < minPartSizeMB {
		partMB = minPartSizeMB
	}
	partSize := partMB * 1024 * 1024

	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	createIn := &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	if len(opts.Metadata) > 0 {
		createIn.Metadata = opts.Metadata
	}

	created, err := g.client.CreateMultipartUpload(ctx, createIn)
	if err != nil {
		return fmt.Errorf("create multipart upload %s: %w", key, err)
	}
	uploadID := created.UploadId

	abort := func() {
		// Abort must run even when ctx is already cancelled.
		_, _ = g.client.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(g.bucket),
			Key:      aws.String(key),
			UploadId: uploadID,
		})
	}

	var parts []types.CompletedPart
	partNumber := int32(1)
	for start := 0; start < len(data); start += partSize {
		end := start + partSize
		if end > len(data) {
			end = len(data)
		}

		out, err := g.client.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(g.bucket),
			Key:        aws.String(key),
			UploadId:   uploadID,
			PartNumber: aws.Int32(partNumber),
			Body:       bytes.NewReader(data[start:end]),
		})
		if err != nil {
			abort()
			return fmt.Errorf("upload part %d of %s: %w", partNumber, key, err)
		}

		parts = append(parts, types.CompletedPart{
			ETag:       out.ETag,
			PartNumber: aws.Int32(partNumber),
		})
		partNumber++
	}

	_, err = g.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(g.bucket),
		Key:      aws.String(key),
		UploadId: uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	if err != nil {
		abort()
		return fmt.Errorf("complete multipart upload %s: %w", key, err)
	}
	return nil
}
