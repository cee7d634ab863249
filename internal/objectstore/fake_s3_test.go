package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObject struct {
	data            []byte
	contentType     string
	contentEncoding string
	metadata        map[string]string
}

type fakePart struct {
	number int32
	data   []byte
}

type fakeUpload struct {
	key         string
	contentType string
	metadata    map[string]string
	parts       []fakePart
}

// fakeS3 is an in-memory s3API for gateway tests.
type fakeS3 struct {
	objects map[string]*fakeObject
	uploads map[string]*fakeUpload

	nextUploadID int
	abortCalls   int
	partSizes    []int

	// uploadPartErr, when set, fails the matching part number.
	uploadPartErr     error
	uploadPartErrPart int32
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects: make(map[string]*fakeObject),
		uploads: make(map[string]*fakeUpload),
	}
}

func newTestGateway(f *fakeS3) *Gateway {
	return &Gateway{client: f, bucket: "test-bucket"}
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		Metadata:      obj.metadata,
	}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.data)),
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		Metadata:      obj.metadata,
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = &fakeObject{
		data:            data,
		contentType:     aws.ToString(in.ContentType),
		contentEncoding: aws.ToString(in.ContentEncoding),
		metadata:        in.Metadata,
	}
	return &s3.PutObjectOutput{ETag: aws.String(`"fake-etag"`)}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(in.Prefix)
	var matched []string
	for k := range f.objects {
		if len(prefix) == 0 || (len(k) >= len(prefix) && k[:len(prefix)] == prefix) {
			matched = append(matched, k)
		}
	}
	sort.Strings(matched)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(aws.ToString(in.ContinuationToken))
	}
	pageSize := int(aws.ToInt32(in.MaxKeys))
	if pageSize <= 0 {
		pageSize = 1000
	}

	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(matched))}
	for _, k := range matched[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(matched) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeS3) CreateMultipartUpload(_ context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.nextUploadID++
	id := fmt.Sprintf("upload-%d", f.nextUploadID)
	f.uploads[id] = &fakeUpload{
		key:         aws.ToString(in.Key),
		contentType: aws.ToString(in.ContentType),
		metadata:    in.Metadata,
	}
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String(id)}, nil
}

func (f *fakeS3) UploadPart(_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	up, ok := f.uploads[aws.ToString(in.UploadId)]
	if !ok {
		return nil, fmt.Errorf("no such upload %s", aws.ToString(in.UploadId))
	}
	num := aws.ToInt32(in.PartNumber)
	if f.uploadPartErr != nil && num == f.uploadPartErrPart {
		return nil, f.uploadPartErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	up.parts = append(up.parts, fakePart{number: num, data: data})
	f.partSizes = append(f.partSizes, len(data))
	return &s3.UploadPartOutput{ETag: aws.String(fmt.Sprintf(`"part-%d"`, num))}, nil
}

func (f *fakeS3) CompleteMultipartUpload(_ context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	id := aws.ToString(in.UploadId)
	up, ok := f.uploads[id]
	if !ok {
		return nil, fmt.Errorf("no such upload %s", id)
	}
	if in.MultipartUpload == nil || len(in.MultipartUpload.Parts) == 0 {
		return nil, fmt.Errorf("no parts to complete")
	}

	sort.Slice(up.parts, func(i, j int) bool { return up.parts[i].number < up.parts[j].number })
	var data []byte
	for _, p := range up.parts {
		data = append(data, p.data...)
	}
	f.objects[up.key] = &fakeObject{
		data:        data,
		contentType: up.contentType,
		metadata:    up.metadata,
	}
	delete(f.uploads, id)
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (f *fakeS3) AbortMultipartUpload(_ context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.abortCalls++
	delete(f.uploads, aws.ToString(in.UploadId))
	return &s3.AbortMultipartUploadOutput{}, nil
}
