package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
)

// gzipMagic is the two-byte prefix every gzip stream starts with.
var gzipMagic = []byte{0x1f, 0x8b}

// PutJSON serializes v as UTF-8 JSON and writes it to key. With compress
// set, the payload is gzip-encoded and Content-Encoding is marked so
// readers that honor headers can decompress transparently.
func (g *Gateway) PutJSON(ctx context.Context, key string, v any, compress bool, metadata map[string]string) (*s3.PutObjectOutput, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json for %s: %w", key, err)
	}

	opts := PutOptions{ContentType: "application/json", Metadata: metadata}
	if compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, fmt.Errorf("compress json for %s: %w", key, err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compress json for %s: %w", key, err)
		}
		raw = buf.Bytes()
		opts.ContentEncoding = "gzip"
	}

	return g.PutBytes(ctx, key, raw, opts)
}

// GetJSON reads the object at key and decodes it into out. Gzip payloads
// are detected by the magic-byte prefix rather than headers, since the
// encoding header does not always survive transport.
func (g *Gateway) GetJSON(ctx context.Context, key string, out any) error {
	raw, err := g.GetBytes(ctx, key)
	if err != nil {
		return err
	}

	if bytes.HasPrefix(raw, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("decompress %s: %v: %w", key, err, ErrDecode)
		}
		raw, err = io.ReadAll(zr)
		if err != nil {
			return fmt.Errorf("decompress %s: %v: %w", key, err, ErrDecode)
		}
		if err := zr.Close(); err != nil {
			return fmt.Errorf("decompress %s: %v: %w", key, err, ErrDecode)
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode json %s: %v: %w", key, err, ErrDecode)
	}
	return nil
}
