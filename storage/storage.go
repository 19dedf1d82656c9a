// Package storage keeps the extracted text of each item as a gzip blob,
// either on the local filesystem or in an S3-compatible bucket.
package storage

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path"
	"time"
)

const (
	// ContentType is the type of every stored blob once decompressed.
	ContentType = "text/plain; charset=utf-8"
	// ContentEncoding is the compression applied to stored blobs.
	ContentEncoding = "gzip"

	contentExt = ".txt.gz"
)

// ErrNotFound is returned when no blob exists under a key.
var ErrNotFound = errors.New("blob not found")

// ContentKey returns content/YYYY/MM/{id}.txt.gz for the UTC month of t.
func ContentKey(id string, t time.Time) string {
	t = t.UTC()
	return path.Join("content", fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", int(t.Month())), id+contentExt)
}

// Compress gzips text.
func Compress(text string) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := io.WriteString(zw, text); err != nil {
		return nil, fmt.Errorf("failed to compress content: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress content: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. Data without a gzip header is returned as is,
// since some S3 gateways decode Content-Encoding on the way out.
func Decompress(data []byte) (string, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return string(data), nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("failed to decompress content: %w", err)
	}
	return string(out), nil
}
