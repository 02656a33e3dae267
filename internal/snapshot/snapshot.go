// Package snapshot produces crystal images requested by the server.
package snapshot

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
)

// ErrNoSource means no camera or image is configured.
var ErrNoSource = errors.New("no snapshot source configured")

// Source captures one image and returns it as a data URL.
type Source interface {
	Capture(ctx context.Context) (string, error)
}

// FileSource serves the image stored at Path, re-read on every capture
// so an external grabber can keep overwriting it.
type FileSource struct {
	Path string
}

func (f FileSource) Capture(ctx context.Context) (string, error) {
	if f.Path == "" {
		return "", ErrNoSource
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	return DataURL(data), nil
}

// DataURL encodes an image with its sniffed content type.
func DataURL(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Func adapts a function to Source.
type Func func(ctx context.Context) (string, error)

func (fn Func) Capture(ctx context.Context) (string, error) { return fn(ctx) }
