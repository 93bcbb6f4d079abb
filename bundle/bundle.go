// Package bundle composes captured images into a single downloadable
// artifact. The workbook composer of the production deployment is an
// external collaborator; the zip bundler here is the in-repo
// implementation, so the download endpoint always has something real to
// serve.
package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/speedsheet/capture"
)

// Bundler composes an ordered set of captures into one artifact.
type Bundler interface {
	// Name returns the bundler identifier (e.g. "zip").
	Name() string

	// Bundle packs the captures and returns the artifact bytes plus the
	// file extension they should be stored under (without the dot).
	Bundle(ctx context.Context, captures []*capture.CaptureResult) (data []byte, ext string, err error)
}

// ZipBundler packs captures into a zip archive, one image entry per
// capture in input order, plus a manifest listing the source URLs.
type ZipBundler struct{}

// NewZipBundler creates the zip bundler.
func NewZipBundler() *ZipBundler {
	return &ZipBundler{}
}

var _ Bundler = (*ZipBundler)(nil)

func (b *ZipBundler) Name() string { return "zip" }

// Bundle implements Bundler.
func (b *ZipBundler) Bundle(ctx context.Context, captures []*capture.CaptureResult) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("bundle: %w", err)
	}
	if len(captures) == 0 {
		return nil, "", fmt.Errorf("bundle: no captures to pack")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	var manifest strings.Builder
	for i, shot := range captures {
		name := fmt.Sprintf("capture_%02d%s", i+1, extFor(shot.ContentType))
		w, err := zw.Create(name)
		if err != nil {
			zw.Close()
			return nil, "", fmt.Errorf("bundle: create entry %s: %w", name, err)
		}
		if _, err := w.Write(shot.Data); err != nil {
			zw.Close()
			return nil, "", fmt.Errorf("bundle: write entry %s: %w", name, err)
		}
		fmt.Fprintf(&manifest, "%s\t%s\n", name, shot.URL)
	}

	w, err := zw.Create("manifest.txt")
	if err != nil {
		zw.Close()
		return nil, "", fmt.Errorf("bundle: create manifest: %w", err)
	}
	if _, err := w.Write([]byte(manifest.String())); err != nil {
		zw.Close()
		return nil, "", fmt.Errorf("bundle: write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("bundle: close archive: %w", err)
	}
	return buf.Bytes(), "zip", nil
}

// extFor maps a capture content type to an entry extension.
func extFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	default:
		return ".bin"
	}
}
