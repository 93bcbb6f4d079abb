package capture

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
)

// FixtureCapturer is a deterministic stand-in engine that renders a flat
// placeholder image per URL instead of driving a browser. It keeps the
// processing pipeline exercisable in development and tests; deployments
// swap in a real rendering engine behind the same interface.
type FixtureCapturer struct{}

// NewFixtureCapturer creates the stand-in engine.
func NewFixtureCapturer() *FixtureCapturer {
	return &FixtureCapturer{}
}

var _ Capturer = (*FixtureCapturer)(nil)

func (f *FixtureCapturer) Name() string { return "fixture" }

// Capture implements Capturer. The fill color is derived from the URL so
// distinct URLs produce distinct image bytes.
func (f *FixtureCapturer) Capture(ctx context.Context, req *CaptureRequest) (*CaptureResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fixture capture %s: %w", req.URL, err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 320, 180))
	fill := colorFor(req.URL)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = fill.R
		img.Pix[i+1] = fill.G
		img.Pix[i+2] = fill.B
		img.Pix[i+3] = 0xff
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("fixture capture %s: encode: %w", req.URL, err)
	}

	return &CaptureResult{
		URL:         req.URL,
		Data:        buf.Bytes(),
		ContentType: "image/png",
		EngineName:  f.Name(),
	}, nil
}

// colorFor hashes url into a stable fill color.
func colorFor(url string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(url))
	sum := h.Sum32()
	return color.RGBA{R: byte(sum), G: byte(sum >> 8), B: byte(sum >> 16), A: 0xff}
}
