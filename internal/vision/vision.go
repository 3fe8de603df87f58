// Package vision crops page screenshots and locates slider pieces by
// template matching.
package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Capture file names written under an image directory. Every capture
// overwrites the previous file of the same name.
const (
	PageFile         = "page.png"
	SecurityCodeFile = "security_code.png"
	SliderFile       = "slider.png"
	BackgroundFile   = "bg.png"
	SliderGreyFile   = "slider_grey.png"
	BackgroundGrey   = "bg_grey.png"
)

// Box is a crop rectangle in screenshot pixels.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// ScaleBox converts an element's CSS-pixel location and size into a
// screenshot crop box using the given DPI factor.
func ScaleBox(x, y, width, height, dpi float64) Box {
	return Box{
		Left:   x * dpi,
		Top:    y * dpi,
		Right:  x*dpi + width*dpi,
		Bottom: y*dpi + height*dpi,
	}
}

// Rect rounds the box to whole pixels, half to even.
func (b Box) Rect() image.Rectangle {
	return image.Rect(
		int(math.RoundToEven(b.Left)),
		int(math.RoundToEven(b.Top)),
		int(math.RoundToEven(b.Right)),
		int(math.RoundToEven(b.Bottom)),
	)
}

// Width returns the box width.
func (b Box) Width() float64 {
	return b.Right - b.Left
}

// Height returns the box height.
func (b Box) Height() float64 {
	return b.Bottom - b.Top
}

// Decode decodes PNG bytes.
func Decode(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return img, nil
}

// Encode encodes an image as PNG bytes.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Crop cuts the box out of img. The result always has the size of the
// box: parts lying outside img are filled with opaque black, so offsets
// measured in the crop stay relative to the box. A box that misses img
// entirely is an error.
func Crop(img image.Image, box Box) (*image.NRGBA, error) {
	rect := box.Rect()
	inside := rect.Intersect(img.Bounds())
	if rect.Empty() || inside.Empty() {
		return nil, fmt.Errorf("crop box %v is outside image bounds %v", rect, img.Bounds())
	}

	cut := imaging.Crop(img, inside)
	if inside == rect {
		return cut, nil
	}
	canvas := imaging.New(rect.Dx(), rect.Dy(), color.NRGBA{A: 255})
	return imaging.Paste(canvas, cut, inside.Min.Sub(rect.Min)), nil
}

// Grey converts img to grayscale.
func Grey(img image.Image) *image.NRGBA {
	return imaging.Grayscale(img)
}

// Invert inverts img (255 - value per channel).
func Invert(img image.Image) *image.NRGBA {
	return imaging.Invert(img)
}

// Dir manages the directory that captures are written to.
type Dir struct {
	path string
}

// NewDir returns a capture directory rooted at path.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the full path of a capture file.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.path, name)
}

// Ensure creates the directory if needed.
func (d *Dir) Ensure() error {
	if err := os.MkdirAll(d.path, 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}
	return nil
}

// Save writes img as PNG under name and returns the encoded bytes.
func (d *Dir) Save(name string, img image.Image) ([]byte, error) {
	if err := d.Ensure(); err != nil {
		return nil, err
	}
	data, err := Encode(img)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(d.Path(name), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", name, err)
	}
	return data, nil
}

// WriteRaw writes already encoded bytes under name.
func (d *Dir) WriteRaw(name string, data []byte) error {
	if err := d.Ensure(); err != nil {
		return err
	}
	if err := os.WriteFile(d.Path(name), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
