package vision

import (
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func noiseImage(w, h int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

func TestScaleBox(t *testing.T) {
	tests := []struct {
		x, y, w, h, dpi float64
	}{
		{10, 20, 100, 40, 1},
		{10, 20, 100, 40, 1.5},
		{13.5, 7.25, 61, 33, 1.25},
		{0, 0, 300, 150, 2},
		{412, 318, 52, 52, 2.75},
		{5, 9, 1, 1, 0.5},
	}

	for _, tt := range tests {
		box := ScaleBox(tt.x, tt.y, tt.w, tt.h, tt.dpi)

		if box.Left != tt.x*tt.dpi {
			t.Errorf("Left = %v, want %v", box.Left, tt.x*tt.dpi)
		}
		if box.Top != tt.y*tt.dpi {
			t.Errorf("Top = %v, want %v", box.Top, tt.y*tt.dpi)
		}
		if box.Right != tt.x*tt.dpi+tt.w*tt.dpi {
			t.Errorf("Right = %v, want %v", box.Right, tt.x*tt.dpi+tt.w*tt.dpi)
		}
		if box.Bottom != tt.y*tt.dpi+tt.h*tt.dpi {
			t.Errorf("Bottom = %v, want %v", box.Bottom, tt.y*tt.dpi+tt.h*tt.dpi)
		}
	}
}

func TestBox_Rect(t *testing.T) {
	box := Box{Left: 2.5, Top: 3.5, Right: 10.4, Bottom: 20.6}

	want := image.Rect(2, 4, 10, 21)
	if got := box.Rect(); got != want {
		t.Errorf("Rect() = %v, want %v", got, want)
	}
	if w := box.Width(); w < 7.899 || w > 7.901 {
		t.Errorf("Width() = %v, want 7.9", w)
	}
	if h := box.Height(); h < 17.099 || h > 17.101 {
		t.Errorf("Height() = %v, want 17.1", h)
	}
}

func TestCrop(t *testing.T) {
	img := noiseImage(100, 80, 1)

	out, err := Crop(img, ScaleBox(10, 10, 20, 15, 1.5))
	if err != nil {
		t.Fatalf("Crop() error = %v", err)
	}
	if out.Bounds().Dx() != 30 || out.Bounds().Dy() != 23 {
		t.Errorf("crop size = %v, want 30x23", out.Bounds())
	}

	want := img.GrayAt(15, 15).Y
	if got := out.NRGBAAt(0, 0).R; got != want {
		t.Errorf("pixel (0,0) = %d, want %d", got, want)
	}
}

func TestCrop_PadsOutsideImage(t *testing.T) {
	img := noiseImage(50, 40, 4)

	// A box hanging off the top left corner keeps its full size.
	out, err := Crop(img, Box{Left: -10, Top: -5, Right: 20, Bottom: 15})
	if err != nil {
		t.Fatalf("Crop() error = %v", err)
	}
	if out.Bounds().Dx() != 30 || out.Bounds().Dy() != 20 {
		t.Fatalf("crop size = %v, want 30x20", out.Bounds())
	}

	if got := out.NRGBAAt(0, 0); got != (color.NRGBA{A: 255}) {
		t.Errorf("padding pixel = %v, want opaque black", got)
	}
	want := img.GrayAt(0, 0).Y
	if got := out.NRGBAAt(10, 5).R; got != want {
		t.Errorf("pixel (10,5) = %d, want image pixel (0,0) = %d", got, want)
	}

	// Same for the bottom right corner.
	out, err = Crop(img, Box{Left: 45, Top: 30, Right: 60, Bottom: 50})
	if err != nil {
		t.Fatalf("Crop() error = %v", err)
	}
	if out.Bounds().Dx() != 15 || out.Bounds().Dy() != 20 {
		t.Fatalf("crop size = %v, want 15x20", out.Bounds())
	}
	if got := out.NRGBAAt(14, 19); got != (color.NRGBA{A: 255}) {
		t.Errorf("padding pixel = %v, want opaque black", got)
	}
	if got, want := out.NRGBAAt(0, 0).R, img.GrayAt(45, 30).Y; got != want {
		t.Errorf("pixel (0,0) = %d, want %d", got, want)
	}
}

func TestCrop_OutOfBounds(t *testing.T) {
	img := noiseImage(50, 50, 2)

	if _, err := Crop(img, Box{Left: 60, Top: 60, Right: 80, Bottom: 80}); err == nil {
		t.Error("Crop outside the image should fail")
	}
	if _, err := Crop(img, Box{Left: 10, Top: 10, Right: 10, Bottom: 30}); err == nil {
		t.Error("Empty crop should fail")
	}
}

func TestGreyInvert(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 200, B: 200, A: 255})

	grey := Grey(img)
	if grey.NRGBAAt(0, 0).R != 200 {
		t.Errorf("grey = %d, want 200", grey.NRGBAAt(0, 0).R)
	}

	inv := Invert(grey)
	if inv.NRGBAAt(0, 0).R != 55 {
		t.Errorf("inverted = %d, want 55", inv.NRGBAAt(0, 0).R)
	}
}

func TestMatchTemplate(t *testing.T) {
	img := noiseImage(120, 60, 3)
	tmpl := img.SubImage(image.Rect(37, 12, 37+25, 12+20))

	m, err := MatchTemplate(img, tmpl)
	if err != nil {
		t.Fatalf("MatchTemplate() error = %v", err)
	}
	if m.X != 37 || m.Y != 12 {
		t.Errorf("match = (%d,%d), want (37,12)", m.X, m.Y)
	}
	if m.Score < 0.999 {
		t.Errorf("score = %v, want ~1", m.Score)
	}
}

func TestMatchTemplate_TooLarge(t *testing.T) {
	img := noiseImage(10, 10, 4)
	tmpl := noiseImage(11, 5, 5)

	if _, err := MatchTemplate(img, tmpl); err == nil {
		t.Error("template wider than image should fail")
	}
}

func TestMatchTemplate_Uniform(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 20, 10))
	tmpl := image.NewGray(image.Rect(0, 0, 5, 5))

	m, err := MatchTemplate(img, tmpl)
	if err != nil {
		t.Fatalf("MatchTemplate() error = %v", err)
	}
	if m.X != 0 || m.Y != 0 || m.Score != 0 {
		t.Errorf("uniform input should score 0 at origin, got %+v", m)
	}
}

func TestSlideOffset(t *testing.T) {
	bg := noiseImage(160, 50, 6)

	// The slider piece is the negative of the background at the gap.
	const gapX, gapY = 88, 9
	slider := image.NewGray(image.Rect(0, 0, 30, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			slider.SetGray(x, y, color.Gray{Y: 255 - bg.GrayAt(gapX+x, gapY+y).Y})
		}
	}

	x, err := SlideOffset(slider, bg)
	if err != nil {
		t.Fatalf("SlideOffset() error = %v", err)
	}
	if x != gapX {
		t.Errorf("SlideOffset() = %d, want %d", x, gapX)
	}
}

func TestDir_Save(t *testing.T) {
	root := filepath.Join(t.TempDir(), "images")
	d := NewDir(root)

	data, err := d.Save(SliderFile, noiseImage(8, 8, 7))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	onDisk, err := os.ReadFile(d.Path(SliderFile))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(onDisk) != string(data) {
		t.Error("returned bytes should match the written file")
	}

	img, err := Decode(onDisk)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("decoded width = %d, want 8", img.Bounds().Dx())
	}
}

func TestDir_WriteRaw(t *testing.T) {
	d := NewDir(filepath.Join(t.TempDir(), "nested", "images"))

	if err := d.WriteRaw(PageFile, []byte("raw")); err != nil {
		t.Fatalf("WriteRaw() error = %v", err)
	}
	if _, err := os.Stat(d.Path(PageFile)); err != nil {
		t.Errorf("file should exist: %v", err)
	}
}
