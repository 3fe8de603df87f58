package vision

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Match is the best template position found in an image.
type Match struct {
	X     int
	Y     int
	Score float64
}

// MatchTemplate slides tmpl over img and returns the position with the
// highest normalized correlation coefficient. Ties resolve to the first
// position in row-major order.
func MatchTemplate(img, tmpl image.Image) (Match, error) {
	src := toGrey(img)
	tpl := toGrey(tmpl)

	if tpl.w == 0 || tpl.h == 0 {
		return Match{}, fmt.Errorf("template is empty")
	}
	if tpl.w > src.w || tpl.h > src.h {
		return Match{}, fmt.Errorf("template %dx%d larger than image %dx%d", tpl.w, tpl.h, src.w, src.h)
	}

	n := float64(tpl.w * tpl.h)

	var tSum float64
	for _, v := range tpl.pix {
		tSum += v
	}
	tMean := tSum / n

	tPrime := make([]float64, len(tpl.pix))
	var tNorm float64
	for i, v := range tpl.pix {
		tPrime[i] = v - tMean
		tNorm += tPrime[i] * tPrime[i]
	}

	sum, sqsum := integral(src)
	stride := src.w + 1
	window := func(table []float64, x, y int) float64 {
		x2, y2 := x+tpl.w, y+tpl.h
		return table[y2*stride+x2] - table[y*stride+x2] - table[y2*stride+x] + table[y*stride+x]
	}

	best := Match{Score: math.Inf(-1)}
	for y := 0; y+tpl.h <= src.h; y++ {
		for x := 0; x+tpl.w <= src.w; x++ {
			var num float64
			for j := 0; j < tpl.h; j++ {
				row := (y+j)*src.w + x
				trow := j * tpl.w
				for i := 0; i < tpl.w; i++ {
					num += tPrime[trow+i] * src.pix[row+i]
				}
			}

			s := window(sum, x, y)
			iVar := window(sqsum, x, y) - s*s/n
			den := math.Sqrt(tNorm * math.Max(iVar, 0))

			score := 0.0
			if den > 1e-9 {
				score = num / den
			}
			if score > best.Score {
				best = Match{X: x, Y: y, Score: score}
			}
		}
	}

	return best, nil
}

// PrepareSlide converts both slider captures to grey and inverts the
// background, which makes the gap stand out against the piece.
func PrepareSlide(slider, background image.Image) (sliderGrey, backgroundInverted *image.NRGBA) {
	return Grey(slider), Invert(Grey(background))
}

// SlideOffset returns the x offset of the slider piece in the background,
// matching the grey slider over the inverted grey background.
func SlideOffset(slider, background image.Image) (int, error) {
	s, bg := PrepareSlide(slider, background)
	m, err := MatchTemplate(bg, s)
	if err != nil {
		return 0, err
	}
	return m.X, nil
}

type greyMatrix struct {
	w, h int
	pix  []float64
}

func toGrey(img image.Image) greyMatrix {
	b := img.Bounds()
	g := greyMatrix{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			g.pix[y*g.w+x] = float64(c.Y)
		}
	}
	return g
}

// integral builds summed-area tables of values and squared values with a
// zero first row and column.
func integral(g greyMatrix) (sum, sqsum []float64) {
	stride := g.w + 1
	sum = make([]float64, stride*(g.h+1))
	sqsum = make([]float64, stride*(g.h+1))
	for y := 1; y <= g.h; y++ {
		var rowSum, rowSq float64
		for x := 1; x <= g.w; x++ {
			v := g.pix[(y-1)*g.w+(x-1)]
			rowSum += v
			rowSq += v * v
			sum[y*stride+x] = sum[(y-1)*stride+x] + rowSum
			sqsum[y*stride+x] = sqsum[(y-1)*stride+x] + rowSq
		}
	}
	return sum, sqsum
}
