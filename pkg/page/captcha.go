package page

import (
	"image"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/PentesterFlow/OpenPage/internal/errors"
	"github.com/PentesterFlow/OpenPage/internal/vision"
)

// SecurityCode reads the text of an image captcha. The element is cropped
// out of a viewport screenshot, scaled by dpi, and sent to the classifier.
func (p *Page) SecurityCode(loc Locator, dpi float64) (string, error) {
	var text string
	err := p.do("security_code", loc.String(), func() error {
		crops, err := p.capture("security_code", dpi, loc)
		if err != nil {
			return err
		}

		data, err := p.images.Save(vision.SecurityCodeFile, crops[0])
		if err != nil {
			return errors.NewIOError("security_code", p.images.Path(vision.SecurityCodeFile), err)
		}

		text, err = p.classifier.Classify(p.ctx, data)
		p.metrics.RecordCaptcha(err != nil)
		if err != nil {
			return err
		}

		p.log.CaptchaEvent("security_code", text, dpi)
		return nil
	})
	return text, err
}

// SliderDistance asks the recognition service how far the slider piece
// must travel to fill the gap in the background.
func (p *Page) SliderDistance(slider, background Locator, dpi float64) (int, error) {
	var x int
	err := p.do("slider_distance", slider.String(), func() error {
		crops, err := p.capture("slider_distance", dpi, slider, background)
		if err != nil {
			return err
		}

		target, err := p.images.Save(vision.SliderFile, crops[0])
		if err != nil {
			return errors.NewIOError("slider_distance", p.images.Path(vision.SliderFile), err)
		}
		bg, err := p.images.Save(vision.BackgroundFile, crops[1])
		if err != nil {
			return errors.NewIOError("slider_distance", p.images.Path(vision.BackgroundFile), err)
		}

		res, err := p.classifier.SlideMatch(p.ctx, target, bg)
		if err == nil {
			x, err = res.X()
		}
		p.metrics.RecordCaptcha(err != nil)
		if err != nil {
			return err
		}

		p.log.CaptchaEvent("slider", x, dpi)
		return nil
	})
	return x, err
}

// SliderDistanceLocal finds the slider gap without the recognition
// service by template matching the grey slider over the inverted grey
// background.
func (p *Page) SliderDistanceLocal(slider, background Locator, dpi float64) (int, error) {
	var x int
	err := p.do("slider_distance_local", slider.String(), func() error {
		crops, err := p.capture("slider_distance_local", dpi, slider, background)
		if err != nil {
			return err
		}

		sliderGrey, bgInverted := vision.PrepareSlide(crops[0], crops[1])
		saves := []struct {
			name string
			img  image.Image
		}{
			{vision.SliderFile, crops[0]},
			{vision.BackgroundFile, crops[1]},
			{vision.SliderGreyFile, sliderGrey},
			{vision.BackgroundGrey, bgInverted},
		}
		for _, s := range saves {
			if _, err := p.images.Save(s.name, s.img); err != nil {
				return errors.NewIOError("slider_distance_local", p.images.Path(s.name), err)
			}
		}

		m, err := vision.MatchTemplate(bgInverted, sliderGrey)
		p.metrics.RecordCaptcha(err != nil)
		if err != nil {
			return errors.NewRecognitionError("slider_distance_local", "template matching failed", err)
		}

		x = m.X
		p.log.WithField("score", m.Score).CaptchaEvent("slider_local", x, dpi)
		return nil
	})
	return x, err
}

// capture screenshots the viewport to page.png and returns the crop of
// each located element scaled by dpi.
func (p *Page) capture(operation string, dpi float64, locs ...Locator) ([]image.Image, error) {
	if dpi <= 0 {
		return nil, errors.NewInvalidArgumentError(operation, "dpi must be positive")
	}

	data, rects, err := p.grab(operation, locs)
	if err != nil {
		return nil, err
	}
	if err := p.images.WriteRaw(vision.PageFile, data); err != nil {
		return nil, errors.NewIOError(operation, p.images.Path(vision.PageFile), err)
	}
	return cropRects(operation, data, rects, locs, dpi)
}

// grabViewport resolves every locator to its on-screen box and takes the
// viewport screenshot they refer to.
func (p *Page) grabViewport(operation string, locs []Locator) ([]byte, []*proto.DOMRect, error) {
	els := make([]*rod.Element, len(locs))
	for i, loc := range locs {
		el, err := p.find(operation, loc, p.implicitWait)
		if err != nil {
			return nil, nil, err
		}
		els[i] = el
	}

	data, err := p.screenshot()
	if err != nil {
		return nil, nil, err
	}

	rects := make([]*proto.DOMRect, len(els))
	for i, el := range els {
		shape, err := el.Shape()
		if err != nil {
			return nil, nil, err
		}
		rects[i] = shape.Box()
	}
	return data, rects, nil
}

// cropRects cuts each CSS-pixel rect out of the PNG screenshot.
func cropRects(operation string, data []byte, rects []*proto.DOMRect, locs []Locator, dpi float64) ([]image.Image, error) {
	shot, err := vision.Decode(data)
	if err != nil {
		return nil, errors.NewRecognitionError(operation, "screenshot is not a valid image", err)
	}

	crops := make([]image.Image, len(rects))
	for i, rect := range rects {
		if rect == nil {
			return nil, errors.NewNotInteractableError(operation, locs[i].String(), nil)
		}

		box := vision.ScaleBox(rect.X, rect.Y, rect.Width, rect.Height, dpi)
		crop, err := vision.Crop(shot, box)
		if err != nil {
			return nil, errors.NewRecognitionError(operation, "element lies outside the screenshot", err)
		}
		crops[i] = crop
	}
	return crops, nil
}
