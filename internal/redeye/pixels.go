package redeye

import (
	"image"
	"image/color"
	"image/draw"
)

// raster is the narrow pixel contract the engine needs from an image: read
// and write the three colour channels of one pixel. Alpha is never changed.
type raster interface {
	rgb(x, y int) (r, g, b uint8)
	setRGB(x, y int, r, g, b uint8)
}

func newRaster(img draw.Image) raster {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgbaRaster{nrgba}
	}
	return genericRaster{img}
}

// nrgbaRaster reads and writes Pix directly.
type nrgbaRaster struct {
	img *image.NRGBA
}

func (p nrgbaRaster) rgb(x, y int) (r, g, b uint8) {
	i := p.img.PixOffset(x, y)
	s := p.img.Pix[i : i+3 : i+3]
	return s[0], s[1], s[2]
}

func (p nrgbaRaster) setRGB(x, y int, r, g, b uint8) {
	i := p.img.PixOffset(x, y)
	s := p.img.Pix[i : i+3 : i+3]
	s[0], s[1], s[2] = r, g, b
}

// genericRaster goes through the colour model of any other draw.Image.
type genericRaster struct {
	img draw.Image
}

func (p genericRaster) rgb(x, y int) (r, g, b uint8) {
	c := color.NRGBAModel.Convert(p.img.At(x, y)).(color.NRGBA)
	return c.R, c.G, c.B
}

func (p genericRaster) setRGB(x, y int, r, g, b uint8) {
	c := color.NRGBAModel.Convert(p.img.At(x, y)).(color.NRGBA)
	p.img.Set(x, y, color.NRGBA{R: r, G: g, B: b, A: c.A})
}
