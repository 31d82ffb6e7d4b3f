package report

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG for Decode
	_ "image/png"  // register PNG for Decode
)

// ErrUnsupportedImage is returned for image data that is neither PNG nor JPEG.
var ErrUnsupportedImage = errors.New("unsupported image format")

// Canvas is the drawing surface the quote pages are laid out on.
// Coordinates are in points from the top-left corner of the current page;
// y is the text baseline.
type Canvas interface {
	AddPage()
	SetFont(f Font)
	Text(x, y float64, s string)
	TextWidth(s string) float64
	Line(x1, y1, x2, y2 float64)
	// DrawImage places img with its top-left corner at (x, y). A failure
	// affects only the image; the canvas stays usable.
	DrawImage(img Image, x, y, w, h float64) error
	// Err reports the first unrecoverable drawing error.
	Err() error
}

// Image is an embeddable raster image with its pixel dimensions.
type Image struct {
	Name   string
	Type   string // "PNG" or "JPG"
	Width  int
	Height int
	Data   []byte
}

// ProbeImage identifies PNG or JPEG data and reads its dimensions. The whole
// image is decoded so that truncated or corrupt data is rejected here.
func ProbeImage(name string, data []byte) (Image, error) {
	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	var typ string
	switch format {
	case "png":
		typ = "PNG"
	case "jpeg":
		typ = "JPG"
	default:
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}
	b := decoded.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Image{}, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	return Image{Name: name, Type: typ, Width: b.Dx(), Height: b.Dy(), Data: data}, nil
}

// centerText draws s horizontally centred on the page.
func centerText(c Canvas, y float64, s string) {
	c.Text((PageWidth-c.TextWidth(s))/2, y, s)
}
