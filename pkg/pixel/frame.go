package pixel

import (
	"encoding/json"
	"image"
	"image/color"
)

// DefaultWidth and DefaultHeight are the camera geometry used by the firmware.
const (
	DefaultWidth  = 96
	DefaultHeight = 96
)

// EventType is the event type name of a decoded frame.
const EventType = "frame"

// RGB is a decoded pixel.
type RGB struct {
	R, G, B uint8
}

// RGBA implements color.Color.
func (c RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}.RGBA()
}

// MarshalJSON encodes the pixel as [r,g,b].
func (c RGB) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]uint8{c.R, c.G, c.B})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *RGB) UnmarshalJSON(data []byte) error {
	var v [3]uint8
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c.R, c.G, c.B = v[0], v[1], v[2]
	return nil
}

// Geometry is the fixed frame size.
type Geometry struct {
	Width  int
	Height int
}

// DefaultGeometry returns the default camera geometry.
func DefaultGeometry() Geometry {
	return Geometry{Width: DefaultWidth, Height: DefaultHeight}
}

// PayloadSize is the raw payload length of one frame.
func (g Geometry) PayloadSize() int {
	return g.Width * g.Height * BytesPerPixel
}

// Frame is a decoded image in row-major order.
// A Frame must not be modified once it is shared.
type Frame struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Pix    []RGB `json:"pixels"`
}

// EventType implements event.Event.
func (f *Frame) EventType() string { return EventType }

// RGBAt returns the pixel at column x, row y.
func (f *Frame) RGBAt(x, y int) RGB {
	return f.Pix[y*f.Width+x]
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.RGBA{}
	}
	return f.RGBAt(x, y)
}

// Scaled returns a nearest-neighbour upscaled RGBA copy.
func (f *Frame) Scaled(scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width*scale, f.Height*scale))
	for y := 0; y < f.Height*scale; y++ {
		for x := 0; x < f.Width*scale; x++ {
			c := f.RGBAt(x/scale, y/scale)
			img.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return img
}
