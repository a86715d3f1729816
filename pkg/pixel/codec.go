package pixel

import "sync/atomic"

// BytesPerPixel is the size of a packed RGB565 pixel on the wire.
const BytesPerPixel = 2

// Flags is a snapshot of the orientation toggles used for one decode.
type Flags struct {
	ByteSwap    bool `json:"byte_swap"`
	ChannelSwap bool `json:"channel_swap"`
}

// Orientation holds the orientation toggles shared between a control
// surface and the decoding goroutine. Last write wins.
type Orientation struct {
	byteSwap    atomic.Bool
	channelSwap atomic.Bool
}

// NewOrientation creates an Orientation with initial flags.
func NewOrientation(f Flags) *Orientation {
	o := &Orientation{}
	o.Set(f)
	return o
}

// Flags takes a snapshot. A nil Orientation yields zero flags.
func (o *Orientation) Flags() Flags {
	if o == nil {
		return Flags{}
	}
	return Flags{ByteSwap: o.byteSwap.Load(), ChannelSwap: o.channelSwap.Load()}
}

// Set replaces both flags.
func (o *Orientation) Set(f Flags) {
	o.byteSwap.Store(f.ByteSwap)
	o.channelSwap.Store(f.ChannelSwap)
}

// SetByteSwap sets the byte swap flag.
func (o *Orientation) SetByteSwap(on bool) {
	o.byteSwap.Store(on)
}

// SetChannelSwap sets the channel swap flag.
func (o *Orientation) SetChannelSwap(on bool) {
	o.channelSwap.Store(on)
}

// ToggleByteSwap flips the byte swap flag and returns the new value.
func (o *Orientation) ToggleByteSwap() bool {
	for {
		old := o.byteSwap.Load()
		if o.byteSwap.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// ToggleChannelSwap flips the channel swap flag and returns the new value.
func (o *Orientation) ToggleChannelSwap() bool {
	for {
		old := o.channelSwap.Load()
		if o.channelSwap.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Decode converts one packed RGB565 value into 8-bit channels.
func Decode(px uint16, f Flags) RGB {
	if f.ByteSwap {
		px = px<<8 | px>>8
	}
	r := uint8((px>>11)&0x1f) << 3
	g := uint8((px>>5)&0x3f) << 2
	b := uint8(px&0x1f) << 3
	if f.ChannelSwap {
		return RGB{R: b, G: g, B: r}
	}
	return RGB{R: r, G: g, B: b}
}

// DecodeFrame decodes a raw buffer into a width x height frame.
// It returns false unless the buffer holds exactly width*height pixels.
func DecodeFrame(raw []byte, width, height int, f Flags) (*Frame, bool) {
	if width <= 0 || height <= 0 || len(raw) != width*height*BytesPerPixel {
		return nil, false
	}
	frame := &Frame{Width: width, Height: height, Pix: make([]RGB, width*height)}
	for i := range frame.Pix {
		px := uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
		frame.Pix[i] = Decode(px, f)
	}
	return frame, true
}
