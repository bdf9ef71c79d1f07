package display

import (
	"fmt"

	"github.com/jezek/xgb/xproto"
)

const allPlanes = 0xffffffff

// ScreenGrabber captures one monitor's region of the root window as packed
// BGR frames.
type ScreenGrabber struct {
	display *Display
	monitor Monitor
	frame   []byte
}

// Grabber returns a frame source for the given 1-based monitor index.
func (d *Display) Grabber(index int) (*ScreenGrabber, error) {
	monitor, err := d.Monitor(index)
	if err != nil {
		return nil, err
	}
	return &ScreenGrabber{
		display: d,
		monitor: monitor,
		frame:   make([]byte, monitor.Width*monitor.Height*3),
	}, nil
}

// Size returns the captured frame dimensions in pixels.
func (g *ScreenGrabber) Size() (int, int) {
	return g.monitor.Width, g.monitor.Height
}

// Grab fetches the current monitor contents as BGR24. The returned slice is
// reused across calls; consumers must copy or write it out before the next
// Grab.
func (g *ScreenGrabber) Grab() ([]byte, error) {
	reply, err := xproto.GetImage(
		g.display.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(g.display.root),
		int16(g.monitor.X),
		int16(g.monitor.Y),
		uint16(g.monitor.Width),
		uint16(g.monitor.Height),
		allPlanes,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}

	expected := g.monitor.Width * g.monitor.Height * 4
	if len(reply.Data) < expected {
		return nil, fmt.Errorf("short image data: got %d bytes, want %d", len(reply.Data), expected)
	}

	stripAlpha(g.frame, reply.Data, g.monitor.Width*g.monitor.Height)
	return g.frame, nil
}

// stripAlpha packs BGRX pixel data into BGR, dropping the pad/alpha byte.
func stripAlpha(dst, src []byte, pixels int) {
	for i := 0; i < pixels; i++ {
		dst[i*3] = src[i*4]
		dst[i*3+1] = src[i*4+1]
		dst[i*3+2] = src[i*4+2]
	}
}
