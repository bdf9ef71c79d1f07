package display

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xinerama"
	"github.com/jezek/xgb/xproto"
)

// Monitor describes one attached screen.
type Monitor struct {
	Index  int
	Width  int
	Height int
	X      int
	Y      int
}

// Display wraps an X connection and the monitor layout discovered at open.
type Display struct {
	conn     *xgb.Conn
	root     xproto.Window
	monitors []Monitor
}

// Open connects to the X server and enumerates monitors. Xinerama provides
// per-monitor geometry; without it the root screen is reported as a single
// monitor.
func Open() (*Display, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	screen := xproto.Setup(conn).DefaultScreen(conn)
	d := &Display{conn: conn, root: screen.Root}

	if err := xinerama.Init(conn); err == nil {
		if reply, err := xinerama.QueryScreens(conn).Reply(); err == nil {
			for i, info := range reply.ScreenInfo {
				if info.Width == 0 || info.Height == 0 {
					continue
				}
				d.monitors = append(d.monitors, Monitor{
					Index:  i + 1,
					Width:  int(info.Width),
					Height: int(info.Height),
					X:      int(info.XOrg),
					Y:      int(info.YOrg),
				})
			}
		}
	}

	if len(d.monitors) == 0 {
		d.monitors = []Monitor{{
			Index:  1,
			Width:  int(screen.WidthInPixels),
			Height: int(screen.HeightInPixels),
		}}
	}

	return d, nil
}

// Close releases the X connection.
func (d *Display) Close() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

// Monitors returns the enumerated monitor layout.
func (d *Display) Monitors() []Monitor {
	out := make([]Monitor, len(d.monitors))
	copy(out, d.monitors)
	return out
}

// Monitor returns the descriptor for a 1-based index.
func (d *Display) Monitor(index int) (Monitor, error) {
	for _, m := range d.monitors {
		if m.Index == index {
			return m, nil
		}
	}
	return Monitor{}, fmt.Errorf("monitor %d not found; %d available", index, len(d.monitors))
}

// Detect opens a short-lived connection and returns the monitor layout.
func Detect() ([]Monitor, error) {
	d, err := Open()
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.Monitors(), nil
}
