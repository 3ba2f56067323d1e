package display

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

const (
	oledWidth  = 128
	oledHeight = 64

	// Face7x13 fits 18 columns and 4 text rows on a 128x64 panel with the
	// header line taken by the state label.
	oledCols     = 18
	oledBodyRows = 4
	lineHeight   = 13
)

// OLEDRenderer draws frames on a 128x64 SSD1306 panel over I2C. The top
// line carries the state label, the rest wraps the body text.
type OLEDRenderer struct {
	mu  sync.Mutex
	bus i2c.BusCloser
	dev *ssd1306.Dev
}

// NewOLEDRenderer initialises the host drivers, opens the I2C bus and
// probes the panel. busName may be empty to use the first available bus.
func NewOLEDRenderer(busName string) (*OLEDRenderer, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("opening i2c bus %q: %w", busName, err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("probing ssd1306: %w", err)
	}

	return &OLEDRenderer{bus: bus, dev: dev}, nil
}

// Render draws the frame into an off-screen 1-bit image and pushes it to
// the panel in one transfer.
func (r *OLEDRenderer) Render(frame Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))
	drawer := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: image1bit.On},
		Face: basicfont.Face7x13,
	}

	header := frame.State.String()
	if frame.State == StateIdle {
		header += " " + strings.Repeat(".", frame.Anim%4)
	}
	drawer.Dot = fixed.P(0, lineHeight)
	drawer.DrawString(header)

	lines := wrapText(frame.Text, oledCols)
	if len(lines) > oledBodyRows {
		// Keep the tail so streaming text scrolls.
		lines = lines[len(lines)-oledBodyRows:]
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, lineHeight*(i+2))
		drawer.DrawString(line)
	}

	if err := r.dev.Draw(img.Bounds(), img, image.Point{}); err != nil {
		return fmt.Errorf("drawing frame: %w", err)
	}
	return nil
}

// Close blanks the panel and releases the bus.
func (r *OLEDRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	haltErr := r.dev.Halt()
	if err := r.bus.Close(); err != nil {
		return fmt.Errorf("closing i2c bus: %w", err)
	}
	if haltErr != nil {
		return fmt.Errorf("halting panel: %w", haltErr)
	}
	return nil
}

// wrapText breaks text into lines of at most cols characters, wrapping on
// word boundaries where possible.
func wrapText(text string, cols int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	var line strings.Builder
	for _, word := range words {
		for len(word) > cols {
			if line.Len() > 0 {
				lines = append(lines, line.String())
				line.Reset()
			}
			lines = append(lines, word[:cols])
			word = word[cols:]
		}
		switch {
		case line.Len() == 0:
			line.WriteString(word)
		case line.Len()+1+len(word) <= cols:
			line.WriteString(" ")
			line.WriteString(word)
		default:
			lines = append(lines, line.String())
			line.Reset()
			line.WriteString(word)
		}
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
