package printer

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

const (
	AlignLeft   = 0
	AlignCenter = 1
	AlignRight  = 2
)

const (
	FontNormal = 0x00
	FontDouble = 0x11
)

// Drawer pulse timings are in 2ms units; 255 gives the ~510ms pulse most
// drawers expect.
const (
	DrawerPin0     = 0
	DrawerPin1     = 1
	drawerPulseOn  = 0xFF
	drawerPulseOff = 0xFF
)

// Document accumulates an ESC/POS byte stream for a thermal printer.
type Document struct {
	buf   bytes.Buffer
	width int
}

// NewDocument starts a document for a paper width in characters (32 for
// 58mm rolls, 48 for 80mm).
func NewDocument(width int) *Document {
	if width <= 0 {
		width = 32
	}
	d := &Document{width: width}
	d.buf.Write([]byte{ESC, '@'})
	return d
}

func (d *Document) Width() int {
	return d.width
}

func (d *Document) Align(align int) *Document {
	d.buf.Write([]byte{ESC, 'a', byte(align)})
	return d
}

func (d *Document) Bold(on bool) *Document {
	var b byte
	if on {
		b = 1
	}
	d.buf.Write([]byte{ESC, 'E', b})
	return d
}

func (d *Document) Size(size byte) *Document {
	d.buf.Write([]byte{GS, '!', size})
	return d
}

func (d *Document) Line(s string) *Document {
	d.buf.WriteString(s)
	d.buf.WriteByte(LF)
	return d
}

func (d *Document) Linef(format string, args ...interface{}) *Document {
	return d.Line(fmt.Sprintf(format, args...))
}

func (d *Document) Feed(n int) *Document {
	for i := 0; i < n; i++ {
		d.buf.WriteByte(LF)
	}
	return d
}

func (d *Document) Rule(char byte) *Document {
	return d.Line(strings.Repeat(string(char), d.width))
}

// Columns writes key flush left and value flush right on one line.
func (d *Document) Columns(key, value string) *Document {
	gap := d.width - len(key) - len(value)
	if gap < 1 {
		gap = 1
	}
	return d.Line(key + strings.Repeat(" ", gap) + value)
}

func (d *Document) Cut() *Document {
	d.buf.Write([]byte{GS, 'V', 0x41, 0x03})
	return d
}

// KickDrawer appends the ESC p pulse that opens a cash drawer wired to the
// printer's drawer port.
func (d *Document) KickDrawer(pin byte) *Document {
	d.buf.Write([]byte{ESC, 'p', pin, drawerPulseOn, drawerPulseOff})
	return d
}

func (d *Document) Bytes() []byte {
	return d.buf.Bytes()
}

// DrawerPulse is the standalone command for opening the drawer.
func DrawerPulse(pin byte) []byte {
	return []byte{ESC, '@', ESC, 'p', pin, drawerPulseOn, drawerPulseOff}
}
