// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780test emulates an HD44780 display behind a PCF8574 backpack.
//
// A Panel answers on the I²C bus like the real backpack: it is a
// periph.io/x/conn/v3/i2c.Bus and a tinygo.org/x/drivers.I2C, and can also be
// used directly as an hd44780.Expander. The emulated controller decodes the
// E strobes, executes instructions, reports the busy flag and keeps DDRAM and
// CGRAM, so tests can check what ends up on screen.
package hd44780test

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Latch bits, see the hd44780 package.
const (
	pinRS        byte = 0x01
	pinRW        byte = 0x02
	pinE         byte = 0x04
	pinBacklight byte = 0x08

	busyFlag byte = 0x80

	// DefaultAddress is where New puts the backpack.
	DefaultAddress uint16 = 0x27

	lineLength = 40
)

var errNoRegisters = errors.New("hd44780test: PCF8574 has no registers")

// Op is one byte executed by the emulated controller.
type Op struct {
	// Data is true for a data register write, false for an instruction.
	Data  bool
	Value byte
}

func (op Op) String() string {
	if op.Data {
		return fmt.Sprintf("data(0x%02x)", op.Value)
	}
	return fmt.Sprintf("cmd(0x%02x)", op.Value)
}

// Panel is an emulated LCD module. The zero value is not usable, use New.
type Panel struct {
	// Addr is the I²C address the backpack answers on.
	Addr uint16
	// BusyReads is the number of busy flag reads that report busy after each
	// executed instruction or data write.
	BusyReads int
	// Stuck keeps the busy flag set forever.
	Stuck bool

	mu    sync.Mutex
	rows  int
	cols  int
	speed physic.Frequency
	err   error

	latch   byte
	writes  []byte
	ops     []Op
	polls   int
	fourBit bool
	second  bool
	high    byte
	busy    int

	ddram     [128]byte
	cgram     [64]byte
	ac        byte
	cgramMode bool
	increment bool
	autoShift bool
	shift     int
	displayOn bool
	cursorOn  bool
	blinkOn   bool
	twoLines  bool
	font5x10  bool
}

// New returns a powered up panel of rows x cols cells at DefaultAddress. Like
// the real controller it starts in 8 bit mode with the display off.
func New(rows, cols int) *Panel {
	p := &Panel{Addr: DefaultAddress, rows: rows, cols: cols, increment: true}
	for ix := range p.ddram {
		p.ddram[ix] = ' '
	}
	return p
}

// Fail makes every following bus transaction return err. A nil err restores
// normal operation.
func (p *Panel) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// String implements i2c.Bus.
func (p *Panel) String() string {
	return fmt.Sprintf("hd44780test(%dx%d)", p.rows, p.cols)
}

// SetSpeed implements i2c.Bus. The PCF8574 is specified up to 100kHz.
func (p *Panel) SetSpeed(f physic.Frequency) error {
	if f > 100*physic.KiloHertz {
		return fmt.Errorf("hd44780test: %s is above the PCF8574 maximum", f)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.speed = f
	return nil
}

// Speed returns the last bus speed set.
func (p *Panel) Speed() physic.Frequency {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// Tx implements i2c.Bus and drivers.I2C. Each written byte sets the
// expander latch; each read byte samples the lines.
func (p *Panel) Tx(addr uint16, w, r []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if addr != p.Addr {
		return fmt.Errorf("hd44780test: no device at 0x%x", addr)
	}
	for _, b := range w {
		p.write(b)
	}
	for ix := range r {
		r[ix] = p.read()
	}
	return nil
}

// ReadRegister implements drivers.I2C. It always fails.
func (p *Panel) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return errNoRegisters
}

// WriteRegister implements drivers.I2C. It always fails.
func (p *Panel) WriteRegister(addr uint8, r uint8, buf []byte) error {
	return errNoRegisters
}

// WriteGPIO sets the latch without going through I²C.
func (p *Panel) WriteGPIO(value byte) error {
	return p.Tx(p.Addr, []byte{value}, nil)
}

// ReadGPIO samples the lines without going through I²C.
func (p *Panel) ReadGPIO() (byte, error) {
	var r [1]byte
	err := p.Tx(p.Addr, nil, r[:])
	return r[0], err
}

// Writes returns every byte written to the latch, in order.
func (p *Panel) Writes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.writes...)
}

// Ops returns every byte the controller executed, in order.
func (p *Panel) Ops() []Op {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Op(nil), p.ops...)
}

// BusyPolls returns the number of complete busy flag reads.
func (p *Panel) BusyPolls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

// Reset forgets the recorded writes, ops and polls. Display state is kept.
func (p *Panel) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = nil
	p.ops = nil
	p.polls = 0
}

// Backlight reports the backlight line of the latch.
func (p *Panel) Backlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latch&pinBacklight != 0
}

// State is the controller configuration.
type State struct {
	FourBit   bool
	TwoLines  bool
	Font5x10  bool
	DisplayOn bool
	CursorOn  bool
	BlinkOn   bool
	Increment bool
	AutoShift bool
	// Address is the address counter.
	Address byte
}

// State returns the controller configuration.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		FourBit:   p.fourBit,
		TwoLines:  p.twoLines,
		Font5x10:  p.font5x10,
		DisplayOn: p.displayOn,
		CursorOn:  p.cursorOn,
		BlinkOn:   p.blinkOn,
		Increment: p.increment,
		AutoShift: p.autoShift,
		Address:   p.ac,
	}
}

// Text returns the visible characters, one string per row, as character
// codes. Display shifts are applied.
func (p *Panel) Text() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	lines := make([]string, p.rows)
	for row := range p.rows {
		b := make([]byte, p.cols)
		for col := range p.cols {
			b[col] = p.cell(row, col)
		}
		lines[row] = string(b)
	}
	return lines
}

// Glyph returns the CGRAM rows of custom character slot.
func (p *Panel) Glyph(slot int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.font5x10 {
		return append([]byte(nil), p.cgram[(slot%4)*16:(slot%4)*16+11]...)
	}
	return append([]byte(nil), p.cgram[(slot%8)*8:(slot%8)*8+8]...)
}

// cell returns the character shown at row, col.
func (p *Panel) cell(row, col int) byte {
	base := 0
	if row%2 == 1 {
		base = 0x40
	}
	offset := col + p.shift
	if row >= 2 {
		offset += p.cols
	}
	offset %= lineLength
	if offset < 0 {
		offset += lineLength
	}
	return p.ddram[base+offset]
}

// read samples the lines. The controller only drives D7..D4 while E is high
// in a read cycle; the expander lines are open drain so either side can pull
// a line low.
func (p *Panel) read() byte {
	v := p.latch
	if p.fourBit && v&pinE != 0 && v&pinRW != 0 {
		var status byte
		if v&pinRS == 0 {
			status = p.ac & 0x7f
			if p.Stuck || p.busy > 0 {
				status |= busyFlag
			}
		} else {
			status = p.ddram[p.ac&0x7f]
		}
		nibble := status & 0xf0
		if p.second {
			nibble = status << 4
		}
		v &= nibble | 0x0f
	}
	return v
}

func (p *Panel) write(v byte) {
	prev := p.latch
	p.latch = v
	p.writes = append(p.writes, v)
	if prev&pinE != 0 && v&pinE == 0 {
		p.strobe(prev)
	}
}

// strobe handles a falling edge of E with the bus in state v.
func (p *Panel) strobe(v byte) {
	rs := v&pinRS != 0
	nibble := v & 0xf0
	if !p.fourBit {
		// D3..D0 are not wired, they read as 0.
		if v&pinRW == 0 {
			p.execute(rs, nibble)
		}
		return
	}
	if !p.second {
		p.high = nibble
		p.second = true
		return
	}
	p.second = false
	if v&pinRW != 0 {
		if !rs {
			p.polls++
			if p.busy > 0 {
				p.busy--
			}
		}
		return
	}
	p.execute(rs, p.high|nibble>>4)
}

func (p *Panel) execute(data bool, b byte) {
	p.ops = append(p.ops, Op{Data: data, Value: b})
	p.busy = p.BusyReads
	if data {
		if p.cgramMode {
			p.cgram[p.ac&0x3f] = b
			if p.increment {
				p.ac = (p.ac + 1) & 0x3f
			} else {
				p.ac = (p.ac - 1) & 0x3f
			}
			return
		}
		p.ddram[p.ac&0x7f] = b
		p.ac = p.advance(p.ac, p.increment)
		if p.autoShift {
			if p.increment {
				p.shift++
			} else {
				p.shift--
			}
		}
		return
	}
	switch {
	case b&0x80 != 0:
		p.ac = b & 0x7f
		p.cgramMode = false
	case b&0x40 != 0:
		p.ac = b & 0x3f
		p.cgramMode = true
	case b&0x20 != 0:
		p.fourBit = b&0x10 == 0
		p.twoLines = b&0x08 != 0
		p.font5x10 = b&0x04 != 0
		p.second = false
	case b&0x10 != 0:
		right := b&0x04 != 0
		if b&0x08 != 0 {
			if right {
				p.shift--
			} else {
				p.shift++
			}
		} else {
			p.ac = p.advance(p.ac, right)
		}
	case b&0x08 != 0:
		p.displayOn = b&0x04 != 0
		p.cursorOn = b&0x02 != 0
		p.blinkOn = b&0x01 != 0
	case b&0x04 != 0:
		p.increment = b&0x02 != 0
		p.autoShift = b&0x01 != 0
	case b&0x02 != 0:
		p.ac = 0
		p.shift = 0
		p.cgramMode = false
	case b&0x01 != 0:
		for ix := range p.ddram {
			p.ddram[ix] = ' '
		}
		p.ac = 0
		p.shift = 0
		p.increment = true
		p.cgramMode = false
	}
}

// advance moves a DDRAM address one cell. In 2 line mode the lines are
// 0x00-0x27 and 0x40-0x67, the end of one continues at the start of the
// other.
func (p *Panel) advance(ac byte, forward bool) byte {
	if !p.twoLines {
		if forward {
			return (ac + 1) % 80
		}
		return (ac + 79) % 80
	}
	line, pos := ac&0x40, int(ac&0x3f)
	if forward {
		pos++
		if pos == lineLength {
			return line ^ 0x40
		}
		return line | byte(pos)
	}
	if pos == 0 {
		return (line ^ 0x40) | (lineLength - 1)
	}
	return line | byte(pos-1)
}

var _ i2c.Bus = &Panel{}
