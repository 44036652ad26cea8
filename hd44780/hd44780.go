// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls the Hitachi LCD display chipset HD-44780 wired
// to an 8 bit I/O expander, as found on the common LCD1602/LCD2004 I²C
// backpacks.
//
// The controller runs in 4 bit mode. Every byte is sent as two nibbles on
// D7..D4, high nibble first, and the busy flag is polled after each
// instruction so no fixed command delays are needed.
//
// The package is split in three layers: pure instruction encoding
// (ClearDisplay, FunctionSet, ...), the nibble transport over an Expander
// (Transport), and the display controller (Dev).
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

const (
	packageName = "hd44780"

	// DefaultRows and DefaultCols describe an LCD1602.
	DefaultRows = 2
	DefaultCols = 16
	// MaxRows and MaxCols bound what one controller can address: two 40
	// character DDRAM lines, split in two on 4 line panels.
	MaxRows = 4
	MaxCols = 40

	busyFlag byte = 0x80
	// DDRAM offset of the second line in 2 line mode.
	rowStride byte = 0x40
)

const (
	delayPowerOn     time.Duration = 50 * time.Millisecond
	delayFunctionSet time.Duration = 5 * time.Millisecond
	delayBusyPoll    time.Duration = time.Millisecond
)

var (
	// ErrBusyTimeout is returned when Opts.BusyTimeout is set and the busy
	// flag didn't clear in time.
	ErrBusyTimeout = errors.New("hd44780: busy flag did not clear")
	// ErrNotImplemented is returned by operations the controller can't do.
	ErrNotImplemented = fmt.Errorf("%s: %w", packageName, display.ErrNotImplemented)
)

func wrap(err error) error {
	if err == nil || strings.HasPrefix(err.Error(), packageName) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

// Opts holds the display configuration. The zero value is a 2x16 display
// with the 5x8 font.
type Opts struct {
	Rows int
	Cols int
	Font Font
	// BusyTimeout bounds how long a single instruction may keep the busy flag
	// set, measured as accumulated poll delay. Zero waits forever.
	BusyTimeout time.Duration
	// Logger receives debug traces. Defaults to logrus.StandardLogger().
	Logger *logrus.Logger

	_ struct{}
}

// Dev is an HD44780 display behind an Expander.
//
// Implements periph.io/conn/x/display/TextDisplay and display.DisplayBacklight
type Dev struct {
	mu          sync.Mutex
	t           *Transport
	exp         Expander
	log         *logrus.Entry
	sleep       func(time.Duration)
	busyTimeout time.Duration

	rows int
	cols int
	font Font
	row  int
	col  int

	on        bool
	cursor    bool
	blink     bool
	backlight bool

	// Bus framing for the next transfer, only changed through frame().
	rs byte
	rw byte
}

// New initializes the display connected to exp and returns it ready for use.
//
// Initialization takes about 70ms; the controller is reset into 4 bit mode
// regardless of its prior state.
func New(exp Expander, opts *Opts) (*Dev, error) {
	return newDev(exp, opts, time.Sleep)
}

func newDev(exp Expander, opts *Opts, sleep func(time.Duration)) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	dev := &Dev{
		t:           NewTransport(exp),
		exp:         exp,
		sleep:       sleep,
		busyTimeout: opts.BusyTimeout,
		rows:        opts.Rows,
		cols:        opts.Cols,
		font:        opts.Font,
		on:          true,
		cursor:      true,
	}
	if dev.rows <= 0 {
		dev.rows = DefaultRows
	}
	if dev.cols <= 0 {
		dev.cols = DefaultCols
	}
	if dev.rows > MaxRows || dev.cols > MaxCols || (dev.rows > 2 && dev.cols > MaxCols/2) {
		return nil, fmt.Errorf("%s: %dx%d display not supported", packageName, dev.rows, dev.cols)
	}
	dev.log = logger.WithField("device", dev.String())
	dev.t.sleep = sleep
	dev.t.log = dev.log

	if err := dev.init(); err != nil {
		return nil, wrap(err)
	}
	return dev, nil
}

// init runs the "initializing by instruction" sequence from figure 24 of the
// datasheet. The first four transfers are single nibbles sent while the
// controller may still be in 8 bit mode, so the busy flag can't be read yet.
func (dev *Dev) init() error {
	dev.log.Debug("init")
	dev.sleep(delayPowerOn)

	wake := byte(FunctionSet(Bus8Bit, OneLine, Font5x8)) & DataMask
	for range 3 {
		if _, err := dev.t.PulseEnable(wake | dev.control()); err != nil {
			return err
		}
		dev.sleep(delayFunctionSet)
	}
	mode4 := byte(FunctionSet(Bus4Bit, OneLine, Font5x8)) & DataMask
	if _, err := dev.t.PulseEnable(mode4 | dev.control()); err != nil {
		return err
	}
	dev.sleep(delayFunctionSet)

	lines := OneLine
	if dev.rows > 1 {
		lines = TwoLines
	}
	if err := dev.send(FunctionSet(Bus4Bit, lines, dev.font)); err != nil {
		return err
	}
	if err := dev.configureDisplay(); err != nil {
		return err
	}
	if err := dev.clear(); err != nil {
		return err
	}
	if err := dev.send(EntryModeSet(Increment, false)); err != nil {
		return err
	}
	return dev.setBacklight(true)
}

// control returns the low nibble framing every expander write.
func (dev *Dev) control() byte {
	c := dev.rs | dev.rw
	if dev.backlight {
		c |= PinBacklight
	}
	return c
}

// frame runs fn with the register select and read/write lines set to rs and
// rw, restoring the previous values on return.
func (dev *Dev) frame(rs, rw byte, fn func() error) error {
	prevRS, prevRW := dev.rs, dev.rw
	dev.rs, dev.rw = rs, rw
	defer func() {
		dev.rs, dev.rw = prevRS, prevRW
	}()
	return fn()
}

// send transmits op using the current framing and then waits for the
// controller to finish executing it.
func (dev *Dev) send(op Opcode) error {
	if dev.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		dev.log.Debugf("send 0x%02x rs=%d", byte(op), dev.rs)
	}
	if _, err := dev.t.SendByte(byte(op), dev.control()); err != nil {
		return err
	}
	return dev.waitReady()
}

// waitReady polls the busy flag until it clears. Without a BusyTimeout a
// stuck flag blocks forever.
func (dev *Dev) waitReady() error {
	return dev.frame(0, PinRW, func() error {
		var waited time.Duration
		for {
			response, err := dev.t.SendByte(byte(ReadBusyFlag()), dev.control())
			if err != nil {
				return err
			}
			if response&busyFlag == 0 {
				return nil
			}
			if dev.busyTimeout > 0 && waited >= dev.busyTimeout {
				return ErrBusyTimeout
			}
			dev.sleep(delayBusyPoll)
			waited += delayBusyPoll
		}
	})
}

func (dev *Dev) instruction(op Opcode) error {
	return dev.frame(0, 0, func() error {
		return dev.send(op)
	})
}

func (dev *Dev) configureDisplay() error {
	return dev.instruction(DisplayControl(dev.on, dev.cursor, dev.blink))
}

func (dev *Dev) clear() error {
	if err := dev.instruction(ClearDisplay()); err != nil {
		return err
	}
	dev.row, dev.col = 0, 0
	return nil
}

func (dev *Dev) setBacklight(on bool) error {
	dev.backlight = on
	return dev.frame(0, 0, func() error {
		_, err := dev.t.SendByte(0, dev.control())
		return err
	})
}

// rowOffset returns the DDRAM address of the first cell of row. 4 line
// panels continue lines 0 and 1 into lines 2 and 3.
func (dev *Dev) rowOffset(row int) byte {
	offset := byte(row%2) * rowStride
	if row >= 2 {
		offset += byte(dev.cols)
	}
	return offset
}

func (dev *Dev) setPosition(row, col int) error {
	dev.row = mod(row, dev.rows)
	dev.col = mod(col, dev.cols)
	address := dev.rowOffset(dev.row) + byte(dev.col)
	return dev.instruction(DDRAMAddressSet(address))
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

// Clear clears the display and moves the cursor to row 0, column 0.
func (dev *Dev) Clear() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return wrap(dev.clear())
}

// Home moves the cursor to row 0, column 0 without clearing the display.
func (dev *Dev) Home() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.instruction(ReturnHome()); err != nil {
		return wrap(err)
	}
	dev.row, dev.col = 0, 0
	return nil
}

// SetPosition moves the cursor to the zero based row and col. Both wrap
// around the display size.
func (dev *Dev) SetPosition(row, col int) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return wrap(dev.setPosition(row, col))
}

// Position returns the zero based cursor position as tracked by the driver.
func (dev *Dev) Position() (row, col int) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.row, dev.col
}

// Write writes p at the cursor. A newline, or reaching the end of a line,
// moves to the start of the next line, wrapping from the last line back to
// the first. Bytes are character codes of the controller's font ROM.
func (dev *Dev) Write(p []byte) (n int, err error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	err = dev.frame(PinRS, 0, func() error {
		for _, c := range p {
			if c == '\n' || dev.col == dev.cols {
				if err := dev.setPosition(dev.row+1, 0); err != nil {
					return err
				}
			}
			if c != '\n' {
				if err := dev.send(Opcode(c)); err != nil {
					return err
				}
				dev.col++
			}
			n++
		}
		return nil
	})
	return n, wrap(err)
}

// WriteString writes text to the display.
func (dev *Dev) WriteString(text string) (int, error) {
	return dev.Write([]byte(text))
}

// SetBacklight turns the backlight on or off. The backlight line is part of
// every expander write, so this only re-latches it.
func (dev *Dev) SetBacklight(on bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return wrap(dev.setBacklight(on))
}

// SetCursor shows or hides the underline cursor.
func (dev *Dev) SetCursor(on bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.cursor = on
	return wrap(dev.configureDisplay())
}

// SetBlink turns the blinking block cursor on or off.
func (dev *Dev) SetBlink(on bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.blink = on
	return wrap(dev.configureDisplay())
}

// Turn the display on / off. DDRAM is kept while the display is off.
func (dev *Dev) Display(on bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.on = on
	return wrap(dev.configureDisplay())
}

// ShiftDisplay scrolls the whole display one cell in dir. The cursor
// position in DDRAM is unchanged.
func (dev *Dev) ShiftDisplay(dir ShiftDirection) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return wrap(dev.instruction(CursorDisplayShift(ShiftDisplay, dir)))
}

// CreateChar loads a custom glyph into CGRAM slot. Each byte of bitmap is one
// pixel row, the low 5 bits are used. There are 8 slots with the 5x8 font and
// 4 with the 5x10 font. The glyph is then shown by writing the slot number.
func (dev *Dev) CreateChar(slot int, bitmap []byte) error {
	slots, stride, height := 8, 8, 8
	if dev.font == Font5x10 {
		slots, stride, height = 4, 16, 11
	}
	if slot < 0 || slot >= slots {
		return fmt.Errorf("%s: CreateChar slot %d out of range [0,%d)", packageName, slot, slots)
	}
	if len(bitmap) > height {
		return fmt.Errorf("%s: CreateChar bitmap has %d rows, max %d", packageName, len(bitmap), height)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	err := dev.instruction(CGRAMAddressSet(byte(slot * stride)))
	if err == nil {
		err = dev.frame(PinRS, 0, func() error {
			for _, line := range bitmap {
				if err := dev.send(Opcode(line & 0x1f)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err == nil {
		// Data writes go to CGRAM until a DDRAM address is set again.
		err = dev.setPosition(dev.row, dev.col)
	}
	return wrap(err)
}

// Enable/Disable auto scroll. When enabled the display shifts on every
// character written instead of the cursor moving.
func (dev *Dev) AutoScroll(enabled bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return wrap(dev.instruction(EntryModeSet(Increment, enabled)))
}

// Set the cursor mode. You can pass multiple arguments.
// Cursor(CursorOff, CursorUnderline)
func (dev *Dev) Cursor(modes ...display.CursorMode) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			dev.cursor = false
			dev.blink = false
		case display.CursorUnderline:
			dev.cursor = true
		case display.CursorBlock, display.CursorBlink:
			dev.blink = true
		default:
			return fmt.Errorf("%s: unexpected cursor: %d", packageName, mode)
		}
	}
	return wrap(dev.configureDisplay())
}

// Move the cursor one cell. Forward and Backward move within the current
// line, Up and Down change lines keeping the column.
func (dev *Dev) Move(dir display.CursorDirection) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	var err error
	switch dir {
	case display.Backward:
		err = dev.setPosition(dev.row, dev.col-1)
	case display.Forward:
		if dev.col >= dev.cols {
			// Line full, the next character goes to the next line.
			err = dev.setPosition(dev.row+1, 0)
		} else {
			err = dev.setPosition(dev.row, dev.col+1)
		}
	case display.Up:
		err = dev.setPosition(dev.row-1, dev.col)
	case display.Down:
		err = dev.setPosition(dev.row+1, dev.col)
	default:
		err = ErrNotImplemented
	}
	return wrap(err)
}

// Move the cursor to arbitrary position. Positions are one based.
func (dev *Dev) MoveTo(row, col int) error {
	if row < dev.MinRow() || row > dev.rows || col < dev.MinCol() || col > dev.cols {
		return fmt.Errorf("%s: MoveTo(%d,%d) value out of range", packageName, row, col)
	}
	return dev.SetPosition(row-1, col-1)
}

// Turn the display's backlight on or off. Any non zero intensity is on.
func (dev *Dev) Backlight(intensity display.Intensity) error {
	return dev.SetBacklight(intensity > 0)
}

// Return the number of columns the display supports
func (dev *Dev) Cols() int {
	return dev.cols
}

// Return the number of rows the display supports.
func (dev *Dev) Rows() int {
	return dev.rows
}

// Return the min column position.
func (dev *Dev) MinCol() int {
	return 1
}

// Return the min row position.
func (dev *Dev) MinRow() int {
	return 1
}

// Return info about the display.
func (dev *Dev) String() string {
	if s, ok := dev.exp.(fmt.Stringer); ok {
		return fmt.Sprintf("HD44780::%s - Rows: %d, Cols: %d", s.String(), dev.rows, dev.cols)
	}
	return fmt.Sprintf("HD44780 - Rows: %d, Cols: %d", dev.rows, dev.cols)
}

// Halt clears the display, turns the backlight off, and turns the display off.
// Every step is attempted, the errors are joined.
func (dev *Dev) Halt() error {
	return errors.Join(dev.Clear(), dev.SetBacklight(false), dev.Display(false))
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ conn.Resource = &Dev{}
