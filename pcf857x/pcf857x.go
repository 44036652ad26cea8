// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pcf857x drives the PCF8574 and PCF8575 I²C GPIO expanders, the
// chips behind most LCD1602/LCD2004 character display backpacks.
//
// The expander has no registers. A write of 1 byte (PCF8574) or 2 bytes
// (PCF8575, low byte first) sets the output latch and a read of the same
// width returns the pin levels.
//
// Lines are quasi-bidirectional: a pin latched Low sinks current, a pin
// latched High is held by a weak pull-up that anything external can pull
// down. Reading a pin therefore only works after writing it High.
//
// Besides per pin gpio.PinIO access, a PCF8574 exposes WriteGPIO and
// ReadGPIO for whole-port transfers, which is what hd44780 uses.
//
// # Datasheet
//
// https://www.ti.com/lit/ds/symlink/pcf8574.pdf
package pcf857x

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
)

// Variant represents the actual chip model.
type Variant string

const (
	PCF8574 Variant = "PCF8574"
	PCF8575 Variant = "PCF8575"

	DefaultAddress uint16 = 0x20
)

var (
	ErrNotImplmented error = errors.New("pcf857x: not implemented")
)

// Dev is a PCF8574 or PCF8575 on an I²C bus.
type Dev struct {
	// Pins holds 8 pins for a PCF8574 and 16 for a PCF8575.
	Pins     []gpio.PinIO
	mask     gpio.GPIOValue
	width    int
	chipType Variant

	mu    sync.Mutex
	d     *i2c.Dev
	value gpio.GPIOValue
}

// New creates a new PCF857x io expander and returns it. chip should be one of
// the Variant constants above. The pins are registered in gpioreg as
// <chip>_<address>_GPIO<n>.
func New(bus i2c.Bus, address uint16, chip Variant) (*Dev, error) {
	dev := &Dev{d: &i2c.Dev{Bus: bus, Addr: address}, chipType: chip, width: 8}
	switch chip {
	case PCF8574:
	case PCF8575:
		dev.width = 16
	default:
		return nil, fmt.Errorf("pcf857x: unknown variant %q", chip)
	}
	dev.mask = gpio.GPIOValue(1)<<dev.width - 1
	dev.Pins = make([]gpio.PinIO, dev.width)
	for ix := range dev.width {
		p := &pcfPin{dev: dev, number: ix, name: fmt.Sprintf("%s_GPIO%d", dev, ix)}
		dev.Pins[ix] = p
		// Another device at the same address may already own the name.
		_ = gpioreg.Register(p)
	}
	return dev, nil
}

// WriteGPIO sets all 8 lines of a PCF8574 at once. Every call is a bus
// write, even if the latch already holds value.
func (dev *Dev) WriteGPIO(value byte) error {
	if dev.width != 8 {
		return ErrNotImplmented
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.tx(gpio.GPIOValue(value))
}

// ReadGPIO samples all 8 lines of a PCF8574 as they are, without releasing
// any of them first. Only lines last written High can be pulled Low from
// outside.
func (dev *Dev) ReadGPIO() (byte, error) {
	if dev.width != 8 {
		return 0, ErrNotImplmented
	}
	v, err := dev.sample()
	return byte(v), err
}

// Out sets the pins selected by mask to value, leaving the others as they
// were last written.
func (dev *Dev) Out(value, mask gpio.GPIOValue) error {
	return dev.write(value, mask)
}

// Read returns the level of the pins selected by mask.
func (dev *Dev) Read(mask gpio.GPIOValue) (gpio.GPIOValue, error) {
	return dev.read(mask)
}

// Halt implements conn.Resource. The pins are left as they are.
func (dev *Dev) Halt() error {
	return nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("%s_%x", dev.chipType, dev.d.Addr)
}

// read releases the pins in mask and returns their level.
func (dev *Dev) read(mask gpio.GPIOValue) (gpio.GPIOValue, error) {
	if err := dev.write(mask, mask); err != nil {
		return 0, err
	}
	v, err := dev.sample()
	return v & mask, err
}

// sample reads the level of every pin. dev.value is left alone.
func (dev *Dev) sample() (gpio.GPIOValue, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	r := make([]byte, dev.width/8)
	if err := dev.d.Tx(nil, r); err != nil {
		return 0, fmt.Errorf("pcf857x: %w", err)
	}
	result := gpio.GPIOValue(r[0])
	if len(r) > 1 {
		result |= gpio.GPIOValue(r[1]) << 8
	}
	// The latch is unchanged by a read. A released pin pulled low from
	// outside stays released.
	return result, nil
}

// write updates the pins in mask. Nothing is sent when the latch already
// holds the result.
func (dev *Dev) write(value, mask gpio.GPIOValue) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	wrValue := dev.value&(dev.mask^mask) | value&mask
	if dev.value == wrValue {
		return nil
	}
	return dev.tx(wrValue)
}

// tx writes v to the latch. dev.mu must be held.
func (dev *Dev) tx(v gpio.GPIOValue) error {
	w := make([]byte, dev.width/8)
	for ix := range w {
		w[ix] = byte(v >> (ix * 8))
	}
	if err := dev.d.Tx(w, nil); err != nil {
		return fmt.Errorf("pcf857x: %w", err)
	}
	dev.value = v
	return nil
}

var _ conn.Resource = &Dev{}
