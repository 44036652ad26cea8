// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"

	"tinygo.org/x/drivers"
)

// TinyGoExpander drives the backpack through a TinyGo I²C bus, for example
// machine.I2C0 on a Raspberry Pi Pico. The PCF8574 has no registers, so each
// latch access is a bare one byte Tx.
type TinyGoExpander struct {
	bus  drivers.I2C
	addr uint8
}

// NewTinyGoExpander returns an Expander for the backpack at address on bus.
// The bus must be configured for at most 100kHz.
func NewTinyGoExpander(bus drivers.I2C, address uint8) *TinyGoExpander {
	return &TinyGoExpander{bus: bus, addr: address}
}

// WriteGPIO sets the 8 expander lines to value.
func (e *TinyGoExpander) WriteGPIO(value byte) error {
	return e.bus.Tx(uint16(e.addr), []byte{value}, nil)
}

// ReadGPIO returns the level of the 8 expander lines.
func (e *TinyGoExpander) ReadGPIO() (byte, error) {
	var r [1]byte
	if err := e.bus.Tx(uint16(e.addr), nil, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (e *TinyGoExpander) String() string {
	return fmt.Sprintf("PCF8574_%x", e.addr)
}

var _ Expander = &TinyGoExpander{}
