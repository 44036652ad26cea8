// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// I2CExpander talks to a PCF8574 backpack with one bare I²C transaction per
// latch access, without the pin bookkeeping of pcf857x.Dev.
type I2CExpander struct {
	d *i2c.Dev
}

// NewI2CExpander returns an Expander for the backpack at address on bus.
func NewI2CExpander(bus i2c.Bus, address uint16) *I2CExpander {
	return &I2CExpander{d: &i2c.Dev{Bus: bus, Addr: address}}
}

// WriteGPIO sets the 8 expander lines to value.
func (e *I2CExpander) WriteGPIO(value byte) error {
	return e.d.Tx([]byte{value}, nil)
}

// ReadGPIO returns the level of the 8 expander lines.
func (e *I2CExpander) ReadGPIO() (byte, error) {
	var r [1]byte
	if err := e.d.Tx(nil, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (e *I2CExpander) String() string {
	return fmt.Sprintf("PCF8574_%x", e.d.Addr)
}

var _ Expander = &I2CExpander{}
