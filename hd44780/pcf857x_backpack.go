// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"github.com/GermanBionicSystems/lcd/pcf857x"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	// DefaultAddress is the address of most PCF8574T backpacks. Boards built
	// with the PCF8574AT answer at 0x3f.
	DefaultAddress uint16 = 0x27

	// MaxBusSpeed is the fastest clock the PCF8574 accepts.
	MaxBusSpeed = 100 * physic.KiloHertz
)

// This function returns a display configured to use the pcf8574 i2c backpacks.
//
// # Product Information
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
//
// The bus clock is lowered to MaxBusSpeed when the bus allows it. To use
// this, get an I2C bus, and call this function with the bus, i2c address,
// number of rows, and columns.
func NewPCF857xBackpack(bus i2c.Bus, address uint16, rows, cols int) (*Dev, error) {
	if err := bus.SetSpeed(MaxBusSpeed); err != nil {
		logrus.WithError(err).Debugf("%s: keeping bus speed of %s", packageName, bus)
	}
	pcf, err := pcf857x.New(bus, address, pcf857x.PCF8574)
	if err != nil {
		return nil, wrap(err)
	}
	return New(pcf, &Opts{Rows: rows, Cols: cols})
}

var _ Expander = &pcf857x.Dev{}
