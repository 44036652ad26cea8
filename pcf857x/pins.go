// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcf857x

import (
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// pcfPin is a single expander line. All pins of a Dev share its latch.
type pcfPin struct {
	dev    *Dev
	number int
	name   string
}

func (pin *pcfPin) bit() gpio.GPIOValue {
	return gpio.GPIOValue(1) << pin.number
}

func (pin *pcfPin) DefaultPull() gpio.Pull {
	return gpio.PullUp
}

func (pin *pcfPin) Function() string {
	if pin.dev.latched()&pin.bit() == 0 {
		return "Out/Low"
	}
	return "In/High"
}

func (pin *pcfPin) Halt() error {
	return nil
}

// In releases the pin by writing it High. The chip has a fixed weak pull-up
// and no edge detection, so pull and edge must be left at their defaults.
func (pin *pcfPin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge || (pull != gpio.PullNoChange && pull != gpio.PullUp && pull != gpio.Float) {
		return ErrNotImplmented
	}
	return pin.dev.write(pin.bit(), pin.bit())
}

func (pin *pcfPin) Name() string {
	return pin.name
}

func (pin *pcfPin) Number() int {
	return pin.number
}

func (pin *pcfPin) Out(l gpio.Level) error {
	value := gpio.GPIOValue(0)
	if l {
		value = pin.bit()
	}
	return pin.dev.write(value, pin.bit())
}

func (pin *pcfPin) Pull() gpio.Pull {
	return gpio.PullUp
}

// Read returns the pin level. gpio.PinIn has no error return, so bus errors
// are logged and read as Low.
func (pin *pcfPin) Read() gpio.Level {
	value, err := pin.dev.read(pin.bit())
	if err != nil {
		logrus.WithError(err).WithField("pin", pin.name).Warn("pcf857x: read failed")
		return gpio.Low
	}
	return value != 0
}

func (pin *pcfPin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrNotImplmented
}

func (pin *pcfPin) String() string {
	return pin.name
}

// The interrupt line can't tell which pin changed.
func (pin *pcfPin) WaitForEdge(timeout time.Duration) bool {
	return false
}

// latched returns the last value written to the device.
func (dev *Dev) latched() gpio.GPIOValue {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.value
}

var _ gpio.PinIO = &pcfPin{}
