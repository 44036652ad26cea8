// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Bit layout of the expander latch. The backpack wires the PCF8574 as
//
//	PCF8574: P7 P6 P5 P4 P3        P2 P1  P0
//	HD44780: D7 D6 D5 D4 Backlight E  R/W RS
const (
	PinRS        byte = 0x01
	PinRW        byte = 0x02
	PinE         byte = 0x04
	PinBacklight byte = 0x08
	DataMask     byte = 0xf0
)

// Datasheet timing. Enable must be high for at least 450ns; commands need
// 37µs to execute, 75µs is used for margin.
const (
	delayEnableHigh time.Duration = 2 * time.Microsecond
	delaySettle     time.Duration = 75 * time.Microsecond
)

// Expander is the GPIO latch the display is wired to. WriteGPIO sets all 8
// lines at once and ReadGPIO samples them.
//
// pcf857x.Dev, I2CExpander and TinyGoExpander implement it.
type Expander interface {
	WriteGPIO(value byte) error
	ReadGPIO() (byte, error)
}

// Transport runs the HD44780 4-bit bus discipline over an Expander.
type Transport struct {
	exp   Expander
	sleep func(time.Duration)
	log   *logrus.Entry
}

// NewTransport returns a Transport writing to exp.
func NewTransport(exp Expander) *Transport {
	return &Transport{
		exp:   exp,
		sleep: time.Sleep,
		log:   logrus.NewEntry(logrus.StandardLogger()),
	}
}

// PulseEnable latches value into the controller by strobing E. The lines are
// sampled while E is high, so the returned byte carries D7..D4 from the
// controller when value selects a read cycle.
func (t *Transport) PulseEnable(value byte) (byte, error) {
	if err := t.exp.WriteGPIO(value | PinE); err != nil {
		return 0, err
	}
	t.sleep(delayEnableHigh)
	sample, err := t.exp.ReadGPIO()
	if err != nil {
		return 0, err
	}
	if err := t.exp.WriteGPIO(value &^ PinE); err != nil {
		return 0, err
	}
	t.sleep(delaySettle)
	return sample, nil
}

// SendByte transmits value as two nibbles, high nibble first, each framed by
// control (backlight, R/W and RS bits). It returns the byte reassembled from
// the data lines sampled during the two pulses.
//
// When control selects a read cycle value is ignored and D7..D4 are written
// High, since the expander lines are open drain and the controller has to be
// able to pull them down.
func (t *Transport) SendByte(value, control byte) (byte, error) {
	control &^= DataMask | PinE
	if control&PinRW != 0 {
		value = 0xff
	}
	var response byte
	for ix, nibble := range [2]byte{value & DataMask, value << 4} {
		frame := nibble | control
		if t.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
			t.log.Tracef("nibble %d frame=0x%02x", ix, frame)
		}
		if err := t.exp.WriteGPIO(frame); err != nil {
			return 0, err
		}
		sample, err := t.PulseEnable(frame)
		if err != nil {
			return 0, err
		}
		if ix == 0 {
			response = sample & DataMask
		} else {
			response |= (sample & DataMask) >> 4
		}
	}
	return response, nil
}
