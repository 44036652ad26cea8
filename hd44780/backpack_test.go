// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"testing"

	"github.com/GermanBionicSystems/lcd/hd44780/hd44780test"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

// These tests run the real delays, about 100ms each.

func checkHello(t *testing.T, dev *Dev, panel *hd44780test.Panel) {
	t.Helper()
	if _, err := dev.WriteString("Hello\nperiph"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(panel.Text(), []string{pad("Hello"), pad("periph")}); diff != "" {
		t.Errorf("text (-got +want):\n%s", diff)
	}
}

func TestPCF857xBackpack(t *testing.T) {
	panel := newPanel()
	panel.BusyReads = 1
	dev, err := NewPCF857xBackpack(panel, DefaultAddress, testRows, testCols)
	if err != nil {
		t.Fatal(err)
	}
	if panel.Speed() != MaxBusSpeed {
		t.Errorf("bus speed %s, want %s", panel.Speed(), MaxBusSpeed)
	}
	checkHello(t, dev, panel)
	if panel.BusyPolls() == 0 {
		t.Error("busy flag never polled")
	}
}

func TestPCF857xBackpackWrongAddress(t *testing.T) {
	if _, err := NewPCF857xBackpack(newPanel(), 0x3f, testRows, testCols); err == nil {
		t.Error("expected error for a missing device")
	}
}

func TestI2CExpander(t *testing.T) {
	panel := newPanel()
	dev, err := New(NewI2CExpander(panel, DefaultAddress), nil)
	if err != nil {
		t.Fatal(err)
	}
	checkHello(t, dev, panel)
	if s := dev.String(); s != "HD44780::PCF8574_27 - Rows: 2, Cols: 16" {
		t.Errorf("String() = %q", s)
	}
}

// Record a session against the emulator and play it back; the driver must
// produce the exact same transactions without the device.
func TestI2CExpanderPlayback(t *testing.T) {
	record := &i2ctest.Record{Bus: newPanel()}
	dev, err := New(NewI2CExpander(record, DefaultAddress), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = dev.WriteString("rec"); err != nil {
		t.Fatal(err)
	}
	for _, io := range record.Ops {
		if io.Addr != DefaultAddress || len(io.W)+len(io.R) != 1 {
			t.Fatalf("unexpected transaction %+v", io)
		}
	}

	playback := &i2ctest.Playback{Ops: record.Ops}
	dev, err = New(NewI2CExpander(playback, DefaultAddress), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = dev.WriteString("rec"); err != nil {
		t.Fatal(err)
	}
	if err := playback.Close(); err != nil {
		t.Error(err)
	}
}

func TestTinyGoExpander(t *testing.T) {
	panel := newPanel()
	panel.BusyReads = 2
	exp := NewTinyGoExpander(panel, uint8(DefaultAddress))
	dev, err := New(exp, nil)
	if err != nil {
		t.Fatal(err)
	}
	checkHello(t, dev, panel)
	if exp.String() != "PCF8574_27" {
		t.Errorf("String() = %q", exp.String())
	}
}

func TestTinyGoExpanderTx(t *testing.T) {
	panel := newPanel()
	exp := NewTinyGoExpander(panel, uint8(DefaultAddress))
	if err := exp.WriteGPIO(0x5c); err != nil {
		t.Fatal(err)
	}
	v, err := exp.ReadGPIO()
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x5c {
		t.Errorf("ReadGPIO() = 0x%02x, want 0x5c", v)
	}
	if diff := cmp.Diff(panel.Writes(), []byte{0x5c}); diff != "" {
		t.Errorf("writes (-got +want):\n%s", diff)
	}
	if _, err := NewTinyGoExpander(panel, 0x3f).ReadGPIO(); err == nil {
		t.Error("expected error for a missing device")
	}
}
