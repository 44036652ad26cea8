// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

// Opcode is a single HD44780 instruction byte. Values are built by the
// instruction functions below, see page 24 of the datasheet.
type Opcode byte

// Instruction families.
const (
	opClearDisplay   Opcode = 0x01
	opReturnHome     Opcode = 0x02
	opEntryModeSet   Opcode = 0x04
	opDisplayControl Opcode = 0x08
	opCursorShift    Opcode = 0x10
	opFunctionSet    Opcode = 0x20
	opCGRAMAddress   Opcode = 0x40
	opDDRAMAddress   Opcode = 0x80
	opReadBusyFlag   Opcode = 0x00
)

// AddressDirection is the direction the address counter moves after a data
// read or write.
type AddressDirection bool

const (
	Decrement AddressDirection = false
	Increment AddressDirection = true
)

// ShiftTarget selects what a cursor/display shift instruction moves.
type ShiftTarget bool

const (
	ShiftCursor  ShiftTarget = false
	ShiftDisplay ShiftTarget = true
)

// ShiftDirection is the direction of a cursor or display shift.
type ShiftDirection bool

const (
	Left  ShiftDirection = false
	Right ShiftDirection = true
)

// BusWidth is the interface data length of the controller.
type BusWidth bool

const (
	Bus4Bit BusWidth = false
	Bus8Bit BusWidth = true
)

// Lines is the number of display lines the controller drives.
type Lines bool

const (
	OneLine  Lines = false
	TwoLines Lines = true
)

// Font is the character font.
type Font bool

const (
	Font5x8  Font = false
	Font5x10 Font = true
)

// ClearDisplay clears DDRAM and returns the address counter to 0.
func ClearDisplay() Opcode {
	return opClearDisplay
}

// ReturnHome returns the cursor to 0 and undoes any display shift.
func ReturnHome() Opcode {
	return opReturnHome
}

// EntryModeSet sets the cursor move direction and whether the display
// shifts on each write.
func EntryModeSet(dir AddressDirection, shift bool) Opcode {
	op := opEntryModeSet
	if dir == Increment {
		op |= 0x02
	}
	if shift {
		op |= 0x01
	}
	return op
}

// DisplayControl turns the display, the cursor and cursor blink on or off.
func DisplayControl(display, cursor, blink bool) Opcode {
	op := opDisplayControl
	if display {
		op |= 0x04
	}
	if cursor {
		op |= 0x02
	}
	if blink {
		op |= 0x01
	}
	return op
}

// CursorDisplayShift moves the cursor or shifts the display without touching
// DDRAM.
func CursorDisplayShift(target ShiftTarget, dir ShiftDirection) Opcode {
	op := opCursorShift
	if target == ShiftDisplay {
		op |= 0x08
	}
	if dir == Right {
		op |= 0x04
	}
	return op
}

// FunctionSet sets the interface data length, number of lines and font.
func FunctionSet(width BusWidth, lines Lines, font Font) Opcode {
	op := opFunctionSet
	if width == Bus8Bit {
		op |= 0x10
	}
	if lines == TwoLines {
		op |= 0x08
	}
	if font == Font5x10 {
		op |= 0x04
	}
	return op
}

// CGRAMAddressSet sets the CGRAM address. Valid addresses are 0-63. The value
// is not masked; higher bits overlap the instruction bits.
func CGRAMAddressSet(address byte) Opcode {
	return opCGRAMAddress | Opcode(address)
}

// DDRAMAddressSet sets the DDRAM address. Valid addresses are 0-127. The
// value is not masked; bit 7 is the instruction bit itself.
func DDRAMAddressSet(address byte) Opcode {
	return opDDRAMAddress | Opcode(address)
}

// ReadBusyFlag is the (empty) instruction sent with R/W high to read the busy
// flag and address counter.
func ReadBusyFlag() Opcode {
	return opReadBusyFlag
}
