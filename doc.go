// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcd is a container for character LCD drivers.
//
// hd44780 drives HD44780 compatible text displays, such as the LCD1602 and
// LCD2004 modules, through a PCF8574 I²C backpack. pcf857x is the GPIO
// expander driver the backpack is built on, and hd44780/hd44780test emulates
// a backpack and panel for tests and previews.
package lcd
