// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780test

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/fogleman/gg"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"golang.org/x/image/font/basicfont"
)

// Panel colors of a yellow-green LCD1602.
var (
	BacklightOn  = color.NRGBA{R: 0x9c, G: 0xcc, B: 0x2c, A: 0xff}
	BacklightOff = color.NRGBA{R: 0x3a, G: 0x4a, B: 0x1a, A: 0xff}
	Ink          = color.NRGBA{R: 0x10, G: 0x20, B: 0x08, A: 0xff}
)

// Cell geometry of Image, in pixels.
const (
	CellWidth  = 9
	CellHeight = 16
	Margin     = 6
	dotSize    = 1
)

// printable maps a character code to what can be shown on a terminal or
// with basicfont. Custom glyphs and the Japanese half of the ROM don't map.
func printable(c byte) rune {
	if c >= 0x20 && c < 0x7f {
		return rune(c)
	}
	return '?'
}

// Render writes the panel to w as a block of ANSI colored text, one line per
// row. A blank display (display off) shows no characters.
func (p *Panel) Render(w io.Writer) error {
	bg := BacklightOff
	if p.Backlight() {
		bg = BacklightOn
	}
	on := p.State().DisplayOn
	// Block returns the background escape followed by two spaces.
	escape := strings.TrimRight(ansi256.Default.Block(bg), " ")
	var buf bytes.Buffer
	border := strings.Repeat(ansi256.Default.Block(Ink), p.cols/2+2)
	buf.WriteString(border + "\033[0m\n")
	for _, line := range p.Text() {
		buf.WriteString(ansi256.Default.Block(Ink) + escape + "\033[30m")
		for ix := range len(line) {
			r := ' '
			if on {
				r = printable(line[ix])
			}
			buf.WriteRune(r)
		}
		if p.cols%2 == 1 {
			buf.WriteByte(' ')
		}
		buf.WriteString(ansi256.Default.Block(Ink) + "\033[0m\n")
	}
	buf.WriteString(border + "\033[0m\n")
	_, err := buf.WriteTo(w)
	return err
}

// Print renders the panel on stdout, with ANSI emulation on Windows consoles.
func (p *Panel) Print() error {
	return p.Render(colorable.NewColorableStdout())
}

// Image draws the panel the way it looks: backlight color, cells and text.
// Custom characters (codes 0-7) are drawn dot by dot from CGRAM.
func (p *Panel) Image() image.Image {
	width := 2*Margin + p.cols*CellWidth
	height := 2*Margin + p.rows*CellHeight
	dc := gg.NewContext(width, height)
	bg := BacklightOff
	if p.Backlight() {
		bg = BacklightOn
	}
	dc.SetColor(bg)
	dc.Clear()
	if !p.State().DisplayOn {
		return dc.Image()
	}

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(Ink)
	for row, line := range p.Text() {
		y := float64(Margin + row*CellHeight)
		for col := range len(line) {
			x := float64(Margin + col*CellWidth)
			c := line[col]
			if c < 8 {
				p.drawGlyph(dc, x, y, p.Glyph(int(c)))
				continue
			}
			if c == ' ' {
				continue
			}
			dc.DrawStringAnchored(string(printable(c)), x+CellWidth/2, y+CellHeight/2, 0.5, 0.5)
		}
	}
	return dc.Image()
}

func (p *Panel) drawGlyph(dc *gg.Context, x, y float64, rows []byte) {
	for dy, bits := range rows {
		for dx := range 5 {
			if bits&(0x10>>dx) != 0 {
				dc.DrawRectangle(x+1+float64(dx), y+2+float64(dy), dotSize, dotSize)
			}
		}
	}
	dc.Fill()
}
