package main

import (
	"time"

	"gochip8/pkg/display"
	"gochip8/pkg/grid"
	"gochip8/pkg/keypad"
)

// Half-block glyphs: each terminal cell shows two vertically stacked pixels.
const (
	cellEmpty = ' '
	cellUpper = '▀'
	cellLower = '▄'
	cellFull  = '█'
)

// renderRows draws the framebuffer as display.Height/2 rows of half-block
// glyphs.
func renderRows(fb *display.Framebuffer) [][]rune {
	rows := make([][]rune, display.Height/2)
	for row := range rows {
		rows[row] = make([]rune, display.Width)
	}
	for i := 0; i < display.Width*len(rows); i++ {
		x, row := grid.GetGridCoords(i, display.Width)
		top := fb.Pixel(x, row*2)
		bottom := fb.Pixel(x, row*2+1)
		switch {
		case top && bottom:
			rows[row][x] = cellFull
		case top:
			rows[row][x] = cellUpper
		case bottom:
			rows[row][x] = cellLower
		default:
			rows[row][x] = cellEmpty
		}
	}
	return rows
}

// holdTracker turns terminal key events, which only report presses and
// autorepeat, into press/release pairs. A key is released once no event for
// it has arrived within the hold time.
type holdTracker struct {
	keys     *keypad.Keypad
	hold     time.Duration
	deadline map[uint8]time.Time
}

func newHoldTracker(keys *keypad.Keypad, hold time.Duration) *holdTracker {
	return &holdTracker{
		keys:     keys,
		hold:     hold,
		deadline: make(map[uint8]time.Time),
	}
}

// Press records an event for key at now. The keypad only sees the first
// press of a burst.
func (h *holdTracker) Press(key uint8, now time.Time) {
	if _, held := h.deadline[key]; !held {
		h.keys.Press(key)
	}
	h.deadline[key] = now.Add(h.hold)
}

// Expire releases every key whose hold time has passed.
func (h *holdTracker) Expire(now time.Time) {
	for key, until := range h.deadline {
		if !now.Before(until) {
			delete(h.deadline, key)
			h.keys.Release(key)
		}
	}
}

// ReleaseAll lets go of every held key.
func (h *holdTracker) ReleaseAll() {
	clear(h.deadline)
	h.keys.ReleaseAll()
}

func (h *holdTracker) Held() int { return len(h.deadline) }
