// Package beeper plays the machine's buzzer through ebiten's audio context.
package beeper

import (
	"fmt"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

const (
	SampleRate = 44100
	ToneFreq   = 440
	amplitude  = 0x0FFF
)

// gate is the part of *audio.Player the beeper drives.
type gate interface {
	Play()
	Pause()
}

// Beeper starts and stops a looping tone on the machine's sound signals.
type Beeper struct {
	mu      sync.Mutex
	player  gate
	playing bool
}

// New creates a beeper on ctx. Pass nil to use or create the process-wide
// context at SampleRate.
func New(ctx *audio.Context) (*Beeper, error) {
	if ctx == nil {
		ctx = audio.CurrentContext()
	}
	if ctx == nil {
		ctx = audio.NewContext(SampleRate)
	}
	p, err := ctx.NewPlayer(NewTone(ctx.SampleRate(), ToneFreq, amplitude))
	if err != nil {
		return nil, fmt.Errorf("beeper: %w", err)
	}
	return &Beeper{player: p}, nil
}

func (b *Beeper) SoundStart() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.playing {
		return
	}
	b.player.Play()
	b.playing = true
}

func (b *Beeper) SoundStop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.playing {
		return
	}
	b.player.Pause()
	b.playing = false
}

// Playing reports whether the tone is sounding.
func (b *Beeper) Playing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playing
}
