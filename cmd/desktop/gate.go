package main

import "gochip8/pkg/cpu"

// audioGate sits between the machine and its sound sink. While paused it
// remembers what the machine asked for and passes nothing on; resuming
// replays the current state.
type audioGate struct {
	out    cpu.Audio
	want   bool
	paused bool
}

func (a *audioGate) SoundStart() {
	a.want = true
	if !a.paused && a.out != nil {
		a.out.SoundStart()
	}
}

func (a *audioGate) SoundStop() {
	a.want = false
	if !a.paused && a.out != nil {
		a.out.SoundStop()
	}
}

func (a *audioGate) SetPaused(paused bool) {
	if paused == a.paused {
		return
	}
	a.paused = paused
	if !a.want || a.out == nil {
		return
	}
	if paused {
		a.out.SoundStop()
	} else {
		a.out.SoundStart()
	}
}
