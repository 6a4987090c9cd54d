package cpu

// Display is the 64x32 monochrome screen the machine draws on.
type Display interface {
	Clear()
	// Draw XOR-blits sprite rows starting at (x, y), wrapping each pixel
	// coordinate, and reports whether any lit pixel was turned off. sprite
	// aliases machine memory and is only valid for the call.
	Draw(x, y uint8, sprite []byte) bool
}

// Keyboard reports the state of the 16-key hex keypad.
type Keyboard interface {
	IsPressed(key uint8) bool
}

// Audio is told when the sound timer starts and stops running.
type Audio interface {
	SoundStart()
	SoundStop()
}

// StatefulDisplay is a Display whose contents can be saved into a save-state
// archive and restored from it.
type StatefulDisplay interface {
	Display
	SaveState() []byte
	LoadState(data []byte) error
}

type multiAudio []Audio

func (m multiAudio) SoundStart() {
	for _, a := range m {
		a.SoundStart()
	}
}

func (m multiAudio) SoundStop() {
	for _, a := range m {
		a.SoundStop()
	}
}

// MultiAudio returns an Audio that forwards every signal to each sink in
// order. Nil sinks are dropped; with no sinks left it returns nil.
func MultiAudio(sinks ...Audio) Audio {
	var m multiAudio
	for _, a := range sinks {
		if a != nil {
			m = append(m, a)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	}
	return m
}
