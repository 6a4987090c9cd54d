package beeper

import (
	"encoding/binary"
	"testing"
)

type fakeGate struct {
	plays, pauses int
}

func (g *fakeGate) Play() { g.plays++ }
func (g *fakeGate) Pause() { g.pauses++ }

func TestBeeper_StartStop(t *testing.T) {
	g := &fakeGate{}
	b := &Beeper{player: g}

	b.SoundStart()
	b.SoundStart()
	if !b.Playing() {
		t.Errorf("beeper should be playing after SoundStart")
	}
	b.SoundStop()
	b.SoundStop()
	if b.Playing() {
		t.Errorf("beeper should be silent after SoundStop")
	}

	if g.plays != 1 || g.pauses != 1 {
		t.Errorf("plays=%d pauses=%d; want 1 and 1", g.plays, g.pauses)
	}
}

func TestTone_Read(t *testing.T) {
	tone := NewTone(8, 2, 100)
	buf := make([]byte, 4*4+3)

	n, err := tone.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 16 {
		t.Fatalf("Read returned %d bytes; want whole frames only (16)", n)
	}

	// period of 4 frames: two high, two low
	want := []int16{100, 100, -100, -100}
	for i, w := range want {
		left := int16(binary.LittleEndian.Uint16(buf[i*4:]))
		right := int16(binary.LittleEndian.Uint16(buf[i*4+2:]))
		if left != w || right != w {
			t.Errorf("frame %d = (%d,%d); want %d on both channels", i, left, right, w)
		}
	}

	// the wave continues where it left off
	tone.Read(buf[:4])
	if s := int16(binary.LittleEndian.Uint16(buf)); s != 100 {
		t.Errorf("frame 4 = %d; want 100", s)
	}
}

func TestTone_Silent(t *testing.T) {
	tone := NewTone(SampleRate, 0, 100)
	if s := tone.Sample(3); s != 0 {
		t.Errorf("zero-frequency tone produced %d", s)
	}
}
