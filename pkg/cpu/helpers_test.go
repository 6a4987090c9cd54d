package cpu

import "testing"

type fakeDisplay struct {
	clears  int
	draws   [][]byte
	at      [][2]uint8
	collide bool
}

func (d *fakeDisplay) Clear() { d.clears++ }

func (d *fakeDisplay) Draw(x, y uint8, sprite []byte) bool {
	d.draws = append(d.draws, append([]byte(nil), sprite...))
	d.at = append(d.at, [2]uint8{x, y})
	return d.collide
}

type fakeKeys map[uint8]bool

func (k fakeKeys) IsPressed(key uint8) bool { return k[key] }

type fakeAudio struct {
	starts, stops int
}

func (a *fakeAudio) SoundStart() { a.starts++ }

func (a *fakeAudio) SoundStop() { a.stops++ }

// newTestCPU returns a machine with fake collaborators and the given opcodes
// loaded at ProgramStart.
func newTestCPU(t *testing.T, opcodes ...uint16) (*CPU, *fakeDisplay, *fakeAudio) {
	t.Helper()
	d := &fakeDisplay{}
	a := &fakeAudio{}
	c := NewCPU(d, fakeKeys{})
	c.MountAudio(a)
	if err := c.LoadProgram(words(opcodes...)); err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	return c, d, a
}

// words converts opcodes to big-endian bytes.
func words(opcodes ...uint16) []byte {
	out := make([]byte, 0, len(opcodes)*2)
	for _, op := range opcodes {
		out = append(out, byte(op>>8), byte(op))
	}
	return out
}

// put writes an opcode at addr.
func put(c *CPU, addr uint16, op uint16) {
	c.Memory[addr] = byte(op >> 8)
	c.Memory[addr+1] = byte(op)
}

func mustCycle(t *testing.T, c *CPU) {
	t.Helper()
	if err := c.Cycle(); err != nil {
		t.Fatalf("Cycle at PC=0x%03X: %v", c.PC, err)
	}
}
