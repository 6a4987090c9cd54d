package cpu

import (
	"errors"
	"path/filepath"
	"testing"

	"gochip8/pkg/display"
)

func TestCPU_HibernateRoundTrip(t *testing.T) {
	fb1 := display.New()
	c1 := NewCPU(fb1, nil)
	c1.LoadProgram(words(0x6005, 0xF029, 0xD005, 0x2300))
	c1.Run(4)
	c1.V[7] = 0x77
	c1.I = 0x123
	c1.DT = 9
	c1.Memory[0xEFF] = 0x42

	data, err := c1.HibernateToBytes()
	if err != nil {
		t.Fatalf("HibernateToBytes: %v", err)
	}

	fb2 := display.New()
	c2 := NewCPU(fb2, nil)
	if err := c2.RestoreFromBytes(data); err != nil {
		t.Fatalf("RestoreFromBytes: %v", err)
	}

	if c2.V != c1.V || c2.I != c1.I || c2.PC != c1.PC {
		t.Errorf("registers differ: V=%v I=0x%03X PC=0x%03X", c2.V, c2.I, c2.PC)
	}
	if c2.Stack != c1.Stack || c2.SP != c1.SP {
		t.Errorf("stack differs: SP=%d stack=%v", c2.SP, c2.Stack)
	}
	if c2.DT != 9 || c2.Cycles != c1.Cycles {
		t.Errorf("DT=%d Cycles=%d", c2.DT, c2.Cycles)
	}
	if c2.Memory != c1.Memory {
		t.Errorf("memory differs")
	}
	if !fb2.Pixel(5, 5) {
		t.Errorf("display contents were not restored")
	}
	for y := 0; y < display.Height; y++ {
		for x := 0; x < display.Width; x++ {
			if fb1.Pixel(x, y) != fb2.Pixel(x, y) {
				t.Fatalf("pixel (%d,%d) differs", x, y)
			}
		}
	}
}

func TestCPU_HibernateWaitState(t *testing.T) {
	c1, _, _ := newTestCPU(t, 0xF40A)
	c1.Cycle()
	c1.KeyReleased(0xB)

	data, err := c1.HibernateToBytes()
	if err != nil {
		t.Fatalf("HibernateToBytes: %v", err)
	}
	c2, _, _ := newTestCPU(t)
	if err := c2.RestoreFromBytes(data); err != nil {
		t.Fatalf("RestoreFromBytes: %v", err)
	}
	if c2.Wait != KeyResolved || c2.WaitReg != 4 || c2.WaitKey != 0xB {
		t.Errorf("wait state = %v reg=%d key=%d", c2.Wait, c2.WaitReg, c2.WaitKey)
	}
	mustCycle(t, c2)
	if c2.V[4] != 0xB {
		t.Errorf("restored machine did not complete the key wait")
	}
}

func TestCPU_HibernateFault(t *testing.T) {
	c1, _, _ := newTestCPU(t, 0x00EE)
	c1.Cycle()

	data, err := c1.HibernateToBytes()
	if err != nil {
		t.Fatalf("HibernateToBytes: %v", err)
	}
	c2, _, _ := newTestCPU(t)
	if err := c2.RestoreFromBytes(data); err != nil {
		t.Fatalf("RestoreFromBytes: %v", err)
	}
	if !c2.Halted || c2.Fault == nil {
		t.Fatalf("restored machine is not halted")
	}
	if !errors.Is(c2.Fault, ErrStackUnderflow) || c2.Fault.PC != 0x200 || c2.Fault.Opcode != 0x00EE {
		t.Errorf("fault = %v", c2.Fault)
	}
	if err := c2.Cycle(); !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("Cycle after restore = %v; want the stored fault", err)
	}
}

func TestCPU_RestoreSignalsSound(t *testing.T) {
	c1, _, _ := newTestCPU(t, 0x6005, 0xF018)
	c1.Run(2)
	playing, err := c1.HibernateToBytes()
	if err != nil {
		t.Fatalf("HibernateToBytes: %v", err)
	}
	c0, _, _ := newTestCPU(t)
	silent, _ := c0.HibernateToBytes()

	c2, _, a := newTestCPU(t)
	if err := c2.RestoreFromBytes(playing); err != nil {
		t.Fatalf("RestoreFromBytes: %v", err)
	}
	if c2.ST != 5 || a.starts != 1 {
		t.Errorf("ST=%d starts=%d; want 5 and 1", c2.ST, a.starts)
	}
	if err := c2.RestoreFromBytes(silent); err != nil {
		t.Fatalf("RestoreFromBytes: %v", err)
	}
	if a.stops != 1 {
		t.Errorf("restoring a silent state should stop the sound, stops=%d", a.stops)
	}
}

func TestCPU_RestoreRejectsCorruptState(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *CPU)
	}{
		{"stack pointer past the stack", func(c *CPU) { c.SP = StackDepth + 1 }},
		{"wait register out of range", func(c *CPU) { c.WaitReg = 16 }},
		{"halted without a fault", func(c *CPU) { c.Halted = true }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src, _, _ := newTestCPU(t)
			tc.mutate(src)
			data, err := src.HibernateToBytes()
			if err != nil {
				t.Fatalf("HibernateToBytes: %v", err)
			}

			dst, _, _ := newTestCPU(t, 0x6001)
			dst.V[2] = 0x22
			err = dst.RestoreFromBytes(data)
			if !errors.Is(err, ErrCorruptState) {
				t.Fatalf("RestoreFromBytes error = %v; want ErrCorruptState", err)
			}
			if dst.V[2] != 0x22 || dst.Memory[0x200] != 0x60 {
				t.Errorf("rejected archive modified the machine")
			}
		})
	}

	c, _, _ := newTestCPU(t)
	if err := c.RestoreFromBytes([]byte("not a zip")); err == nil {
		t.Errorf("RestoreFromBytes accepted garbage")
	}
}

func TestCPU_HibernateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.c8s")
	c1, _, _ := newTestCPU(t, 0x6A5A)
	c1.Cycle()
	if err := c1.HibernateToFile(path); err != nil {
		t.Fatalf("HibernateToFile: %v", err)
	}
	c2, _, _ := newTestCPU(t)
	if err := c2.RestoreFromFile(path); err != nil {
		t.Fatalf("RestoreFromFile: %v", err)
	}
	if c2.V[0xA] != 0x5A || c2.PC != 0x202 {
		t.Errorf("VA=0x%02X PC=0x%03X", c2.V[0xA], c2.PC)
	}
}
