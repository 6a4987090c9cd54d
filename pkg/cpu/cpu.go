package cpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
)

const (
	// MemorySize is the size of the address space in bytes.
	MemorySize = 0x1000
	// ProgramStart is where programs are loaded and execution begins.
	ProgramStart = 0x200
	// MaxProgramSize is the largest program that fits above ProgramStart.
	MaxProgramSize = MemorySize - ProgramStart
	// StackDepth is the number of return addresses the call stack holds.
	StackDepth = 16
	// FontBase is the address of the built-in hex digit glyphs.
	FontBase = 0x000
	// GlyphSize is the height in bytes of one font glyph.
	GlyphSize = 5
)

var (
	ErrStackOverflow   = errors.New("stack overflow")
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrOutOfBounds     = errors.New("memory access out of bounds")
	ErrProgramTooLarge = errors.New("program too large for memory")
)

// Fault is the error that halts the machine. It records where execution
// stopped; errors.Is reaches the underlying sentinel.
type Fault struct {
	PC     uint16
	Opcode uint16
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%v at PC=0x%03X (opcode %04X)", f.Err, f.PC, f.Opcode)
}

func (f *Fault) Unwrap() error { return f.Err }

// WaitState is the state of the wait-for-key protocol driven by Fx0A.
type WaitState uint8

const (
	Running WaitState = iota
	AwaitingKey
	KeyResolved
)

func (w WaitState) String() string {
	switch w {
	case Running:
		return "running"
	case AwaitingKey:
		return "awaiting_key"
	case KeyResolved:
		return "key_resolved"
	}
	return fmt.Sprintf("WaitState(%d)", uint8(w))
}

// font holds the sixteen 4x5 hex digit glyphs loaded at FontBase.
var font = [16 * GlyphSize]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Font returns a copy of the built-in glyph table.
func Font() [16 * GlyphSize]byte { return font }

type CPU struct {
	Memory [MemorySize]byte

	// V0..VF. VF doubles as the carry, borrow and collision flag.
	V  [16]byte
	I  uint16
	PC uint16

	Stack [StackDepth]uint16
	SP    uint8

	DT byte
	ST byte

	Wait    WaitState
	WaitReg uint8
	WaitKey uint8

	Halted bool
	Fault  *Fault

	// Cycles counts executed instructions.
	Cycles uint64

	Display  Display
	Keyboard Keyboard
	Audio    Audio

	// Rand supplies the bytes for Cxnn.
	Rand func() byte

	// Logger receives instruction traces at debug level and faults at error
	// level. Nil disables logging.
	Logger *slog.Logger

	rom []byte
}

type nopDisplay struct{}

func (nopDisplay) Clear() {}

func (nopDisplay) Draw(_, _ uint8, _ []byte) bool { return false }

type nopKeyboard struct{}

func (nopKeyboard) IsPressed(uint8) bool { return false }

// NewCPU creates a machine with the font loaded and PC at ProgramStart. A nil
// display or keyboard is replaced by one that does nothing.
func NewCPU(display Display, keys Keyboard) *CPU {
	if display == nil {
		display = nopDisplay{}
	}
	if keys == nil {
		keys = nopKeyboard{}
	}
	c := &CPU{
		Display:  display,
		Keyboard: keys,
		Rand:     func() byte { return byte(rand.Uint32()) },
	}
	c.powerOn()
	return c
}

// MountAudio attaches the audio sink. Passing nil detaches it.
func (c *CPU) MountAudio(a Audio) {
	c.Audio = a
}

// SeedRandom makes Cxnn deterministic for the given seed.
func (c *CPU) SeedRandom(seed uint64) {
	r := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	c.Rand = func() byte { return byte(r.Uint32()) }
}

func (c *CPU) powerOn() {
	c.Memory = [MemorySize]byte{}
	copy(c.Memory[FontBase:], font[:])
	c.V = [16]byte{}
	c.I = 0
	c.PC = ProgramStart
	c.Stack = [StackDepth]uint16{}
	c.SP = 0
	c.DT = 0
	c.ST = 0
	c.Wait = Running
	c.WaitReg = 0
	c.WaitKey = 0
	c.Halted = false
	c.Fault = nil
	c.Cycles = 0
}

// LoadProgram copies program into memory at ProgramStart. The program is
// kept so Reset can reload it.
func (c *CPU) LoadProgram(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes > %d bytes", ErrProgramTooLarge, len(program), MaxProgramSize)
	}
	copy(c.Memory[ProgramStart:], program)
	c.rom = append(c.rom[:0], program...)
	return nil
}

// Reset returns the machine to its power-on state, reloads the last program
// and clears the screen.
func (c *CPU) Reset() {
	c.setSoundTimer(0)
	c.powerOn()
	copy(c.Memory[ProgramStart:], c.rom)
	c.Display.Clear()
}

// KeyReleased delivers a key-up event. It only matters while the machine is
// waiting on Fx0A; the key is latched and written to the target register on
// the next Cycle.
func (c *CPU) KeyReleased(key uint8) {
	if c.Wait != AwaitingKey {
		return
	}
	c.WaitKey = key & 0x0F
	c.Wait = KeyResolved
}

// Cycle runs one step of the machine: normally one instruction. While
// waiting on a key it does nothing, and the step after a key release only
// stores the key. Once halted, it returns the halting fault.
func (c *CPU) Cycle() error {
	if c.Halted {
		return c.Fault
	}

	switch c.Wait {
	case AwaitingKey:
		return nil
	case KeyResolved:
		c.V[c.WaitReg] = c.WaitKey
		c.Wait = Running
		return nil
	}

	pc := c.PC
	opcode, err := c.fetch()
	if err != nil {
		return c.halt(&Fault{PC: pc, Err: err})
	}

	in := Decode(opcode)
	if c.Logger != nil && c.Logger.Enabled(context.Background(), slog.LevelDebug) {
		c.Logger.Debug("exec",
			"pc", fmt.Sprintf("0x%03X", pc),
			"opcode", fmt.Sprintf("%04X", opcode),
			"instr", in.String(),
		)
	}

	if err := handlers[in.Op](c, in); err != nil {
		return c.halt(&Fault{PC: pc, Opcode: opcode, Err: err})
	}
	c.Cycles++
	return nil
}

// Run executes up to n cycles and stops early on a fault.
func (c *CPU) Run(n int) error {
	for i := 0; i < n; i++ {
		if err := c.Cycle(); err != nil {
			return err
		}
	}
	return nil
}

// TickTimers decrements both timers by one, stopping at zero. Hosts call it
// at 60 Hz regardless of how many cycles they run.
func (c *CPU) TickTimers() {
	if c.DT > 0 {
		c.DT--
	}
	if c.ST > 0 {
		c.setSoundTimer(c.ST - 1)
	}
}

// StackDepthInUse reports how many return addresses are on the stack.
func (c *CPU) StackDepthInUse() int {
	return int(c.SP)
}

func (c *CPU) fetch() (uint16, error) {
	if int(c.PC)+1 >= MemorySize {
		return 0, ErrOutOfBounds
	}
	opcode := uint16(c.Memory[c.PC])<<8 | uint16(c.Memory[c.PC+1])
	c.PC += 2
	return opcode, nil
}

// setSoundTimer writes ST and tells the audio sink about 0->nonzero and
// nonzero->0 transitions.
func (c *CPU) setSoundTimer(v byte) {
	prev := c.ST
	c.ST = v
	if c.Audio == nil {
		return
	}
	switch {
	case prev == 0 && v != 0:
		c.Audio.SoundStart()
	case prev != 0 && v == 0:
		c.Audio.SoundStop()
	}
}

func (c *CPU) halt(f *Fault) error {
	c.Halted = true
	c.Fault = f
	c.setSoundTimer(0)
	if c.Logger != nil {
		c.Logger.Error("machine halted", "error", f.Error())
	}
	return f
}

// span returns the memory range [addr, addr+n) or ErrOutOfBounds.
func (c *CPU) span(addr uint16, n int) ([]byte, error) {
	end := int(addr) + n
	if end > MemorySize {
		return nil, fmt.Errorf("%w: 0x%04X+%d", ErrOutOfBounds, addr, n)
	}
	return c.Memory[addr:end:end], nil
}
