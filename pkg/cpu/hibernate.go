package cpu

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	stateEntry   = "cpu_state.json"
	memoryEntry  = "memory.bin"
	displayEntry = "display.bin"
)

// ErrCorruptState is returned when a save-state archive is structurally
// valid but its contents do not describe a machine.
var ErrCorruptState = errors.New("corrupt save state")

// humanReadableState is the JSON snapshot of the machine's control state.
type humanReadableState struct {
	V       [16]byte           `json:"v"`
	I       uint16             `json:"i"`
	PC      uint16             `json:"pc"`
	Stack   [StackDepth]uint16 `json:"stack"`
	SP      uint8              `json:"sp"`
	DT      byte               `json:"dt"`
	ST      byte               `json:"st"`
	Wait    string             `json:"wait"`
	WaitReg uint8              `json:"wait_reg"`
	WaitKey uint8              `json:"wait_key"`
	Cycles  uint64             `json:"cycles"`
	Halted  bool               `json:"halted"`
	Fault   *faultState        `json:"fault,omitempty"`
}

type faultState struct {
	PC     uint16 `json:"pc"`
	Opcode uint16 `json:"opcode"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

var faultKinds = map[string]error{
	"stack_overflow":  ErrStackOverflow,
	"stack_underflow": ErrStackUnderflow,
	"out_of_bounds":   ErrOutOfBounds,
}

func faultKind(err error) string {
	for kind, sentinel := range faultKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return "unknown"
}

func parseWaitState(s string) (WaitState, error) {
	for _, w := range []WaitState{Running, AwaitingKey, KeyResolved} {
		if w.String() == s {
			return w, nil
		}
	}
	return Running, fmt.Errorf("%w: wait state %q", ErrCorruptState, s)
}

// HibernateToBytes serialises the machine into an in-memory ZIP archive:
// control state as JSON, raw memory, and the display contents when the
// display supports it.
func (c *CPU) HibernateToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := humanReadableState{
		V:       c.V,
		I:       c.I,
		PC:      c.PC,
		Stack:   c.Stack,
		SP:      c.SP,
		DT:      c.DT,
		ST:      c.ST,
		Wait:    c.Wait.String(),
		WaitReg: c.WaitReg,
		WaitKey: c.WaitKey,
		Cycles:  c.Cycles,
		Halted:  c.Halted,
	}
	if c.Fault != nil {
		state.Fault = &faultState{
			PC:     c.Fault.PC,
			Opcode: c.Fault.Opcode,
			Kind:   faultKind(c.Fault.Err),
			Detail: c.Fault.Err.Error(),
		}
	}

	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal cpu_state: %w", err)
	}
	if err := writeZipEntry(zw, stateEntry, jsonData); err != nil {
		return nil, err
	}

	if err := writeZipEntry(zw, memoryEntry, c.Memory[:]); err != nil {
		return nil, err
	}

	if sd, ok := c.Display.(StatefulDisplay); ok {
		if err := writeZipEntry(zw, displayEntry, sd.SaveState()); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreFromBytes applies an archive produced by HibernateToBytes. The
// machine is left untouched if the archive is rejected. The audio sink is
// told about any change in whether the sound timer is running.
func (c *CPU) RestoreFromBytes(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, stateEntry)
	if err != nil {
		return err
	}
	var state humanReadableState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return fmt.Errorf("unmarshal cpu_state: %w", err)
	}
	if int(state.SP) > StackDepth {
		return fmt.Errorf("%w: stack pointer %d", ErrCorruptState, state.SP)
	}
	if state.WaitReg > 0x0F {
		return fmt.Errorf("%w: wait register %d", ErrCorruptState, state.WaitReg)
	}
	wait, err := parseWaitState(state.Wait)
	if err != nil {
		return err
	}
	if state.Halted && state.Fault == nil {
		return fmt.Errorf("%w: halted without a fault", ErrCorruptState)
	}

	memData, err := readZipEntry(fileMap, memoryEntry)
	if err != nil {
		return err
	}
	if len(memData) != MemorySize {
		return fmt.Errorf("%w: memory is %d bytes", ErrCorruptState, len(memData))
	}

	if sd, ok := c.Display.(StatefulDisplay); ok {
		if d, err := readZipEntry(fileMap, displayEntry); err == nil {
			if err := sd.LoadState(d); err != nil {
				return fmt.Errorf("load display state: %w", err)
			}
		}
	}

	copy(c.Memory[:], memData)
	c.V = state.V
	c.I = state.I
	c.PC = state.PC
	c.Stack = state.Stack
	c.SP = state.SP
	c.DT = state.DT
	c.Wait = wait
	c.WaitReg = state.WaitReg
	c.WaitKey = state.WaitKey & 0x0F
	c.Cycles = state.Cycles
	c.Halted = state.Halted
	c.Fault = nil
	if state.Fault != nil {
		cause, ok := faultKinds[state.Fault.Kind]
		if !ok {
			cause = errors.New(state.Fault.Detail)
		}
		c.Fault = &Fault{PC: state.Fault.PC, Opcode: state.Fault.Opcode, Err: cause}
	}
	c.setSoundTimer(state.ST)

	return nil
}

// HibernateToFile writes the save-state archive to path.
func (c *CPU) HibernateToFile(path string) error {
	data, err := c.HibernateToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreFromFile reads a save-state archive from path and applies it.
func (c *CPU) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.RestoreFromBytes(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
