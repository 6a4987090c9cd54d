package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gochip8/pkg/asm"
	"gochip8/pkg/cpu"
)

func assemble(t *testing.T, src string) []byte {
	t.Helper()
	code, _, err := asm.Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return code
}

func TestRunROM_CountdownLoop(t *testing.T) {
	rom := assemble(t, `
	LD V0, 3
loop:
	ADD V1, 2
	ADD V0, $FF
	SE V0, 0
	JP loop
done:
	JP done
`)
	var out bytes.Buffer
	vm, err := runROM(&out, rom, runOptions{cycles: 50, seed: 1})
	if err != nil {
		t.Fatalf("runROM: %v", err)
	}
	if vm.V[0] != 0 || vm.V[1] != 6 {
		t.Errorf("V0=%d V1=%d; want 0 and 6", vm.V[0], vm.V[1])
	}
	if vm.Cycles != 50 {
		t.Errorf("Cycles = %d; want 50", vm.Cycles)
	}
	if !strings.Contains(out.String(), "V0=00 V1=06") {
		t.Errorf("state dump missing registers:\n%s", out.String())
	}
}

func TestRunROM_Trace(t *testing.T) {
	rom := assemble(t, "CLS\nLD V2, $2A\nLD I, $300\n")
	var out bytes.Buffer
	if _, err := runROM(&out, rom, runOptions{cycles: 3, trace: true}); err != nil {
		t.Fatalf("runROM: %v", err)
	}
	lines := strings.Split(out.String(), "\n")
	want := []string{"200  00E0  CLS", "202  622A  LD V2, $2A", "204  A300  LD I, $300"}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("trace line %d = %q; want %q", i, lines[i], w)
		}
	}
	if !strings.HasPrefix(lines[3], "PC=0x206 I=0x300") {
		t.Errorf("state line = %q", lines[3])
	}
}

func TestRunROM_Fault(t *testing.T) {
	rom := assemble(t, "LD V0, 1\nRET\n")
	var out bytes.Buffer
	vm, err := runROM(&out, rom, runOptions{cycles: 10})
	if err != nil {
		t.Fatalf("runROM: %v", err)
	}
	if !errors.Is(vm.Fault, cpu.ErrStackUnderflow) {
		t.Errorf("fault = %v", vm.Fault)
	}
	if !strings.Contains(out.String(), "halted: stack underflow at PC=0x202") {
		t.Errorf("dump does not report the halt:\n%s", out.String())
	}
}

func TestRunROM_StopsOnKeyWait(t *testing.T) {
	rom := assemble(t, "LD V5, K\nLD V6, 1\n")
	var out bytes.Buffer
	vm, err := runROM(&out, rom, runOptions{cycles: 100})
	if err != nil {
		t.Fatalf("runROM: %v", err)
	}
	if vm.Wait != cpu.AwaitingKey || vm.Cycles != 1 {
		t.Errorf("wait=%v cycles=%d", vm.Wait, vm.Cycles)
	}
	if !strings.Contains(out.String(), "wait="+cpu.AwaitingKey.String()) {
		t.Errorf("dump = %s", out.String())
	}
}

func TestRunROM_TooLarge(t *testing.T) {
	_, err := runROM(&bytes.Buffer{}, make([]byte, cpu.MaxProgramSize+1), runOptions{cycles: 1})
	if !errors.Is(err, cpu.ErrProgramTooLarge) {
		t.Errorf("err = %v; want ErrProgramTooLarge", err)
	}
}
