package main

import (
	"bytes"
	"strings"
	"testing"

	"gochip8/pkg/asm"
)

const listingSource = `start:
	LD V0, 5
	JP start   ; forever
data:
	.BYTE 1, 2, 3
`

func TestWriteListing(t *testing.T) {
	a := asm.NewAssembler()
	code, sourceMap, err := a.Assemble(listingSource)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	var buf bytes.Buffer
	if err := writeListing(&buf, a.Origin, code, sourceMap, listingSource); err != nil {
		t.Fatalf("writeListing: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("listing has %d lines; want 3:\n%s", len(lines), buf.String())
	}

	want := [][]string{
		{"200  6005", "LD V0, $05", "2  LD V0, 5"},
		{"202  1200", "JP $200", "3  JP start   ; forever"},
		{"204  010203", "5  .BYTE 1, 2, 3"},
	}
	for i, fragments := range want {
		for _, f := range fragments {
			if !strings.Contains(lines[i], f) {
				t.Errorf("line %d = %q; missing %q", i, lines[i], f)
			}
		}
	}
}

func TestWriteLabels(t *testing.T) {
	var buf bytes.Buffer
	err := writeLabels(&buf, map[string]uint16{"LOOP": 0x204, "START": 0x200, "END": 0x204})
	if err != nil {
		t.Fatalf("writeLabels: %v", err)
	}
	want := "200  START\n204  END\n204  LOOP\n"
	if buf.String() != want {
		t.Errorf("labels = %q; want %q", buf.String(), want)
	}
}
