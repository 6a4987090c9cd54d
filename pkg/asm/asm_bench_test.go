package asm

import (
	"strings"
	"testing"
)

// smallProgram bounces a sprite around the screen.
const smallProgram = `
    CLS
    LD V0, 0
    LD V1, 0
    LD I, ball
loop:
    DRW V0, V1, 1
    LD V2, 2
    LD DT, V2
wait:
    LD V3, DT
    SE V3, 0
    JP wait
    DRW V0, V1, 1
    ADD V0, 1
    ADD V1, 1
    JP loop
ball:
    .BYTE $80
`

// largeProgram repeats a block of arithmetic and key handling with unique
// labels.
var largeProgram = func() string {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString("blk" + string(rune('a'+i%26)) + string(rune('a'+i/26)) + ":\n")
		sb.WriteString(`
    LD V0, $10
    ADD V0, V1
    SUB V0, V2
    SHR V0
    SKP V0
    LD V4, K
    LD B, V0
    LD [I], V2
`)
	}
	sb.WriteString("    JP blkaa\n")
	return sb.String()
}()

func BenchmarkAssemble_Small(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, _, err := Assemble(smallProgram); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAssemble_Large(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, _, err := Assemble(largeProgram); err != nil {
			b.Fatal(err)
		}
	}
}
