package cpu

import (
	"testing"

	"gochip8/pkg/display"
)

// benchProgram loops forever over arithmetic, a draw and a BCD store.
var benchProgram = words(
	0x6001, // LD V0, 1
	0x8014, // ADD V0, V1
	0xA300, // LD I, $300
	0xD015, // DRW V0, V1, 5
	0xF033, // LD B, V0
	0x1202, // JP $202
)

func BenchmarkCycle(b *testing.B) {
	c := NewCPU(display.New(), nil)
	if err := c.LoadProgram(benchProgram); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Cycle(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecode(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Decode(uint16(i))
	}
}
