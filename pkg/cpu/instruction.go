package cpu

import "fmt"

// Op identifies a decoded instruction pattern.
type Op uint8

const (
	OpInvalid Op = iota
	OpCLS        // 00E0
	OpRET        // 00EE
	OpJP         // 1nnn
	OpCALL       // 2nnn
	OpSEByte     // 3xnn
	OpSNEByte    // 4xnn
	OpSEReg      // 5xy0
	OpLDByte     // 6xnn
	OpADDByte    // 7xnn
	OpLDReg      // 8xy0
	OpOR         // 8xy1
	OpAND        // 8xy2
	OpXOR        // 8xy3
	OpADDReg     // 8xy4
	OpSUB        // 8xy5
	OpSHR        // 8xy6
	OpSUBN       // 8xy7
	OpSHL        // 8xyE
	OpSNEReg     // 9xy0
	OpLDI        // Annn
	OpJPV0       // Bnnn
	OpRND        // Cxnn
	OpDRW        // Dxyn
	OpSKP        // Ex9E
	OpSKNP       // ExA1
	OpLDVxDT     // Fx07
	OpLDKey      // Fx0A
	OpLDDTVx     // Fx15
	OpLDSTVx     // Fx18
	OpADDI       // Fx1E
	OpLDFont     // Fx29
	OpLDBCD      // Fx33
	OpStore      // Fx55
	OpLoad       // Fx65

	opCount
)

// Instruction is a decoded 16-bit opcode. D1..D4 are the nibbles from the
// most significant down.
type Instruction struct {
	Opcode uint16
	Op     Op
	D1     uint8
	D2     uint8
	D3     uint8
	D4     uint8
}

// Decode splits an opcode into its nibbles and classifies it. Every value
// decodes; patterns with no meaning get OpInvalid.
func Decode(opcode uint16) Instruction {
	in := Instruction{
		Opcode: opcode,
		D1:     uint8(opcode >> 12),
		D2:     uint8(opcode>>8) & 0x0F,
		D3:     uint8(opcode>>4) & 0x0F,
		D4:     uint8(opcode) & 0x0F,
	}
	in.Op = classify(in)
	return in
}

// X is the first register operand.
func (in Instruction) X() uint8 { return in.D2 }

// Y is the second register operand.
func (in Instruction) Y() uint8 { return in.D3 }

// N is the low nibble.
func (in Instruction) N() uint8 { return in.D4 }

// NN is the low byte.
func (in Instruction) NN() uint8 { return uint8(in.Opcode) }

// NNN is the low 12 bits, an address.
func (in Instruction) NNN() uint16 { return in.Opcode & 0x0FFF }

func classify(in Instruction) Op {
	switch in.D1 {
	case 0x0:
		switch in.Opcode {
		case 0x00E0:
			return OpCLS
		case 0x00EE:
			return OpRET
		}
	case 0x1:
		return OpJP
	case 0x2:
		return OpCALL
	case 0x3:
		return OpSEByte
	case 0x4:
		return OpSNEByte
	case 0x5:
		if in.D4 == 0 {
			return OpSEReg
		}
	case 0x6:
		return OpLDByte
	case 0x7:
		return OpADDByte
	case 0x8:
		switch in.D4 {
		case 0x0:
			return OpLDReg
		case 0x1:
			return OpOR
		case 0x2:
			return OpAND
		case 0x3:
			return OpXOR
		case 0x4:
			return OpADDReg
		case 0x5:
			return OpSUB
		case 0x6:
			return OpSHR
		case 0x7:
			return OpSUBN
		case 0xE:
			return OpSHL
		}
	case 0x9:
		if in.D4 == 0 {
			return OpSNEReg
		}
	case 0xA:
		return OpLDI
	case 0xB:
		return OpJPV0
	case 0xC:
		return OpRND
	case 0xD:
		return OpDRW
	case 0xE:
		switch in.NN() {
		case 0x9E:
			return OpSKP
		case 0xA1:
			return OpSKNP
		}
	case 0xF:
		switch in.NN() {
		case 0x07:
			return OpLDVxDT
		case 0x0A:
			return OpLDKey
		case 0x15:
			return OpLDDTVx
		case 0x18:
			return OpLDSTVx
		case 0x1E:
			return OpADDI
		case 0x29:
			return OpLDFont
		case 0x33:
			return OpLDBCD
		case 0x55:
			return OpStore
		case 0x65:
			return OpLoad
		}
	}
	return OpInvalid
}

// String renders the instruction in the conventional mnemonic syntax, for
// traces and disassembly listings.
func (in Instruction) String() string {
	x, y := in.X(), in.Y()
	switch in.Op {
	case OpCLS:
		return "CLS"
	case OpRET:
		return "RET"
	case OpJP:
		return fmt.Sprintf("JP $%03X", in.NNN())
	case OpCALL:
		return fmt.Sprintf("CALL $%03X", in.NNN())
	case OpSEByte:
		return fmt.Sprintf("SE V%X, $%02X", x, in.NN())
	case OpSNEByte:
		return fmt.Sprintf("SNE V%X, $%02X", x, in.NN())
	case OpSEReg:
		return fmt.Sprintf("SE V%X, V%X", x, y)
	case OpLDByte:
		return fmt.Sprintf("LD V%X, $%02X", x, in.NN())
	case OpADDByte:
		return fmt.Sprintf("ADD V%X, $%02X", x, in.NN())
	case OpLDReg:
		return fmt.Sprintf("LD V%X, V%X", x, y)
	case OpOR:
		return fmt.Sprintf("OR V%X, V%X", x, y)
	case OpAND:
		return fmt.Sprintf("AND V%X, V%X", x, y)
	case OpXOR:
		return fmt.Sprintf("XOR V%X, V%X", x, y)
	case OpADDReg:
		return fmt.Sprintf("ADD V%X, V%X", x, y)
	case OpSUB:
		return fmt.Sprintf("SUB V%X, V%X", x, y)
	case OpSHR:
		return fmt.Sprintf("SHR V%X, V%X", x, y)
	case OpSUBN:
		return fmt.Sprintf("SUBN V%X, V%X", x, y)
	case OpSHL:
		return fmt.Sprintf("SHL V%X, V%X", x, y)
	case OpSNEReg:
		return fmt.Sprintf("SNE V%X, V%X", x, y)
	case OpLDI:
		return fmt.Sprintf("LD I, $%03X", in.NNN())
	case OpJPV0:
		return fmt.Sprintf("JP V0, $%03X", in.NNN())
	case OpRND:
		return fmt.Sprintf("RND V%X, $%02X", x, in.NN())
	case OpDRW:
		return fmt.Sprintf("DRW V%X, V%X, %d", x, y, in.N())
	case OpSKP:
		return fmt.Sprintf("SKP V%X", x)
	case OpSKNP:
		return fmt.Sprintf("SKNP V%X", x)
	case OpLDVxDT:
		return fmt.Sprintf("LD V%X, DT", x)
	case OpLDKey:
		return fmt.Sprintf("LD V%X, K", x)
	case OpLDDTVx:
		return fmt.Sprintf("LD DT, V%X", x)
	case OpLDSTVx:
		return fmt.Sprintf("LD ST, V%X", x)
	case OpADDI:
		return fmt.Sprintf("ADD I, V%X", x)
	case OpLDFont:
		return fmt.Sprintf("LD F, V%X", x)
	case OpLDBCD:
		return fmt.Sprintf("LD B, V%X", x)
	case OpStore:
		return fmt.Sprintf("LD [I], V%X", x)
	case OpLoad:
		return fmt.Sprintf("LD V%X, [I]", x)
	}
	return fmt.Sprintf("DW $%04X", in.Opcode)
}
