// Package asm is a two-pass assembler for CHIP-8 programs written with the
// conventional mnemonics (CLS, LD V1, $20, DRW V0, V1, 5 ...). Output is a
// big-endian program image meant to be loaded at the program start address.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gochip8/pkg/cpu"
)

type operandKind uint8

const (
	kReg operandKind = iota
	kV0
	kAddr
	kByte
	kNibble
	kI
	kIndirect
	kDT
	kST
	kK
	kF
	kB
)

// form is one operand shape of a mnemonic. Registers fill X then Y;
// immediates fill the low bits.
type form struct {
	operands []operandKind
	base     uint16
}

var forms = map[string][]form{
	"CLS":  {{nil, 0x00E0}},
	"RET":  {{nil, 0x00EE}},
	"SYS":  {{[]operandKind{kAddr}, 0x0000}},
	"JP":   {{[]operandKind{kAddr}, 0x1000}, {[]operandKind{kV0, kAddr}, 0xB000}},
	"CALL": {{[]operandKind{kAddr}, 0x2000}},
	"SE":   {{[]operandKind{kReg, kByte}, 0x3000}, {[]operandKind{kReg, kReg}, 0x5000}},
	"SNE":  {{[]operandKind{kReg, kByte}, 0x4000}, {[]operandKind{kReg, kReg}, 0x9000}},
	"LD": {
		{[]operandKind{kReg, kByte}, 0x6000},
		{[]operandKind{kReg, kReg}, 0x8000},
		{[]operandKind{kI, kAddr}, 0xA000},
		{[]operandKind{kReg, kDT}, 0xF007},
		{[]operandKind{kReg, kK}, 0xF00A},
		{[]operandKind{kDT, kReg}, 0xF015},
		{[]operandKind{kST, kReg}, 0xF018},
		{[]operandKind{kF, kReg}, 0xF029},
		{[]operandKind{kB, kReg}, 0xF033},
		{[]operandKind{kIndirect, kReg}, 0xF055},
		{[]operandKind{kReg, kIndirect}, 0xF065},
	},
	"ADD": {
		{[]operandKind{kReg, kByte}, 0x7000},
		{[]operandKind{kReg, kReg}, 0x8004},
		{[]operandKind{kI, kReg}, 0xF01E},
	},
	"OR":   {{[]operandKind{kReg, kReg}, 0x8001}},
	"AND":  {{[]operandKind{kReg, kReg}, 0x8002}},
	"XOR":  {{[]operandKind{kReg, kReg}, 0x8003}},
	"SUB":  {{[]operandKind{kReg, kReg}, 0x8005}},
	"SHR":  {{[]operandKind{kReg, kReg}, 0x8006}, {[]operandKind{kReg}, 0x8006}},
	"SUBN": {{[]operandKind{kReg, kReg}, 0x8007}},
	"SHL":  {{[]operandKind{kReg, kReg}, 0x800E}, {[]operandKind{kReg}, 0x800E}},
	"RND":  {{[]operandKind{kReg, kByte}, 0xC000}},
	"DRW":  {{[]operandKind{kReg, kReg, kNibble}, 0xD000}},
	"SKP":  {{[]operandKind{kReg}, 0xE09E}},
	"SKNP": {{[]operandKind{kReg}, 0xE0A1}},
}

var keywords = map[string]operandKind{
	"I":   kI,
	"[I]": kIndirect,
	"DT":  kDT,
	"ST":  kST,
	"K":   kK,
	"F":   kF,
	"B":   kB,
}

const instructionSize = 2

type Assembler struct {
	// Origin is the address of the first emitted byte.
	Origin uint16

	labels map[string]uint16
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		Origin: cpu.ProgramStart,
		labels: make(map[string]uint16),
	}
}

// Assemble builds a program image and a map from address to source line.
func Assemble(code string) ([]byte, map[uint16]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]byte, map[uint16]int, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, nil, err
	}
	return a.pass2(lines)
}

// Labels returns the resolved label addresses, keyed by upper-cased name.
func (a *Assembler) Labels() map[string]uint16 {
	out := make(map[string]uint16, len(a.labels))
	for k, v := range a.labels {
		out[k] = v
	}
	return out
}

func (a *Assembler) pass1(lines []string) error {
	address := uint32(a.Origin)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if address >= cpu.MemorySize {
				return fmt.Errorf("label '%s' on line %d points past addressable memory", lbl, lineNo)
			}
			key := normalizeLabel(lbl)
			if _, exists := a.labels[key]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			if _, reserved := keywords[key]; reserved || isRegister(key) {
				return fmt.Errorf("label '%s' on line %d shadows a register or keyword", lbl, lineNo)
			}
			a.labels[key] = uint16(address)
		}

		if p.mnemonic == "" {
			continue
		}

		var length uint32
		switch p.mnemonic {
		case ".ORG":
			target, err := parseNumber(p.operands[0])
			if err != nil || target >= cpu.MemorySize {
				return fmt.Errorf("invalid .ORG value on line %d: %s", lineNo, p.operands[0])
			}
			if uint32(target) < address {
				return fmt.Errorf("cannot move origin backward on line %d", lineNo)
			}
			address = uint32(target)
			continue
		case ".BYTE":
			if len(p.operands) == 0 {
				return fmt.Errorf(".BYTE expects at least one operand on line %d", lineNo)
			}
			length = uint32(len(p.operands))
		case ".WORD":
			if len(p.operands) == 0 {
				return fmt.Errorf(".WORD expects at least one operand on line %d", lineNo)
			}
			length = uint32(2 * len(p.operands))
		default:
			if _, ok := forms[p.mnemonic]; !ok {
				return fmt.Errorf("unknown instruction on line %d: %s", lineNo, p.mnemonic)
			}
			length = instructionSize
		}

		if address+length > cpu.MemorySize {
			return fmt.Errorf("program too large near line %d", lineNo)
		}
		address += length
	}

	return nil
}

func (a *Assembler) pass2(lines []string) ([]byte, map[uint16]int, error) {
	program := make([]byte, 0)
	sourceMap := make(map[uint16]int)
	here := func() uint16 { return a.Origin + uint16(len(program)) }

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, nil, err
		}
		if p.mnemonic == "" {
			continue
		}

		if p.mnemonic == ".ORG" {
			target, _ := parseNumber(p.operands[0])
			if padding := int(target) - int(here()); padding > 0 {
				program = append(program, make([]byte, padding)...)
			}
			continue
		}

		sourceMap[here()] = lineNo

		switch p.mnemonic {
		case ".BYTE":
			for _, op := range p.operands {
				v, err := a.parseImmediate(op, 0xFF, lineNo)
				if err != nil {
					return nil, nil, err
				}
				program = append(program, byte(v))
			}
			continue
		case ".WORD":
			for _, op := range p.operands {
				v, err := a.parseImmediate(op, 0xFFFF, lineNo)
				if err != nil {
					return nil, nil, err
				}
				program = append(program, byte(v>>8), byte(v))
			}
			continue
		}

		opcode, err := a.encode(p)
		if err != nil {
			return nil, nil, err
		}
		program = append(program, byte(opcode>>8), byte(opcode))
	}

	return program, sourceMap, nil
}

// encode picks the form of p.mnemonic matching its operands and builds the
// opcode.
func (a *Assembler) encode(p parsedLine) (uint16, error) {
	kinds := make([]operandKind, len(p.operands))
	for i, tok := range p.operands {
		kinds[i] = classifyOperand(tok)
	}

	for _, f := range forms[p.mnemonic] {
		if !matches(f.operands, kinds) {
			continue
		}
		opcode := f.base
		regShift := 8
		for i, kind := range f.operands {
			tok := p.operands[i]
			switch kind {
			case kReg, kV0:
				r, _ := parseRegister(tok)
				opcode |= uint16(r) << regShift
				regShift -= 4
			case kAddr:
				v, err := a.parseImmediate(tok, 0xFFF, p.lineNo)
				if err != nil {
					return 0, err
				}
				opcode |= v
			case kByte:
				v, err := a.parseImmediate(tok, 0xFF, p.lineNo)
				if err != nil {
					return 0, err
				}
				opcode |= v
			case kNibble:
				v, err := a.parseImmediate(tok, 0xF, p.lineNo)
				if err != nil {
					return 0, err
				}
				opcode |= v
			}
		}
		return opcode, nil
	}

	return 0, fmt.Errorf("invalid operands for %s on line %d: %s", p.mnemonic, p.lineNo, strings.Join(p.operands, ", "))
}

func matches(want []operandKind, got []operandKind) bool {
	if len(want) != len(got) {
		return false
	}
	for i, w := range want {
		g := got[i]
		switch w {
		case kReg:
			if g != kReg && g != kV0 {
				return false
			}
		case kAddr, kByte, kNibble:
			if g != kAddr {
				return false
			}
		default:
			if g != w {
				return false
			}
		}
	}
	return true
}

// classifyOperand sorts a token into register, keyword or immediate.
// Immediates, numeric or label, all report kAddr.
func classifyOperand(tok string) operandKind {
	upper := strings.ToUpper(tok)
	if k, ok := keywords[upper]; ok {
		return k
	}
	if r, ok := parseRegister(upper); ok {
		if r == 0 {
			return kV0
		}
		return kReg
	}
	return kAddr
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}
		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}
		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}
		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(normalizeInstructionText(line))
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	switch p.mnemonic {
	case "ORG":
		p.mnemonic = ".ORG"
	case "DB":
		p.mnemonic = ".BYTE"
	case "DW":
		p.mnemonic = ".WORD"
	}
	if p.mnemonic == ".ORG" && len(p.operands) != 1 {
		return p, fmt.Errorf(".ORG expects exactly one operand on line %d", lineNo)
	}

	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func normalizeInstructionText(line string) string {
	replacer := strings.NewReplacer(",", " ", "[ ", "[", " ]", "]")
	return replacer.Replace(line)
}

// parseRegister accepts V0 through VF.
func parseRegister(token string) (uint8, bool) {
	if len(token) != 2 || (token[0] != 'V' && token[0] != 'v') {
		return 0, false
	}
	v, err := strconv.ParseUint(token[1:], 16, 8)
	if err != nil {
		return 0, false
	}
	return uint8(v), true
}

func isRegister(token string) bool {
	_, ok := parseRegister(token)
	return ok
}

// parseNumber reads decimal, $hex, #hex or Go-prefixed (0x, 0b, 0o) literals.
func parseNumber(token string) (uint64, error) {
	if strings.HasPrefix(token, "$") || strings.HasPrefix(token, "#") {
		return strconv.ParseUint(token[1:], 16, 32)
	}
	return strconv.ParseUint(token, 0, 32)
}

func (a *Assembler) parseImmediate(token string, limit uint16, lineNo int) (uint16, error) {
	if value, err := parseNumber(token); err == nil {
		if value > uint64(limit) {
			return 0, fmt.Errorf("immediate out of range on line %d: %s (max 0x%X)", lineNo, token, limit)
		}
		return uint16(value), nil
	}

	if addr, ok := a.labels[normalizeLabel(token)]; ok {
		if addr > limit {
			return 0, fmt.Errorf("label '%s' on line %d does not fit in 0x%X", token, lineNo, limit)
		}
		return addr, nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}
	return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

func normalizeLabel(label string) string {
	return strings.ToUpper(label)
}
