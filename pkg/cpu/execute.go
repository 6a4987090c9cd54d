package cpu

// ScreenWidth and ScreenHeight bound the sprite origin of Dxyn.
const (
	ScreenWidth  = 64
	ScreenHeight = 32
)

type handler func(c *CPU, in Instruction) error

// handlers is indexed by Op. OpInvalid is a plain two-byte no-op.
var handlers [opCount]handler

func init() {
	handlers = [opCount]handler{
		OpInvalid: (*CPU).opNOP,
		OpCLS:     (*CPU).opCLS,
		OpRET:     (*CPU).opRET,
		OpJP:      (*CPU).opJP,
		OpCALL:    (*CPU).opCALL,
		OpSEByte:  (*CPU).opSEByte,
		OpSNEByte: (*CPU).opSNEByte,
		OpSEReg:   (*CPU).opSEReg,
		OpLDByte:  (*CPU).opLDByte,
		OpADDByte: (*CPU).opADDByte,
		OpLDReg:   (*CPU).opLDReg,
		OpOR:      (*CPU).opOR,
		OpAND:     (*CPU).opAND,
		OpXOR:     (*CPU).opXOR,
		OpADDReg:  (*CPU).opADDReg,
		OpSUB:     (*CPU).opSUB,
		OpSHR:     (*CPU).opSHR,
		OpSUBN:    (*CPU).opSUBN,
		OpSHL:     (*CPU).opSHL,
		OpSNEReg:  (*CPU).opSNEReg,
		OpLDI:     (*CPU).opLDI,
		OpJPV0:    (*CPU).opJPV0,
		OpRND:     (*CPU).opRND,
		OpDRW:     (*CPU).opDRW,
		OpSKP:     (*CPU).opSKP,
		OpSKNP:    (*CPU).opSKNP,
		OpLDVxDT:  (*CPU).opLDVxDT,
		OpLDKey:   (*CPU).opLDKey,
		OpLDDTVx:  (*CPU).opLDDTVx,
		OpLDSTVx:  (*CPU).opLDSTVx,
		OpADDI:    (*CPU).opADDI,
		OpLDFont:  (*CPU).opLDFont,
		OpLDBCD:   (*CPU).opLDBCD,
		OpStore:   (*CPU).opStore,
		OpLoad:    (*CPU).opLoad,
	}
}

func (c *CPU) skipIf(cond bool) {
	if cond {
		c.PC += 2
	}
}

func flag(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (c *CPU) opNOP(in Instruction) error {
	if c.Logger != nil {
		c.Logger.Debug("unknown opcode ignored", "opcode", in.String())
	}
	return nil
}

func (c *CPU) opCLS(Instruction) error {
	c.Display.Clear()
	return nil
}

func (c *CPU) opRET(Instruction) error {
	if c.SP == 0 {
		return ErrStackUnderflow
	}
	c.SP--
	c.PC = c.Stack[c.SP]
	return nil
}

func (c *CPU) opJP(in Instruction) error {
	c.PC = in.NNN()
	return nil
}

func (c *CPU) opCALL(in Instruction) error {
	if int(c.SP) >= StackDepth {
		return ErrStackOverflow
	}
	c.Stack[c.SP] = c.PC
	c.SP++
	c.PC = in.NNN()
	return nil
}

func (c *CPU) opSEByte(in Instruction) error {
	c.skipIf(c.V[in.X()] == in.NN())
	return nil
}

func (c *CPU) opSNEByte(in Instruction) error {
	c.skipIf(c.V[in.X()] != in.NN())
	return nil
}

func (c *CPU) opSEReg(in Instruction) error {
	c.skipIf(c.V[in.X()] == c.V[in.Y()])
	return nil
}

func (c *CPU) opSNEReg(in Instruction) error {
	c.skipIf(c.V[in.X()] != c.V[in.Y()])
	return nil
}

func (c *CPU) opLDByte(in Instruction) error {
	c.V[in.X()] = in.NN()
	return nil
}

func (c *CPU) opADDByte(in Instruction) error {
	c.V[in.X()] += in.NN()
	return nil
}

func (c *CPU) opLDReg(in Instruction) error {
	c.V[in.X()] = c.V[in.Y()]
	return nil
}

func (c *CPU) opOR(in Instruction) error {
	c.V[in.X()] |= c.V[in.Y()]
	return nil
}

func (c *CPU) opAND(in Instruction) error {
	c.V[in.X()] &= c.V[in.Y()]
	return nil
}

func (c *CPU) opXOR(in Instruction) error {
	c.V[in.X()] ^= c.V[in.Y()]
	return nil
}

// The flag is written after the result so that VF as a destination ends up
// holding the flag.

func (c *CPU) opADDReg(in Instruction) error {
	sum := uint16(c.V[in.X()]) + uint16(c.V[in.Y()])
	c.V[in.X()] = byte(sum)
	c.V[0xF] = flag(sum > 0xFF)
	return nil
}

func (c *CPU) opSUB(in Instruction) error {
	vx, vy := c.V[in.X()], c.V[in.Y()]
	c.V[in.X()] = vx - vy
	c.V[0xF] = flag(vx >= vy)
	return nil
}

func (c *CPU) opSUBN(in Instruction) error {
	vx, vy := c.V[in.X()], c.V[in.Y()]
	c.V[in.X()] = vy - vx
	c.V[0xF] = flag(vy >= vx)
	return nil
}

func (c *CPU) opSHR(in Instruction) error {
	v := c.V[in.Y()]
	c.V[in.X()] = v >> 1
	c.V[0xF] = v & 0x01
	return nil
}

func (c *CPU) opSHL(in Instruction) error {
	v := c.V[in.Y()]
	c.V[in.X()] = v << 1
	c.V[0xF] = v >> 7
	return nil
}

func (c *CPU) opLDI(in Instruction) error {
	c.I = in.NNN()
	return nil
}

func (c *CPU) opJPV0(in Instruction) error {
	c.PC = in.NNN() + uint16(c.V[0])
	return nil
}

func (c *CPU) opRND(in Instruction) error {
	c.V[in.X()] = c.Rand() & in.NN()
	return nil
}

func (c *CPU) opDRW(in Instruction) error {
	sprite, err := c.span(c.I, int(in.N()))
	if err != nil {
		return err
	}
	x := c.V[in.X()] % ScreenWidth
	y := c.V[in.Y()] % ScreenHeight
	c.V[0xF] = flag(c.Display.Draw(x, y, sprite))
	return nil
}

func (c *CPU) opSKP(in Instruction) error {
	c.skipIf(c.Keyboard.IsPressed(c.V[in.X()] & 0x0F))
	return nil
}

func (c *CPU) opSKNP(in Instruction) error {
	c.skipIf(!c.Keyboard.IsPressed(c.V[in.X()] & 0x0F))
	return nil
}

func (c *CPU) opLDVxDT(in Instruction) error {
	c.V[in.X()] = c.DT
	return nil
}

func (c *CPU) opLDKey(in Instruction) error {
	c.Wait = AwaitingKey
	c.WaitReg = in.X()
	return nil
}

func (c *CPU) opLDDTVx(in Instruction) error {
	c.DT = c.V[in.X()]
	return nil
}

func (c *CPU) opLDSTVx(in Instruction) error {
	c.setSoundTimer(c.V[in.X()])
	return nil
}

// opADDI saturates I at 0xFFFF; any later access through it faults.
func (c *CPU) opADDI(in Instruction) error {
	sum := int(c.I) + int(c.V[in.X()])
	c.I = uint16(min(sum, 0xFFFF))
	c.V[0xF] = flag(sum > 0x0FFF)
	return nil
}

func (c *CPU) opLDFont(in Instruction) error {
	c.I = FontBase + uint16(c.V[in.X()])*GlyphSize
	return nil
}

func (c *CPU) opLDBCD(in Instruction) error {
	dst, err := c.span(c.I, 3)
	if err != nil {
		return err
	}
	v := c.V[in.X()]
	dst[0] = v / 100
	dst[1] = (v / 10) % 10
	dst[2] = v % 10
	return nil
}

func (c *CPU) opStore(in Instruction) error {
	dst, err := c.span(c.I, int(in.X())+1)
	if err != nil {
		return err
	}
	copy(dst, c.V[:in.X()+1])
	return nil
}

func (c *CPU) opLoad(in Instruction) error {
	src, err := c.span(c.I, int(in.X())+1)
	if err != nil {
		return err
	}
	copy(c.V[:in.X()+1], src)
	return nil
}
