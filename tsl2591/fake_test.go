package tsl2591

import (
	"fmt"
)

type busOp struct {
	op    string
	reg   byte
	value byte
}

// fakeBus simulates the TSL2591 register file. Every command must carry the
// command bit; the low five bits select the register.
type fakeBus struct {
	addr uint16
	regs [0x20]byte
	ops  []busOp
	// fail, when set, can reject a transaction before it reaches the registers.
	fail func(op string, reg byte) error
}

func newFakeBus() *fakeBus {
	b := &fakeBus{}
	b.regs[TSL2591_REGISTER_DEVICE_ID] = TSL2591_DEVICE_ID
	return b
}

func (b *fakeBus) setChannels(ch0, ch1 uint16) {
	b.regs[TSL2591_REGISTER_CHAN0_LOW] = byte(ch0)
	b.regs[TSL2591_REGISTER_CHAN0_HIGH] = byte(ch0 >> 8)
	b.regs[TSL2591_REGISTER_CHAN1_LOW] = byte(ch1)
	b.regs[TSL2591_REGISTER_CHAN1_HIGH] = byte(ch1 >> 8)
}

func (b *fakeBus) decode(op string, cmd byte) (byte, error) {
	if cmd&0xE0 != TSL2591_COMMAND_BIT {
		return 0, fmt.Errorf("command 0x%02X without command bit", cmd)
	}
	reg := cmd & 0x1F
	b.ops = append(b.ops, busOp{op: op, reg: reg})
	if b.fail != nil {
		if err := b.fail(op, reg); err != nil {
			return 0, err
		}
	}
	return reg, nil
}

func (b *fakeBus) SetAddress(addr uint16) error {
	b.addr = addr
	return nil
}

func (b *fakeBus) ReadReg(cmd byte) (byte, error) {
	reg, err := b.decode("read", cmd)
	if err != nil {
		return 0, err
	}
	return b.regs[reg], nil
}

func (b *fakeBus) WriteReg(cmd, value byte) error {
	reg, err := b.decode("write", cmd)
	if err != nil {
		return err
	}
	b.ops[len(b.ops)-1].value = value
	b.regs[reg] = value
	return nil
}

func (b *fakeBus) ReadWordLE(cmd byte) (uint16, error) {
	reg, err := b.decode("word", cmd)
	if err != nil {
		return 0, err
	}
	return uint16(b.regs[reg]) | uint16(b.regs[reg+1])<<8, nil
}

func (b *fakeBus) reset() {
	b.ops = nil
}

// words returns the registers read as words, in order.
func (b *fakeBus) words() []byte {
	var regs []byte
	for _, op := range b.ops {
		if op.op == "word" {
			regs = append(regs, op.reg)
		}
	}
	return regs
}
