package cpu

func b2w(cond bool) Word {
	if cond {
		return 1
	}
	return 0
}

// Evaluate computes the result of op for operands a and b against the
// register file. The register file is only read. Register operands must
// already be validated against len(reg); see Instruction.Check.
func Evaluate(op Opcode, reg []Word, a, b Word) (value Word) {
	switch op {
	case OP_ADDR:
		value = reg[a] + reg[b]
	case OP_ADDI:
		value = reg[a] + b
	case OP_MULR:
		value = reg[a] * reg[b]
	case OP_MULI:
		value = reg[a] * b
	case OP_BANR:
		value = reg[a] & reg[b]
	case OP_BANI:
		value = reg[a] & b
	case OP_BORR:
		value = reg[a] | reg[b]
	case OP_BORI:
		value = reg[a] | b
	case OP_SETR:
		value = reg[a]
	case OP_SETI:
		value = a
	case OP_GTIR:
		value = b2w(a > reg[b])
	case OP_GTRI:
		value = b2w(reg[a] > b)
	case OP_GTRR:
		value = b2w(reg[a] > reg[b])
	case OP_EQIR:
		value = b2w(a == reg[b])
	case OP_EQRI:
		value = b2w(reg[a] == b)
	case OP_EQRR:
		value = b2w(reg[a] == reg[b])
	default:
		panic(ErrMnemonic(op.String()))
	}

	return
}
