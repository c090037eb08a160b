// Package cpu implements the register machine of the chronal device.
//
// The machine has a small register file (four registers for the sample
// variant, six for programs that bind the instruction pointer) of 64-bit
// words, an instruction pointer, and an optional ip-register binding that
// mirrors the instruction pointer into an ordinary register. Sixteen opcodes
// cover addition, multiplication, bitwise and/or, assignment and the two
// comparisons, each with a fixed register/immediate addressing mode.
package cpu
