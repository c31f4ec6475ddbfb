// Package vm implements the reactive bytecode engine: a fixed-size value
// stack, four grow-only registries (nodes, functions, data, last-values),
// a reference-counted heap object representation, and the dispatch loop
// that executes compiled FRP programs against them.
package vm

import (
	"bufio"
	"encoding/binary"
	"sync/atomic"
)

// StackSize is the value stack's fixed capacity, in words. The source
// configures this at compile time for its target hardware; 128 matches
// its typical default.
var StackSize = 128

// Machine holds everything one running program needs: the value stack,
// the four registries, the call-frame and update-continuation stacks, and
// the host I/O this program's Print/PrintObj opcodes write to.
type Machine struct {
	stack []Value
	sp    int
	bp    int

	nodes   nodeList
	funcs   funcList
	data    dataList
	last    lastValues
	outputs outputActions

	frames frameStack
	conts  contStack

	// Debug enables the extra invariant checks the source only performs
	// in a debug build: Halt's stack-balance check becomes a PANIC result
	// instead of being skipped.
	Debug bool

	stdout *bufio.Writer
	stdin  *bufio.Reader

	// triggered is set by an external event (timer, interrupt, host
	// message) to request the next Update() call run the update
	// program. Polled, not blocking -- matching the source's single-
	// threaded, cooperative main loop.
	triggered atomic.Bool

	updateBody []byte
	initExpr   []byte
}

// NewMachine allocates a Machine with a fresh value stack and empty
// registries, writing Print/PrintObj output to out and reading nothing
// (input nodes supply their own values via InputFunc callbacks).
func NewMachine(out *bufio.Writer) *Machine {
	return &Machine{
		stack:  make([]Value, StackSize),
		stdout: out,
	}
}

// Trigger requests that the next call to Update runs the update program.
// Safe to call from any goroutine -- e.g. a timer or device ISR -- since
// it only sets an atomic flag the driver polls.
func (m *Machine) Trigger() {
	m.triggered.Store(true)
}

func (m *Machine) consumeTrigger() bool {
	return m.triggered.Swap(false)
}

func (m *Machine) push(v Value) error {
	if m.sp >= len(m.stack) {
		return errOutOfMemory
	}
	m.stack[m.sp] = v
	m.sp++
	return nil
}

func (m *Machine) pop() Value {
	m.sp--
	return m.stack[m.sp]
}

func (m *Machine) peek() Value {
	return m.stack[m.sp-1]
}

func (m *Machine) local(i int) Value {
	return m.stack[m.bp+i]
}

func (m *Machine) setLocal(i int, v Value) {
	m.stack[m.bp+i] = v
}

// readU8/readU16/readU32/readI8/readI16/readI32 decode a little-endian
// operand starting at body[ip] and return (value, bytes consumed),
// matching the source's wire format for every multi-byte instruction
// operand.
func readU8(body []byte, ip int) (uint8, int) {
	return body[ip], 1
}

func readI8(body []byte, ip int) (int8, int) {
	return int8(body[ip]), 1
}

func readU16(body []byte, ip int) (uint16, int) {
	return binary.LittleEndian.Uint16(body[ip:]), 2
}

func readI16(body []byte, ip int) (int16, int) {
	return int16(binary.LittleEndian.Uint16(body[ip:])), 2
}

func readU32(body []byte, ip int) (uint32, int) {
	return binary.LittleEndian.Uint32(body[ip:]), 4
}

func readI32(body []byte, ip int) (int32, int) {
	return int32(binary.LittleEndian.Uint32(body[ip:])), 4
}

func putU32(dst []byte, v uint32) {
	binary.LittleEndian.PutUint32(dst, v)
}
