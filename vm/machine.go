package vm

import "bufio"

// Init allocates a Machine's value stack and zero-initialised registries,
// pre-sizing the node registry for nInputs + nOutputs entries the caller
// is about to register via AddInputNode/AddOutputNode. It corresponds to
// the board glue's init(n_inputs, n_outputs) call and must run before any
// NewBytecode frame is processed.
func Init(nInputs, nOutputs int, out *bufio.Writer) *Machine {
	m := NewMachine(out)
	m.nodes.values = make([]Value, 0, nInputs+nOutputs)
	m.nodes.actions = make([]nodeAction, 0, nInputs+nOutputs)
	return m
}

// EmfrpInt constructs the Value an input callback or host bridge should
// hand the engine for a plain integer reading.
func EmfrpInt(i int32) Value { return Int(i) }

// EmfrpTrue and EmfrpFalse are the boolean equivalents of EmfrpInt.
func EmfrpTrue() Value  { return Bool(true) }
func EmfrpFalse() Value { return Bool(false) }
