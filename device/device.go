// Package device provides reference input/output callbacks for wiring a
// vm.Machine to something outside the interpreter: a constant, a free-
// running counter, or a sink that just records what it was given. Real
// board glue supplies its own callbacks reading actual hardware; these
// exist for simulators and tests.
package device

import "emfrpvm/vm"

// Constant returns an InputFunc that always samples the same value,
// standing in for a fixed configuration pin or a calibration constant.
func Constant(v vm.Value) vm.InputFunc {
	return func() vm.Value { return v }
}

// Counter returns an InputFunc that increments by step on every sample,
// useful for driving a deterministic update sequence in tests.
func Counter(start, step int32) vm.InputFunc {
	n := start
	return func() vm.Value {
		v := vm.Int(n)
		n += step
		return v
	}
}

// Sink returns an OutputFunc that appends every value it receives to the
// slice record points at, letting a test or simulator inspect everything
// an output node produced across a run.
func Sink(record *[]vm.Value) vm.OutputFunc {
	return func(v vm.Value) {
		*record = append(*record, v)
	}
}
