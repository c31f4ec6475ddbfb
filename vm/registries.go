package vm

// MaxRegistryCapacity bounds how large any single registry (node, func,
// data, or last-value) may grow. The source runs on hardware with only a
// few kilobytes of RAM and discovers this limit by a failed malloc; Go's
// allocator will happily grow a slice far past what an embedded target
// could ever host, so this cap gives the loader the same OUTOF_MEMORY
// failure mode on a deterministic, testable threshold instead.
var MaxRegistryCapacity = 4096

// InputFunc supplies a fresh value for a device-driven input node each
// update cycle, standing in for the source's hardware-read callback.
type InputFunc func() Value

// OutputFunc consumes a value produced by an output action, standing in
// for the source's hardware-write callback.
type OutputFunc func(Value)

// nodeAction is the update_action union for one node_list slot: at most
// one of Body (a user node's updater bytecode) or Input (an input node's
// device-read callback) is set, never both; a freshly grown slot, or an
// output node whose body has not been loaded yet, has neither.
type nodeAction struct {
	Body  []byte
	Input InputFunc
}

// nodeList holds the parallel value/update_action arrays described by the
// reactive program model: one value and one update action per node,
// indexed by node ID. Input nodes occupy the low indices, user nodes the
// rest, per loader convention.
type nodeList struct {
	values  []Value
	actions []nodeAction
}

func (n *nodeList) len() int { return len(n.values) }

// grow extends the registry by count entries, all zero-valued with a nil
// action, returning the index of the first new entry. It fails with
// errOutOfMemory rather than exceed MaxRegistryCapacity.
func (n *nodeList) grow(count int) (int, error) {
	start := len(n.values)
	if start+count > MaxRegistryCapacity {
		return 0, errOutOfMemory
	}
	for i := 0; i < count; i++ {
		n.values = append(n.values, Zero)
		n.actions = append(n.actions, nodeAction{})
	}
	return start, nil
}

// set installs a body-driven update action at idx, replacing and
// releasing whatever value previously lived there -- mirroring the
// loader's offset<length "replace in place" branch.
func (n *nodeList) set(idx int, body []byte) {
	drop(n.values[idx])
	n.values[idx] = Zero
	n.actions[idx] = nodeAction{Body: body}
}

// setInput installs a device-input action at idx.
func (n *nodeList) setInput(idx int, fn InputFunc) {
	drop(n.values[idx])
	n.values[idx] = Zero
	n.actions[idx] = nodeAction{Input: fn}
}

// funcList holds pointers to user-defined function bodies, indexed by
// function ID.
type funcList struct {
	bodies [][]byte
}

func (f *funcList) len() int { return len(f.bodies) }

func (f *funcList) grow(count int) (int, error) {
	start := len(f.bodies)
	if start+count > MaxRegistryCapacity {
		return 0, errOutOfMemory
	}
	for i := 0; i < count; i++ {
		f.bodies = append(f.bodies, nil)
	}
	return start, nil
}

func (f *funcList) set(idx int, body []byte) {
	f.bodies[idx] = body
}

// dataList holds global constant/persistent-state value slots.
type dataList struct {
	values []Value
}

func (d *dataList) len() int { return len(d.values) }

func (d *dataList) grow(count int) (int, error) {
	start := len(d.values)
	if start+count > MaxRegistryCapacity {
		return 0, errOutOfMemory
	}
	for i := 0; i < count; i++ {
		d.values = append(d.values, Zero)
	}
	return start, nil
}

func (d *dataList) set(idx int, v Value) {
	drop(d.values[idx])
	d.values[idx] = v
}

// lastValues is the flat vector of previous-cycle values for nodes whose
// updater reads last(node), indexed by a per-program slot number distinct
// from node ID.
type lastValues struct {
	values []Value
}

func (l *lastValues) len() int { return len(l.values) }

// reset discards the current vector and replaces it with a fresh
// count-length vector of zero values, dropping any object-valued entries
// first. Unlike node_list/func_list/data_list, which genuinely grow
// cumulatively across loads, the source frees and reallocates node_last
// on every load (machine.cpp's emfrp_init_vars: "free(em->node_last); if
// (num_last != 0) { em->node_last = malloc(...) }") -- a second program
// image does not extend the previous one's last-value vector, it
// replaces it outright.
func (l *lastValues) reset(count int) error {
	if count > MaxRegistryCapacity {
		return errOutOfMemory
	}
	for _, v := range l.values {
		drop(v)
	}
	l.values = make([]Value, count)
	return nil
}

// outputActions holds one device-write callback per output node, indexed
// in the same order emfrp_add_output_node registered them.
type outputActions struct {
	fns []OutputFunc
}

func (o *outputActions) len() int { return len(o.fns) }

func (o *outputActions) append(fn OutputFunc) int {
	o.fns = append(o.fns, fn)
	return len(o.fns) - 1
}
