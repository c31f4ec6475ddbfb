package vm

import "time"

// AddInputNode appends an input node: one whose value is supplied by a
// device-read callback (fn) rather than computed from other nodes. It is
// driven by UPD_DEV_* opcodes in the update program, matching
// emfrp_add_input_node.
func (m *Machine) AddInputNode(initial Value, fn InputFunc) (int, error) {
	idx, err := m.nodes.grow(1)
	if err != nil {
		return 0, err
	}
	m.nodes.values[idx] = initial
	m.nodes.actions[idx] = nodeAction{Input: fn}
	return idx, nil
}

// AddOutputNode appends a user node and registers its output callback,
// matching emfrp_add_output_node. The node's updater body is installed
// later by the loader; fn receives whatever value that body produces each
// cycle it fires an OUTPUT_ACTION opcode.
func (m *Machine) AddOutputNode(initial Value, fn OutputFunc) (int, error) {
	idx, err := m.nodes.grow(1)
	if err != nil {
		return 0, err
	}
	m.nodes.values[idx] = initial
	m.outputs.append(fn)
	return idx, nil
}

// PeriodicTrigger starts a goroutine that calls m.Trigger() every
// interval until the returned stop function is invoked, giving a desktop
// or test harness the same "external event fires, flag gets set, main
// loop notices on its own schedule" shape as a hardware timer interrupt
// driving the board's real update loop.
func (m *Machine) PeriodicTrigger(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Trigger()
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
