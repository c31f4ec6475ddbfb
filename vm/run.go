package vm

import (
	"os"
	"runtime/debug"
	"strconv"
)

// Update is the engine's single entry point for one reactive cycle: if an
// update program was installed, run it; otherwise report success
// immediately. It mirrors emfrp_update exactly -- the node/data/last-value
// registries only change during this call, never from the callback that
// sets Trigger.
//
// Matching the source's target (an interpreter running in a tight loop
// with no allocator pauses allowed), the Go garbage collector is disabled
// for the duration of the call and restored afterwards, the same
// technique the teacher project uses around its own hot execution loop.
func (m *Machine) Update() Result {
	if m.updateBody == nil {
		return ResultOK
	}

	gcPercent := currentGCPercent()
	debug.SetGCPercent(-1)
	defer debug.SetGCPercent(gcPercent)

	err := m.exec(m.updateBody)
	return resultFor(err)
}

// Poll runs Update only if Trigger has been called since the last Poll,
// matching the board glue's cooperative main loop: sleep, wake on
// interrupt, set the flag, call update, go back to sleep.
func (m *Machine) Poll() Result {
	if !m.consumeTrigger() {
		return ResultOK
	}
	return m.Update()
}

func currentGCPercent() int {
	val, ok := os.LookupEnv("GOGC")
	if !ok {
		return 100
	}
	percent, err := strconv.Atoi(val)
	if err != nil {
		return 100
	}
	return percent
}
