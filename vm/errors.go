package vm

import "errors"

// Result is the status every exec/update entry point returns, mirroring
// the five-way outcome the source machine reports to its host over UART:
// success, a program-raised abort, a debug-mode invariant violation, an
// unrecognized opcode, or an allocation failure.
type Result byte

const (
	ResultOK          Result = 0
	ResultRuntimeErr  Result = 1
	ResultPanic       Result = 2
	ResultTODO        Result = 3
	ResultOutOfMemory Result = 4
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultRuntimeErr:
		return "RUNTIME_ERR"
	case ResultPanic:
		return "PANIC"
	case ResultTODO:
		return "TODO"
	case ResultOutOfMemory:
		return "OUTOF_MEMORY"
	default:
		return "?unknown-result?"
	}
}

// errProgramAborted is raised by the ABORT opcode: a program-level
// explicit failure, distinct from an interpreter-detected invariant
// violation.
var errProgramAborted = errors.New("vm: program aborted")

// errStackImbalance is raised by HALT's debug-mode check that the value
// stack is empty (sp == 0).
var errStackImbalance = errors.New("vm: stack did not balance across update")

// errUnknownOpcode is raised when exec encounters a byte with no dispatch
// case, i.e. a byte outside the declared instruction set (every declared
// opcode has a case).
var errUnknownOpcode = errors.New("vm: unknown opcode")

// errOutOfMemory is raised when a registry growth operation would exceed
// its configured capacity (see MaxRegistryCapacity), when a push finds the
// value stack full, or when a call would exceed MaxCallDepth.
var errOutOfMemory = errors.New("vm: out of memory")

// errMalformedFrame is raised by the loader when a wire frame fails a
// structural check (empty frame, unknown kind byte, truncated header or
// body, lengths that run past the end of the frame)
// before any bytecode ever executes.
var errMalformedFrame = errors.New("vm: malformed bytecode frame")

// resultFor classifies an error returned from exec/update into the
// Result byte the transport layer puts on the wire.
func resultFor(err error) Result {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, errProgramAborted):
		return ResultRuntimeErr
	case errors.Is(err, errStackImbalance):
		return ResultPanic
	case errors.Is(err, errUnknownOpcode):
		return ResultTODO
	case errors.Is(err, errOutOfMemory):
		return ResultOutOfMemory
	default:
		return ResultRuntimeErr
	}
}
