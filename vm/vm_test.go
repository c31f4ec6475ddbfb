package vm

import (
	"bufio"
	"bytes"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func newTestMachine() (*Machine, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewMachine(bufio.NewWriter(&buf)), &buf
}

// Arithmetic expression (2 + 3) * 4, run as an immediate-eval frame.
func TestArithmeticImmediateEval(t *testing.T) {
	m, out := newTestMachine()
	frame := []byte{
		1, // kind: immediate eval
		byte(OpInt2), byte(OpInt3), byte(OpAdd),
		byte(OpInt4), byte(OpMul),
		byte(OpPrint), byte(OpHalt),
	}

	res := m.NewBytecode(frame)
	assert(t, res == ResultOK, "got result %s, want OK", res)
	assert(t, bytes.Equal(out.Bytes(), []byte{4, 20, 0, 0, 0, 0}),
		"got host bytes %v", out.Bytes())
}

// A user node whose updater always returns the constant 42.
func TestNodeUpdateConstant(t *testing.T) {
	m, _ := newTestMachine()
	idx, err := m.nodes.grow(1)
	assert(t, err == nil, "growing node list: %v", err)

	m.nodes.actions[idx] = nodeAction{
		Body: []byte{byte(OpIntI8), 42, byte(OpEndUpdU8), byte(idx)},
	}
	updateBody := []byte{byte(OpUpdNodeU8), byte(idx), byte(OpHalt)}

	assert(t, m.exec(updateBody) == nil, "exec failed")
	assert(t, m.nodes.values[idx].AsInt32() == 42, "got node value %d, want 42", m.nodes.values[idx].AsInt32())
	assert(t, m.sp == 0, "stack did not balance, sp=%d", m.sp)
}

// Allocate a 2-field tagged object, store it into data[0] by reference
// move, read field 1 through the refcounted path, and check the
// container's refcount lands back at 1.
func TestRefCountedObjectFieldRead(t *testing.T) {
	m, out := newTestMachine()
	_, err := m.data.grow(1)
	assert(t, err == nil, "growing data list: %v", err)

	header := uint32(5)<<objTagShift | uint32(2)<<objEntryNumShift

	prog := []byte{
		byte(OpIntI8), 7,
		byte(OpIntI8), 9,
		byte(OpAllocObj2), 0, 0, 0, 0, // header operand filled below
		byte(OpSetDataRefU8), 0,
		byte(OpGetDataRefU8), 0,
		byte(OpObjFieldRef1),
		byte(OpPrint),
		byte(OpHalt),
	}
	putU32(prog[5:9], header)

	assert(t, m.exec(prog) == nil, "exec failed")
	assert(t, bytes.Equal(out.Bytes(), []byte{4, 9, 0, 0, 0}), "got host bytes %v", out.Bytes())
	assert(t, m.data.values[0].Obj.RefCount() == 1, "got refcount %d, want 1", m.data.values[0].Obj.RefCount())
	assert(t, m.data.values[0].Obj.Fields[0].AsInt32() == 7, "field 0 corrupted")
}

// Call/return of a function computing a + b.
func TestCallReturn(t *testing.T) {
	m, _ := newTestMachine()
	addFn := []byte{
		byte(OpGetLocal0), byte(OpGetLocal1), byte(OpAdd), byte(OpReturn),
	}
	idx, err := m.funcs.grow(1)
	assert(t, err == nil, "growing func list: %v", err)
	m.funcs.set(idx, addFn)

	prog := []byte{
		byte(OpIntI8), 3,
		byte(OpIntI8), 4,
		byte(OpCallU8), 2, byte(idx),
		byte(OpPrint), byte(OpHalt),
	}

	var out bytes.Buffer
	m.stdout = bufio.NewWriter(&out)
	assert(t, m.exec(prog) == nil, "exec failed")
	m.stdout.Flush()
	assert(t, bytes.Equal(out.Bytes(), []byte{4, 7, 0, 0, 0}), "got host bytes %v", out.Bytes())
	assert(t, m.sp == 0, "stack did not balance, sp=%d", m.sp)
}

// Growing a registry past MaxRegistryCapacity fails with OUTOF_MEMORY and
// leaves the registry's prior length untouched.
func TestOutOfMemoryDuringExtend(t *testing.T) {
	old := MaxRegistryCapacity
	MaxRegistryCapacity = 3
	defer func() { MaxRegistryCapacity = old }()

	m, _ := newTestMachine()
	_, err := m.nodes.grow(3)
	assert(t, err == nil, "first growth should fit exactly at the cap: %v", err)
	assert(t, m.nodes.len() == 3, "got length %d, want 3", m.nodes.len())

	_, err = m.nodes.grow(5)
	assert(t, err == errOutOfMemory, "got err %v, want errOutOfMemory", err)
	assert(t, m.nodes.len() == 3, "registry length changed after failed growth: %d", m.nodes.len())
}

// Tagged-union dispatch via OBJ_TAG and a conditional jump.
func TestObjTagDispatch(t *testing.T) {
	m, out := newTestMachine()
	header := uint32(5) << objTagShift

	prog := []byte{
		byte(OpAllocObj0), 0, 0, 0, 0,
		byte(OpObjTag),
		byte(OpIntI8), 5,
		byte(OpEq),
		byte(OpJe8), 4, // if top-of-stack is false, jump past the end of the body
		byte(OpPushtrue),
		byte(OpPrint),
		byte(OpHalt),
	}
	putU32(prog[1:5], header)

	assert(t, m.exec(prog) == nil, "exec failed")
	assert(t, bytes.Equal(out.Bytes(), []byte{4, 1, 0, 0, 0}), "got host bytes %v", out.Bytes())
}

// inc(v); drop(v) must be a no-op on refcount.
func TestIncDropIsNoop(t *testing.T) {
	obj := NewObject(uint32(1)<<objEntryNumShift, []Value{Int(1)})
	before := obj.RefCount()
	v := Value{Obj: obj}
	incRef(v)
	drop(v)
	assert(t, obj.RefCount() == before, "got refcount %d, want %d", obj.RefCount(), before)
}

// Allocation must leave the new object's refcount at exactly 1.
func TestAllocationRefcountIsOne(t *testing.T) {
	m, _ := newTestMachine()
	prog := []byte{
		byte(OpIntI8), 1,
		byte(OpAllocObj1), 0, 0, 0, 0,
		byte(OpHalt),
	}
	assert(t, m.exec(prog) == nil, "exec failed")
	assert(t, m.peek().Obj.RefCount() == 1, "got refcount %d, want 1", m.peek().Obj.RefCount())
}

// Header bit-layout round trip: tag, entry count, and bitmap survive
// encode/decode.
func TestObjectHeaderRoundTrip(t *testing.T) {
	header := uint32(0x3f)<<objTagShift | uint32(6)<<objEntryNumShift | uint32(0x2a)<<objBitmapShift | 1
	obj := NewObject(header, make([]Value, 6))

	assert(t, obj.Tag() == 0x3f, "got tag %d", obj.Tag())
	assert(t, obj.EntryNum() == 6, "got entry num %d", obj.EntryNum())
	for i := 0; i < 7; i++ {
		want := (0x2a>>uint(i))&1 == 1
		assert(t, obj.FieldIsObject(i) == want, "field %d bitmap mismatch", i)
	}
}

// Debug mode must catch a program that halts without returning the stack
// to its starting depth.
func TestDebugModeCatchesStackImbalance(t *testing.T) {
	m, _ := newTestMachine()
	m.Debug = true
	prog := []byte{byte(OpIntI8), 1, byte(OpHalt)}
	assert(t, m.exec(prog) == errStackImbalance, "expected stack imbalance to be caught in debug mode")
}

func TestUnknownOpcodeReportsTODO(t *testing.T) {
	m, _ := newTestMachine()
	res := m.NewBytecode([]byte{1, 0xff})
	assert(t, res == ResultTODO, "got result %s, want TODO", res)
}

func TestProgramImageLoadAndUpdate(t *testing.T) {
	m, _ := newTestMachine()

	nodeBody := []byte{byte(OpIntI8), 42, byte(OpEndUpdU8), 0}
	updateBody := []byte{byte(OpUpdNodeU8), 0, byte(OpHalt)}

	header := make([]byte, 16)
	putU16 := func(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
	putU16(header[0:2], 0)                     // exp_len
	putU16(header[2:4], uint16(len(updateBody))) // upd_len
	putU16(header[4:6], 0)                      // num_last
	putU16(header[6:8], 1)                      // n_node
	putU16(header[8:10], 0)                     // n_func
	putU16(header[10:12], 1)                    // node_growth
	putU16(header[12:14], 0)                    // func_growth
	putU16(header[14:16], 0)                    // data_growth

	var nodeBlock []byte
	nodeBlock = append(nodeBlock, 0, 0) // offset = 0
	nodeBlock = append(nodeBlock, byte(len(nodeBody)), byte(len(nodeBody)>>8))
	nodeBlock = append(nodeBlock, nodeBody...)

	frame := []byte{0} // kind: program image
	frame = append(frame, header...)
	frame = append(frame, nodeBlock...)
	frame = append(frame, updateBody...)

	res := m.NewBytecode(frame)
	assert(t, res == ResultOK, "load failed: %s", res)
	assert(t, m.nodes.len() == 1, "got node count %d, want 1", m.nodes.len())

	assert(t, m.Update() == ResultOK, "update failed")
	assert(t, m.nodes.values[0].AsInt32() == 42, "got node value %d, want 42", m.nodes.values[0].AsInt32())
}

// buildImageFrame assembles a minimal program-image frame declaring
// numLast last-value slots and nothing else (no nodes, funcs, update
// program, or init expression).
func buildImageFrame(numLast int) []byte {
	putU16 := func(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
	header := make([]byte, 16)
	putU16(header[0:2], 0)              // exp_len
	putU16(header[2:4], 0)              // upd_len
	putU16(header[4:6], uint16(numLast)) // num_last
	putU16(header[6:8], 0)              // n_node
	putU16(header[8:10], 0)             // n_func
	putU16(header[10:12], 0)            // node_growth
	putU16(header[12:14], 0)            // func_growth
	putU16(header[14:16], 0)            // data_growth

	frame := []byte{0} // kind: program image
	return append(frame, header...)
}

// Loading a second program image must replace node_last outright, not
// append to it: a later frame declaring a different num_last should end
// up with exactly that many slots, freshly zeroed, not the first frame's
// leftover length or contents.
func TestProgramImageLoadReplacesLastValues(t *testing.T) {
	m, _ := newTestMachine()

	res := m.NewBytecode(buildImageFrame(3))
	assert(t, res == ResultOK, "first load failed: %s", res)
	assert(t, m.last.len() == 3, "got last.len() %d, want 3", m.last.len())

	m.last.values[0] = EmfrpInt(77)

	res = m.NewBytecode(buildImageFrame(1))
	assert(t, res == ResultOK, "second load failed: %s", res)
	assert(t, m.last.len() == 1, "got last.len() %d, want 1 after second load", m.last.len())
	assert(t, m.last.values[0].AsInt32() == 0, "got stale last-value %d, want fresh 0", m.last.values[0].AsInt32())
}
