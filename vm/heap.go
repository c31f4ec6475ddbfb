package vm

import "encoding/binary"

// drop releases one reference to v. If v does not hold an object (Obj ==
// nil), it is a no-op -- plain numbers and booleans are never refcounted.
// When the count reaches zero, drop recursively releases every field the
// header's bitmap marks as an object reference.
//
// There is deliberately no cycle detection here, matching the source: the
// compiler is trusted to emit only DAGs, never cyclic object graphs.
func drop(v Value) {
	if v.Obj == nil {
		return
	}
	v.Obj.decRCShallow()
	if v.Obj.RefCount() == 0 {
		for i := 0; i < v.Obj.EntryNum(); i++ {
			if v.Obj.FieldIsObject(i) {
				drop(v.Obj.Fields[i])
			}
		}
		// No explicit free: once unreferenced, Go's garbage collector reclaims
		// the Object and its Fields slice. Refcounting here exists to honor
		// the object graph's drop-order semantics (and the OBJ_FIELD_* leak
		// contract in exec.go), not to manage Go-level memory.
	}
}

// incRef bumps an object's reference count by one (a flat +1, never
// recursive) -- the counterpart to drop used by every GET_*_REF opcode.
func incRef(v Value) {
	if v.Obj != nil {
		v.Obj.incRC()
	}
}

// allocObject pops n values off the stack into a freshly allocated object's
// fields, in the order ALLOC_OBJ_* expects: the first value popped (the
// top of stack) becomes the *last* field, and the last value popped
// becomes field 0. A compiler that pushes field0, field1, ..., fieldN-1 in
// that order therefore produces an object whose Fields read back in the
// same order.
func allocObject(header uint32, n int, pop func() Value) *Object {
	fields := make([]Value, n)
	for i := 0; i < n; i++ {
		fields[n-1-i] = pop()
	}
	// Refcount always starts at 1 regardless of whatever bits the compiled
	// header operand carries in that range -- allocation always produces
	// exactly one live reference, the one about to land on the stack.
	header = (header &^ objRefcountMask) | 1
	return NewObject(header, fields)
}

// serializeObject depth-first pre-order encodes obj for PrintObj: each
// object contributes its 4-byte header followed by each field, recursively
// serialized if it is itself an object or written as a little-endian int32
// otherwise. This matches uart_write_object exactly.
func serializeObject(obj *Object, out []byte) []byte {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], obj.header)
	out = append(out, hdr[:]...)
	for i := 0; i < obj.EntryNum(); i++ {
		if obj.FieldIsObject(i) {
			out = serializeObject(obj.Fields[i].Obj, out)
		} else {
			var num [4]byte
			binary.LittleEndian.PutUint32(num[:], obj.Fields[i].Num)
			out = append(out, num[:]...)
		}
	}
	return out
}
