package vm

import "fmt"

// writeInt implements Print's wire contract: a length byte (always 4)
// followed by the value as a little-endian int32.
func (m *Machine) writeInt(v int32) {
	if m.stdout == nil {
		return
	}
	var buf [5]byte
	buf[0] = 4
	putU32(buf[1:], uint32(v))
	m.stdout.Write(buf[:])
	m.stdout.Flush()
}

// writeObj implements PrintObj's wire contract: a size byte (the total
// serialised length of the object walk) followed by the depth-first
// pre-order encoding from serializeObject.
func (m *Machine) writeObj(obj *Object) {
	if m.stdout == nil {
		return
	}
	if obj == nil {
		m.stdout.WriteByte(0)
		m.stdout.Flush()
		return
	}
	payload := serializeObject(obj, nil)
	m.stdout.WriteByte(obj.Size())
	m.stdout.Write(payload)
	m.stdout.Flush()
}

// trace prints a one-line annotation of the instruction about to execute
// when Debug is on -- a minimal stand-in for the source tooling's
// interactive stepper, sized to what this engine actually needs: a kind
// tag (refcounted heap op / jump / object alloc / plain) next to the
// opcode name and stack depth, not a full breakpoint REPL.
func (m *Machine) trace(op Opcode, ip int) {
	kind := "op"
	switch {
	case op.IsAllocObj():
		kind = "alloc"
	case op.IsJump():
		kind = "jump"
	case op.IsRefCounted():
		kind = "refc"
	}
	fmt.Printf("[%04d] %-5s %-20s sp=%d\n", ip, kind, op, m.sp)
}
