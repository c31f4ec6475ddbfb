package vm

// exec runs body starting at ip 0 until it returns control to its caller:
// a top-level Halt, an Abort, a dispatch error, or (when body belongs to
// a called function) a Return that unwinds past the last active frame
// pushed during this call. It mirrors emfrp_exec's single big dispatch
// loop case for case, including the two documented quirks (OBJ_FIELD_*
// never drops its container; SET_NODE_U16 reads a genuine 16-bit operand)
// and the two opcodes the source declares but never handles (BC_None is
// a no-op; GET_NODE_U16 is implemented like its U8/U32 siblings).
func (m *Machine) exec(body []byte) error {
	ip := 0
	baseFrames := m.frames.depth

	for {
		op := Opcode(body[ip])
		if m.Debug {
			m.trace(op, ip)
		}
		ip++

		switch op {

		// -- stack literals, arithmetic/logic, comparisons, control --
		case OpNone:
			// reserved no-op; declared in the opcode set, no stack effect
		case OpNil:
			if err := m.push(Zero); err != nil {
				return err
			}
		case OpNot:
			v := m.pop()
			if err := m.push(Bool(!v.AsBool())); err != nil {
				return err
			}
		case OpMinus:
			v := m.pop()
			if err := m.push(Int(-v.AsInt32())); err != nil {
				return err
			}
		case OpAdd:
			b, a := m.pop(), m.pop()
			if err := m.push(Int(a.AsInt32() + b.AsInt32())); err != nil {
				return err
			}
		case OpSub:
			b, a := m.pop(), m.pop()
			if err := m.push(Int(a.AsInt32() - b.AsInt32())); err != nil {
				return err
			}
		case OpMul:
			b, a := m.pop(), m.pop()
			if err := m.push(Int(a.AsInt32() * b.AsInt32())); err != nil {
				return err
			}
		case OpDiv:
			b, a := m.pop(), m.pop()
			if err := m.push(Int(a.AsInt32() / b.AsInt32())); err != nil {
				return err
			}
		case OpMod:
			b, a := m.pop(), m.pop()
			if err := m.push(Int(a.AsInt32() % b.AsInt32())); err != nil {
				return err
			}
		case OpShiftl:
			b, a := m.pop(), m.pop()
			if err := m.push(Int(a.AsInt32() << uint32(b.AsInt32()))); err != nil {
				return err
			}
		case OpShiftr:
			b, a := m.pop(), m.pop()
			if err := m.push(Int(a.AsInt32() >> uint32(b.AsInt32()))); err != nil {
				return err
			}
		case OpLs:
			b, a := m.pop(), m.pop()
			if err := m.push(Bool(a.AsInt32() < b.AsInt32())); err != nil {
				return err
			}
		case OpLeq:
			b, a := m.pop(), m.pop()
			if err := m.push(Bool(a.AsInt32() <= b.AsInt32())); err != nil {
				return err
			}
		case OpGt:
			b, a := m.pop(), m.pop()
			if err := m.push(Bool(a.AsInt32() > b.AsInt32())); err != nil {
				return err
			}
		case OpGeq:
			b, a := m.pop(), m.pop()
			if err := m.push(Bool(a.AsInt32() >= b.AsInt32())); err != nil {
				return err
			}
		case OpEq:
			b, a := m.pop(), m.pop()
			if err := m.push(Bool(a.Num == b.Num)); err != nil {
				return err
			}
		case OpNeq:
			b, a := m.pop(), m.pop()
			if err := m.push(Bool(a.Num != b.Num)); err != nil {
				return err
			}
		case OpBitand:
			b, a := m.pop(), m.pop()
			if err := m.push(Int(a.AsInt32() & b.AsInt32())); err != nil {
				return err
			}
		case OpBitor:
			b, a := m.pop(), m.pop()
			if err := m.push(Int(a.AsInt32() | b.AsInt32())); err != nil {
				return err
			}
		case OpBitxor:
			b, a := m.pop(), m.pop()
			if err := m.push(Int(a.AsInt32() ^ b.AsInt32())); err != nil {
				return err
			}
		case OpReturn:
			v := m.pop()
			if m.frames.depth <= baseFrames {
				// Returning out of the top-level body this exec call owns.
				return nil
			}
			fr := m.frames.pop()
			m.sp = fr.savedSP
			m.bp = fr.savedBP
			if err := m.push(v); err != nil {
				return err
			}
			body, ip = fr.retBody, fr.retIP
		case OpPrint:
			v := m.pop()
			m.writeInt(v.AsInt32())
		case OpPrintobj:
			v := m.pop()
			m.writeObj(v.Obj)
			drop(v)
		case OpHalt:
			if m.Debug && m.sp != 0 {
				return errStackImbalance
			}
			return nil
		case OpPeek:
			if err := m.push(m.peek()); err != nil {
				return err
			}
		case OpPushtrue:
			if err := m.push(Bool(true)); err != nil {
				return err
			}
		case OpPushfalse:
			if err := m.push(Bool(false)); err != nil {
				return err
			}
		case OpAbort:
			return errProgramAborted

		// -- immediate integer push family --
		case OpInt0, OpInt1, OpInt2, OpInt3, OpInt4, OpInt5, OpInt6:
			if err := m.push(Int(int32(op - OpInt0))); err != nil {
				return err
			}
		case OpIntI8:
			n, adv := readI8(body, ip)
			ip += adv
			if err := m.push(Int(int32(n))); err != nil {
				return err
			}
		case OpIntI16:
			n, adv := readI16(body, ip)
			ip += adv
			if err := m.push(Int(int32(n))); err != nil {
				return err
			}
		case OpIntI32:
			n, adv := readI32(body, ip)
			ip += adv
			if err := m.push(Int(n)); err != nil {
				return err
			}

		// -- local frame slot access --
		case OpGetLocal0, OpGetLocal1, OpGetLocal2, OpGetLocal3, OpGetLocal4, OpGetLocal5, OpGetLocal6:
			if err := m.push(m.local(int(op - OpGetLocal0))); err != nil {
				return err
			}
		case OpGetLocalI8:
			n, adv := readI8(body, ip)
			ip += adv
			if err := m.push(m.local(int(n))); err != nil {
				return err
			}
		case OpGetLocalI16:
			n, adv := readI16(body, ip)
			ip += adv
			if err := m.push(m.local(int(n))); err != nil {
				return err
			}
		case OpGetLocalI32:
			n, adv := readI32(body, ip)
			ip += adv
			if err := m.push(m.local(int(n))); err != nil {
				return err
			}
		case OpSetLocal0, OpSetLocal1, OpSetLocal2, OpSetLocal3, OpSetLocal4, OpSetLocal5, OpSetLocal6:
			m.setLocal(int(op-OpSetLocal0), m.pop())
		case OpSetLocalI8:
			n, adv := readI8(body, ip)
			ip += adv
			m.setLocal(int(n), m.pop())
		case OpSetLocalI16:
			n, adv := readI16(body, ip)
			ip += adv
			m.setLocal(int(n), m.pop())
		case OpSetLocalI32:
			n, adv := readI32(body, ip)
			ip += adv
			m.setLocal(int(n), m.pop())

		// -- refcounted local access --
		case OpGetLocalRef0, OpGetLocalRef1, OpGetLocalRef2, OpGetLocalRef3, OpGetLocalRef4, OpGetLocalRef5, OpGetLocalRef6:
			v := m.local(int(op - OpGetLocalRef0))
			incRef(v)
			if err := m.push(v); err != nil {
				return err
			}
		case OpGetLocalRefI8:
			n, adv := readI8(body, ip)
			ip += adv
			v := m.local(int(n))
			incRef(v)
			if err := m.push(v); err != nil {
				return err
			}
		case OpGetLocalRefI16:
			n, adv := readI16(body, ip)
			ip += adv
			v := m.local(int(n))
			incRef(v)
			if err := m.push(v); err != nil {
				return err
			}
		case OpGetLocalRefI32:
			n, adv := readI32(body, ip)
			ip += adv
			v := m.local(int(n))
			incRef(v)
			if err := m.push(v); err != nil {
				return err
			}
		case OpSetLocalRef0, OpSetLocalRef1, OpSetLocalRef2, OpSetLocalRef3, OpSetLocalRef4, OpSetLocalRef5, OpSetLocalRef6:
			i := int(op - OpSetLocalRef0)
			drop(m.local(i))
			m.setLocal(i, m.pop())
		case OpSetLocalRefI8:
			n, adv := readI8(body, ip)
			ip += adv
			drop(m.local(int(n)))
			m.setLocal(int(n), m.pop())
		case OpSetLocalRefI16:
			n, adv := readI16(body, ip)
			ip += adv
			drop(m.local(int(n)))
			m.setLocal(int(n), m.pop())
		case OpSetLocalRefI32:
			n, adv := readI32(body, ip)
			ip += adv
			drop(m.local(int(n)))
			m.setLocal(int(n), m.pop())

		// -- local frame growth --
		case OpAllocLocal1, OpAllocLocal2, OpAllocLocal3, OpAllocLocal4, OpAllocLocal5, OpAllocLocal6:
			if err := m.reserveLocals(int(op - OpAllocLocal1 + 1)); err != nil {
				return err
			}
		case OpAllocLocalU8:
			n, adv := readU8(body, ip)
			ip += adv
			if err := m.reserveLocals(int(n)); err != nil {
				return err
			}
		case OpAllocLocalU16:
			n, adv := readU16(body, ip)
			ip += adv
			if err := m.reserveLocals(int(n)); err != nil {
				return err
			}
		case OpAllocLocalU32:
			n, adv := readU32(body, ip)
			ip += adv
			if err := m.reserveLocals(int(n)); err != nil {
				return err
			}

		// -- stack pop / frame shrink --
		case OpPop1, OpPop2, OpPop3, OpPop4, OpPop5, OpPop6:
			m.sp -= int(op - OpPop1 + 1)
		case OpPopU8:
			n, adv := readU8(body, ip)
			ip += adv
			m.sp -= int(n)
		case OpPopU16:
			n, adv := readU16(body, ip)
			ip += adv
			m.sp -= int(n)
		case OpPopU32:
			n, adv := readU32(body, ip)
			ip += adv
			m.sp -= int(n)

		// -- jump family --
		case OpJne8, OpJne16, OpJne32:
			disp, adv := readDisp(op, OpJne8, body, ip)
			ip += adv
			if m.pop().AsBool() {
				ip += disp
			}
		case OpJe8, OpJe16, OpJe32:
			disp, adv := readDisp(op, OpJe8, body, ip)
			ip += adv
			if !m.pop().AsBool() {
				ip += disp
			}
		case OpJ8, OpJ16, OpJ32:
			disp, adv := readDisp(op, OpJ8, body, ip)
			ip += adv
			ip += disp
		case OpJ0:
			ip += 0
		case OpJ1:
			ip += 1
		case OpJe0:
			if !m.pop().AsBool() {
				ip += 0
			}
		case OpJe1:
			if !m.pop().AsBool() {
				ip += 1
			}
		case OpJne0:
			if m.pop().AsBool() {
				ip += 0
			}
		case OpJne1:
			if m.pop().AsBool() {
				ip += 1
			}

		// -- last-value vector access, node value write --
		case OpGetLast0, OpGetLast1, OpGetLast2, OpGetLast3:
			if err := m.push(m.last.values[op-OpGetLast0]); err != nil {
				return err
			}
		case OpGetLastU8:
			n, adv := readU8(body, ip)
			ip += adv
			if err := m.push(m.last.values[n]); err != nil {
				return err
			}
		case OpGetLastU16:
			n, adv := readU16(body, ip)
			ip += adv
			if err := m.push(m.last.values[n]); err != nil {
				return err
			}
		case OpGetLastU32:
			n, adv := readU32(body, ip)
			ip += adv
			if err := m.push(m.last.values[n]); err != nil {
				return err
			}
		case OpSetNodeU8:
			n, adv := readU8(body, ip)
			ip += adv
			m.nodes.values[n] = m.pop()
		case OpSetNodeU16:
			n, adv := readU16(body, ip)
			ip += adv
			m.nodes.values[n] = m.pop()
		case OpSetNodeU32:
			n, adv := readU32(body, ip)
			ip += adv
			m.nodes.values[n] = m.pop()

		// -- object field read (non-refcounted; never drops the container) --
		case OpObjField0, OpObjField1, OpObjField2, OpObjField3, OpObjField4, OpObjField5, OpObjField6:
			obj := m.pop()
			if err := m.push(obj.Obj.Fields[op-OpObjField0]); err != nil {
				return err
			}
		case OpObjFieldRef0, OpObjFieldRef1, OpObjFieldRef2, OpObjFieldRef3, OpObjFieldRef4, OpObjFieldRef5, OpObjFieldRef6:
			obj := m.pop()
			f := obj.Obj.Fields[op-OpObjFieldRef0]
			// Unlike the non-REF form (which borrows and deliberately
			// leaks the popped container, see OBJ_FIELD_* above), the REF
			// form takes proper ownership of the field it returns: inc the
			// field first so a recursive drop of the container can't free
			// it out from under us, then drop the container reference this
			// opcode just consumed.
			incRef(f)
			drop(obj)
			if err := m.push(f); err != nil {
				return err
			}

		// -- device-driven node update dispatch --
		case OpUpdDev0, OpUpdDev1, OpUpdDev2, OpUpdDev3:
			m.runInputNode(int(op - OpUpdDev0))
		case OpUpdDevU8:
			n, adv := readU8(body, ip)
			ip += adv
			m.runInputNode(int(n))

		// -- user node update dispatch --
		case OpUpdNodeU8, OpUpdNodeU16, OpUpdNodeU32:
			idx, adv := readRegIdx(op, OpUpdNodeU8, body, ip)
			ip += adv
			m.conts.push(updContinuation{body: body, ip: ip, bp: m.bp})
			if err := m.push(Value{}); err != nil {
				return err
			}
			body, ip = m.nodes.actions[idx].Body, 0

		// -- output action dispatch --
		case OpOAction0, OpOAction1, OpOAction2, OpOAction3:
			m.outputs.fns[op-OpOAction0](m.pop())
		case OpOActionU8:
			n, adv := readU8(body, ip)
			ip += adv
			m.outputs.fns[n](m.pop())

		// -- call, registry reads --
		case OpCallU8, OpCallU16, OpCallU32:
			nargs, adv1 := readU8(body, ip)
			ip += adv1
			idx, adv2 := readRegIdx(op, OpCallU8, body, ip)
			ip += adv2
			if err := m.frames.push(callFrame{savedBP: m.bp, savedSP: m.sp - int(nargs), retBody: body, retIP: ip}); err != nil {
				return err
			}
			m.bp = m.sp - int(nargs)
			body, ip = m.funcs.bodies[idx], 0
		case OpGetDataU8, OpGetDataU16, OpGetDataU32:
			idx, adv := readRegIdx(op, OpGetDataU8, body, ip)
			ip += adv
			if err := m.push(m.data.values[idx]); err != nil {
				return err
			}
		case OpGetNodeU8, OpGetNodeU16, OpGetNodeU32:
			idx, adv := readRegIdx(op, OpGetNodeU8, body, ip)
			ip += adv
			if err := m.push(m.nodes.values[idx]); err != nil {
				return err
			}

		// -- registry writes, tag extraction --
		case OpSetDataU8, OpSetDataU16, OpSetDataU32:
			idx, adv := readRegIdx(op, OpSetDataU8, body, ip)
			ip += adv
			m.data.values[idx] = m.pop()
		case OpObjTag:
			v := m.pop()
			if err := m.push(Int(int32(v.Obj.Tag()))); err != nil {
				return err
			}

		// -- last-value writes, update epilogue --
		case OpSetLast0, OpSetLast1, OpSetLast2, OpSetLast3:
			m.last.values[op-OpSetLast0] = m.pop()
		case OpSetLastU8:
			n, adv := readU8(body, ip)
			ip += adv
			m.last.values[n] = m.pop()
		case OpSetLastU16:
			n, adv := readU16(body, ip)
			ip += adv
			m.last.values[n] = m.pop()
		case OpSetLastU32:
			n, adv := readU32(body, ip)
			ip += adv
			m.last.values[n] = m.pop()
		case OpEndUpdU8, OpEndUpdU16, OpEndUpdU32:
			idx, adv := readRegIdx(op, OpEndUpdU8, body, ip)
			ip += adv
			m.nodes.values[idx] = m.pop()
			cont := m.conts.pop()
			m.pop() // discard the placeholder UPD_NODE_w pushed
			body, ip, m.bp = cont.body, cont.ip, cont.bp

		// -- object allocation --
		case OpAllocObj0, OpAllocObj1, OpAllocObj2, OpAllocObj3, OpAllocObj4, OpAllocObj5, OpAllocObj6, OpAllocObjU8:
			if op == OpAllocObjU8 {
				_, adv := readU8(body, ip)
				ip += adv
			}
			header, adv := readU32(body, ip)
			ip += adv
			n := int((header >> objEntryNumShift) & objEntryNumMask)
			obj := allocObject(header, n, m.pop)
			if err := m.push(Value{Obj: obj}); err != nil {
				return err
			}

		// -- local object drop --
		case OpDropLocalObj0, OpDropLocalObj1, OpDropLocalObj2, OpDropLocalObj3, OpDropLocalObj4, OpDropLocalObj5, OpDropLocalObj6:
			drop(m.local(int(op - OpDropLocalObj0)))
		case OpDropLocalObjI8:
			n, adv := readI8(body, ip)
			ip += adv
			drop(m.local(int(n)))
		case OpDropLocalObjI16:
			n, adv := readI16(body, ip)
			ip += adv
			drop(m.local(int(n)))
		case OpDropLocalObjI32:
			n, adv := readI32(body, ip)
			ip += adv
			drop(m.local(int(n)))

		// -- refcounted update epilogue, refcounted registry reads --
		case OpEndUpdObjU8, OpEndUpdObjU16, OpEndUpdObjU32:
			idx, adv := readRegIdx(op, OpEndUpdObjU8, body, ip)
			ip += adv
			v := m.pop()
			drop(m.nodes.values[idx])
			m.nodes.values[idx] = v
			cont := m.conts.pop()
			m.pop()
			body, ip, m.bp = cont.body, cont.ip, cont.bp
		case OpGetNodeRefU8, OpGetNodeRefU16, OpGetNodeRefU32:
			idx, adv := readRegIdx(op, OpGetNodeRefU8, body, ip)
			ip += adv
			v := m.nodes.values[idx]
			incRef(v)
			if err := m.push(v); err != nil {
				return err
			}
		case OpGetDataRefU8, OpGetDataRefU16, OpGetDataRefU32:
			idx, adv := readRegIdx(op, OpGetDataRefU8, body, ip)
			ip += adv
			v := m.data.values[idx]
			incRef(v)
			if err := m.push(v); err != nil {
				return err
			}

		// -- refcounted last-value access, refcounted data write --
		case OpGetLastRef0, OpGetLastRef1, OpGetLastRef2, OpGetLastRef3:
			v := m.last.values[op-OpGetLastRef0]
			incRef(v)
			if err := m.push(v); err != nil {
				return err
			}
		case OpGetLastRefU8:
			n, adv := readU8(body, ip)
			ip += adv
			v := m.last.values[n]
			incRef(v)
			if err := m.push(v); err != nil {
				return err
			}
		case OpGetLastRefU16:
			n, adv := readU16(body, ip)
			ip += adv
			v := m.last.values[n]
			incRef(v)
			if err := m.push(v); err != nil {
				return err
			}
		case OpGetLastRefU32:
			n, adv := readU32(body, ip)
			ip += adv
			v := m.last.values[n]
			incRef(v)
			if err := m.push(v); err != nil {
				return err
			}
		case OpSetDataRefU8, OpSetDataRefU16, OpSetDataRefU32:
			idx, adv := readRegIdx(op, OpSetDataRefU8, body, ip)
			ip += adv
			drop(m.data.values[idx])
			m.data.values[idx] = m.pop()

		// -- refcounted last-value / node writes --
		case OpSetLastRef0, OpSetLastRef1, OpSetLastRef2, OpSetLastRef3:
			i := op - OpSetLastRef0
			drop(m.last.values[i])
			m.last.values[i] = m.pop()
		case OpSetLastRefU8:
			n, adv := readU8(body, ip)
			ip += adv
			drop(m.last.values[n])
			m.last.values[n] = m.pop()
		case OpSetLastRefU16:
			n, adv := readU16(body, ip)
			ip += adv
			drop(m.last.values[n])
			m.last.values[n] = m.pop()
		case OpSetLastRefU32:
			n, adv := readU32(body, ip)
			ip += adv
			drop(m.last.values[n])
			m.last.values[n] = m.pop()
		case OpSetNodeRefU8, OpSetNodeRefU16, OpSetNodeRefU32:
			idx, adv := readRegIdx(op, OpSetNodeRefU8, body, ip)
			ip += adv
			drop(m.nodes.values[idx])
			m.nodes.values[idx] = m.pop()

		// -- last-value drop --
		case OpDropLastU8:
			n, adv := readU8(body, ip)
			ip += adv
			drop(m.last.values[n])
		case OpDropLastU16:
			n, adv := readU16(body, ip)
			ip += adv
			drop(m.last.values[n])
		case OpDropLastU32:
			n, adv := readU32(body, ip)
			ip += adv
			drop(m.last.values[n])

		default:
			return errUnknownOpcode
		}

		if ip >= len(body) && m.frames.depth <= baseFrames && m.conts.empty() {
			return nil
		}
	}
}

// readDisp decodes a jump displacement whose width is implied by op's
// position relative to base (base, base+1, base+2 are the 8/16/32-bit
// variants of the same family), and returns (signed displacement, bytes
// consumed).
func readDisp(op, base Opcode, body []byte, ip int) (int, int) {
	switch op - base {
	case 0:
		n, adv := readI8(body, ip)
		return int(n), adv
	case 1:
		n, adv := readI16(body, ip)
		return int(n), adv
	default:
		n, adv := readI32(body, ip)
		return int(n), adv
	}
}

// readRegIdx decodes a u8/u16/u32 registry index, selecting width the
// same way readDisp selects displacement width.
func readRegIdx(op, base Opcode, body []byte, ip int) (uint32, int) {
	switch op - base {
	case 0:
		n, adv := readU8(body, ip)
		return uint32(n), adv
	case 1:
		n, adv := readU16(body, ip)
		return uint32(n), adv
	default:
		n, adv := readU32(body, ip)
		return uint32(n), adv
	}
}

// reserveLocals grows the active frame by n zero-valued local slots.
func (m *Machine) reserveLocals(n int) error {
	for i := 0; i < n; i++ {
		if err := m.push(Zero); err != nil {
			return err
		}
	}
	return nil
}

// runInputNode samples an input node's device callback and stores the
// result directly into its value slot, dropping whatever value was
// previously there.
func (m *Machine) runInputNode(idx int) {
	action := m.nodes.actions[idx]
	if action.Input == nil {
		return
	}
	v := action.Input()
	drop(m.nodes.values[idx])
	m.nodes.values[idx] = v
}
