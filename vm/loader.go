package vm

// NewBytecode processes one uploaded program frame: either an immediate
// bytecode expression (kind 1) executed right away, or a program image
// (kind 0) that extends the registries and installs node/function bodies,
// an update program, and an optional one-shot init expression. It
// corresponds to emfrp_new_bytecode, and writes its one-byte result code
// to the host transport before returning, matching the loader's ack
// contract in §6.
func (m *Machine) NewBytecode(buf []byte) Result {
	err := m.loadFrame(buf)
	res := resultFor(err)
	if m.stdout != nil {
		m.stdout.WriteByte(byte(res))
		m.stdout.Flush()
	}
	return res
}

func (m *Machine) loadFrame(buf []byte) error {
	if len(buf) < 1 {
		return errMalformedFrame
	}
	kind, rest := buf[0], buf[1:]

	switch kind {
	case 1:
		return m.exec(rest)
	case 0:
		return m.loadProgramImage(rest)
	default:
		return errMalformedFrame
	}
}

const programHeaderLen = 8 * 2

func (m *Machine) loadProgramImage(rest []byte) error {
	if len(rest) < programHeaderLen {
		return errMalformedFrame
	}

	off := 0
	next := func() int {
		n, adv := readU16(rest, off)
		off += adv
		return int(n)
	}

	expLen := next()
	updLen := next()
	numLast := next()
	nNode := next()
	nFunc := next()
	nodeGrowth := next()
	funcGrowth := next()
	dataGrowth := next()

	if _, err := m.nodes.grow(nodeGrowth); err != nil {
		return err
	}
	if _, err := m.funcs.grow(funcGrowth); err != nil {
		return err
	}
	if _, err := m.data.grow(dataGrowth); err != nil {
		return err
	}
	if err := m.last.reset(numLast); err != nil {
		return err
	}

	for i := 0; i < nNode; i++ {
		offset, bodyLen, body, err := readBodyBlock(rest, &off)
		if err != nil {
			return err
		}
		if err := installNodeBody(&m.nodes, offset, bodyLen, body); err != nil {
			return err
		}
	}

	for i := 0; i < nFunc; i++ {
		offset, bodyLen, body, err := readBodyBlock(rest, &off)
		if err != nil {
			return err
		}
		if err := installFuncBody(&m.funcs, offset, bodyLen, body); err != nil {
			return err
		}
	}

	if off+updLen > len(rest) {
		return errMalformedFrame
	}
	m.updateBody = append([]byte(nil), rest[off:off+updLen]...)
	off += updLen

	if off+expLen > len(rest) {
		return errMalformedFrame
	}
	initExpr := rest[off : off+expLen]
	off += expLen

	if expLen > 0 {
		return m.exec(initExpr)
	}
	return nil
}

// readBodyBlock decodes one {offset: u16, body_len: u16, bytes...} block
// and advances *off past it.
func readBodyBlock(rest []byte, off *int) (offset, bodyLen int, body []byte, err error) {
	if *off+4 > len(rest) {
		return 0, 0, nil, errMalformedFrame
	}
	o, adv := readU16(rest, *off)
	*off += adv
	l, adv := readU16(rest, *off)
	*off += adv
	offset, bodyLen = int(o), int(l)
	if *off+bodyLen > len(rest) {
		return 0, 0, nil, errMalformedFrame
	}
	body = append([]byte(nil), rest[*off:*off+bodyLen]...)
	*off += bodyLen
	return offset, bodyLen, body, nil
}

// installNodeBody replaces the body at offset if it already names a live
// node, or appends a new zero-valued node with that body as its updater
// if offset falls at or past the registry's current length -- the same
// "edit a live program in place" rule installFuncBody applies to the
// function registry.
func installNodeBody(n *nodeList, offset, _ int, body []byte) error {
	if offset < n.len() {
		n.set(offset, body)
		return nil
	}
	if _, err := n.grow(offset - n.len() + 1); err != nil {
		return err
	}
	n.set(offset, body)
	return nil
}

func installFuncBody(f *funcList, offset, _ int, body []byte) error {
	if offset < f.len() {
		f.set(offset, body)
		return nil
	}
	if _, err := f.grow(offset - f.len() + 1); err != nil {
		return err
	}
	f.set(offset, body)
	return nil
}
