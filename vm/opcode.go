// Package vm implements the bytecode interpreter for a compiled FRP
// (functional reactive programming) program: value representation, the
// reference-counted heap, the four grow-only registries (nodes, funcs,
// data, last-values), the stack-machine interpreter, the wire-format
// program loader, and the update driver.
package vm

// Opcode identifies one bytecode instruction. Values and names mirror the
// original instruction set bit for bit -- this is a wire-format ABI, not
// an internal convention, so the numeric values below must never be
// renumbered.
type Opcode uint8

const (

	// stack literals, arithmetic/logic, comparisons, and control opcodes
	OpNone                     Opcode = 1
	OpNil                      Opcode = 2
	OpNot                      Opcode = 3
	OpMinus                    Opcode = 4
	OpAdd                      Opcode = 5
	OpSub                      Opcode = 6
	OpMul                      Opcode = 7
	OpDiv                      Opcode = 8
	OpMod                      Opcode = 9
	OpShiftl                   Opcode = 10
	OpShiftr                   Opcode = 11
	OpLs                       Opcode = 12
	OpLeq                      Opcode = 13
	OpGt                       Opcode = 14
	OpGeq                      Opcode = 15
	OpEq                       Opcode = 16
	OpNeq                      Opcode = 17
	OpBitand                   Opcode = 18
	OpBitor                    Opcode = 19
	OpBitxor                   Opcode = 20
	OpReturn                   Opcode = 21
	OpPrint                    Opcode = 22
	OpPrintobj                 Opcode = 23
	OpHalt                     Opcode = 24
	OpPeek                     Opcode = 25
	OpPushtrue                 Opcode = 26
	OpPushfalse                Opcode = 27
	OpAbort                    Opcode = 28

	// immediate integer/boolean push family
	OpInt0                     Opcode = 30
	OpInt1                     Opcode = 31
	OpInt2                     Opcode = 32
	OpInt3                     Opcode = 33
	OpInt4                     Opcode = 34
	OpInt5                     Opcode = 35
	OpInt6                     Opcode = 36
	OpIntI8                    Opcode = 37
	OpIntI16                   Opcode = 38
	OpIntI32                   Opcode = 39

	// local frame slot access (fixed index 0-6, signed 8/16/32-bit offset)
	OpGetLocal0                Opcode = 40
	OpGetLocal1                Opcode = 41
	OpGetLocal2                Opcode = 42
	OpGetLocal3                Opcode = 43
	OpGetLocal4                Opcode = 44
	OpGetLocal5                Opcode = 45
	OpGetLocal6                Opcode = 46
	OpGetLocalI8               Opcode = 47
	OpGetLocalI16              Opcode = 48
	OpGetLocalI32              Opcode = 49
	OpSetLocal0                Opcode = 50
	OpSetLocal1                Opcode = 51
	OpSetLocal2                Opcode = 52
	OpSetLocal3                Opcode = 53
	OpSetLocal4                Opcode = 54
	OpSetLocal5                Opcode = 55
	OpSetLocal6                Opcode = 56
	OpSetLocalI8               Opcode = 57
	OpSetLocalI16              Opcode = 58
	OpSetLocalI32              Opcode = 59

	// local frame growth (ALLOC_LOCAL)
	OpAllocLocal1              Opcode = 61
	OpAllocLocal2              Opcode = 62
	OpAllocLocal3              Opcode = 63
	OpAllocLocal4              Opcode = 64
	OpAllocLocal5              Opcode = 65
	OpAllocLocal6              Opcode = 66
	OpAllocLocalU8             Opcode = 67
	OpAllocLocalU16            Opcode = 68
	OpAllocLocalU32            Opcode = 69

	// stack pop / frame shrink
	OpPop1                     Opcode = 71
	OpPop2                     Opcode = 72
	OpPop3                     Opcode = 73
	OpPop4                     Opcode = 74
	OpPop5                     Opcode = 75
	OpPop6                     Opcode = 76
	OpPopU8                    Opcode = 77
	OpPopU16                   Opcode = 78
	OpPopU32                   Opcode = 79

	// conditional and unconditional jump family (8/16/32-bit displacement)
	OpJne8                     Opcode = 80
	OpJne16                    Opcode = 81
	OpJne32                    Opcode = 82
	OpJe8                      Opcode = 83
	OpJe16                     Opcode = 84
	OpJe32                     Opcode = 85
	OpJ8                       Opcode = 86
	OpJ16                      Opcode = 87
	OpJ32                      Opcode = 88

	// last-value vector access, node value write
	OpGetLast0                 Opcode = 90
	OpGetLast1                 Opcode = 91
	OpGetLast2                 Opcode = 92
	OpGetLast3                 Opcode = 93
	OpGetLastU8                Opcode = 94
	OpGetLastU16               Opcode = 95
	OpGetLastU32               Opcode = 96
	OpSetNodeU8                Opcode = 97
	OpSetNodeU16               Opcode = 98
	OpSetNodeU32               Opcode = 99

	// object field read (non-refcounted)
	OpObjField0                Opcode = 100
	OpObjField1                Opcode = 101
	OpObjField2                Opcode = 102
	OpObjField3                Opcode = 103
	OpObjField4                Opcode = 104
	OpObjField5                Opcode = 105
	OpObjField6                Opcode = 106

	// device-driven node update dispatch
	OpUpdDev0                  Opcode = 110
	OpUpdDev1                  Opcode = 111
	OpUpdDev2                  Opcode = 112
	OpUpdDev3                  Opcode = 113
	OpUpdDevU8                 Opcode = 114

	// user node update dispatch
	OpUpdNodeU8                Opcode = 117
	OpUpdNodeU16               Opcode = 118
	OpUpdNodeU32               Opcode = 119

	// output action dispatch
	OpOAction0                 Opcode = 120
	OpOAction1                 Opcode = 121
	OpOAction2                 Opcode = 122
	OpOAction3                 Opcode = 123
	OpOActionU8                Opcode = 124

	// call, registry reads (data/node, u8/u16/u32 widths)
	OpCallU8                   Opcode = 127
	OpCallU16                  Opcode = 128
	OpCallU32                  Opcode = 129
	OpGetDataU8                Opcode = 130
	OpGetDataU16               Opcode = 131
	OpGetDataU32               Opcode = 132
	OpGetNodeU8                Opcode = 133
	OpGetNodeU16               Opcode = 134
	OpGetNodeU32               Opcode = 135

	// registry writes, tag extraction
	OpSetDataU8                Opcode = 141
	OpSetDataU16               Opcode = 142
	OpSetDataU32               Opcode = 143
	OpObjTag                   Opcode = 144

	// last-value writes, update epilogue
	OpSetLast0                 Opcode = 150
	OpSetLast1                 Opcode = 151
	OpSetLast2                 Opcode = 152
	OpSetLast3                 Opcode = 153
	OpSetLastU8                Opcode = 154
	OpSetLastU16               Opcode = 155
	OpSetLastU32               Opcode = 156
	OpEndUpdU8                 Opcode = 157
	OpEndUpdU16                Opcode = 158
	OpEndUpdU32                Opcode = 159

	// object allocation
	OpAllocObj0                Opcode = 160
	OpAllocObj1                Opcode = 161
	OpAllocObj2                Opcode = 162
	OpAllocObj3                Opcode = 163
	OpAllocObj4                Opcode = 164
	OpAllocObj5                Opcode = 165
	OpAllocObj6                Opcode = 166
	OpAllocObjU8               Opcode = 167

	// local object drop
	OpDropLocalObj0            Opcode = 170
	OpDropLocalObj1            Opcode = 171
	OpDropLocalObj2            Opcode = 172
	OpDropLocalObj3            Opcode = 173
	OpDropLocalObj4            Opcode = 174
	OpDropLocalObj5            Opcode = 175
	OpDropLocalObj6            Opcode = 176
	OpDropLocalObjI8           Opcode = 177
	OpDropLocalObjI16          Opcode = 178
	OpDropLocalObjI32          Opcode = 179

	// refcounted local access
	OpGetLocalRef0             Opcode = 180
	OpGetLocalRef1             Opcode = 181
	OpGetLocalRef2             Opcode = 182
	OpGetLocalRef3             Opcode = 183
	OpGetLocalRef4             Opcode = 184
	OpGetLocalRef5             Opcode = 185
	OpGetLocalRef6             Opcode = 186
	OpGetLocalRefI8            Opcode = 187
	OpGetLocalRefI16           Opcode = 188
	OpGetLocalRefI32           Opcode = 189
	OpSetLocalRef0             Opcode = 190
	OpSetLocalRef1             Opcode = 191
	OpSetLocalRef2             Opcode = 192
	OpSetLocalRef3             Opcode = 193
	OpSetLocalRef4             Opcode = 194
	OpSetLocalRef5             Opcode = 195
	OpSetLocalRef6             Opcode = 196
	OpSetLocalRefI8            Opcode = 197
	OpSetLocalRefI16           Opcode = 198
	OpSetLocalRefI32           Opcode = 199

	// refcounted object field read
	OpObjFieldRef0             Opcode = 200
	OpObjFieldRef1             Opcode = 201
	OpObjFieldRef2             Opcode = 202
	OpObjFieldRef3             Opcode = 203
	OpObjFieldRef4             Opcode = 204
	OpObjFieldRef5             Opcode = 205
	OpObjFieldRef6             Opcode = 206

	// refcounted update epilogue, refcounted registry reads
	OpEndUpdObjU8              Opcode = 210
	OpEndUpdObjU16             Opcode = 211
	OpEndUpdObjU32             Opcode = 212
	OpGetNodeRefU8             Opcode = 213
	OpGetNodeRefU16            Opcode = 214
	OpGetNodeRefU32            Opcode = 215
	OpGetDataRefU8             Opcode = 216
	OpGetDataRefU16            Opcode = 217
	OpGetDataRefU32            Opcode = 218

	// refcounted last-value access, refcounted data write
	OpGetLastRef0              Opcode = 220
	OpGetLastRef1              Opcode = 221
	OpGetLastRef2              Opcode = 222
	OpGetLastRef3              Opcode = 223
	OpGetLastRefU8             Opcode = 224
	OpGetLastRefU16            Opcode = 225
	OpGetLastRefU32            Opcode = 226
	OpSetDataRefU8             Opcode = 227
	OpSetDataRefU16            Opcode = 228
	OpSetDataRefU32            Opcode = 229

	// refcounted last-value / node writes
	OpSetLastRef0              Opcode = 230
	OpSetLastRef1              Opcode = 231
	OpSetLastRef2              Opcode = 232
	OpSetLastRef3              Opcode = 233
	OpSetLastRefU8             Opcode = 234
	OpSetLastRefU16            Opcode = 235
	OpSetLastRefU32            Opcode = 236
	OpSetNodeRefU8             Opcode = 237
	OpSetNodeRefU16            Opcode = 238
	OpSetNodeRefU32            Opcode = 239

	// last-value drop
	OpDropLastU8               Opcode = 240
	OpDropLastU16              Opcode = 241
	OpDropLastU32              Opcode = 242

	// degenerate 0/1-byte-displacement jump variants
	OpJ0                       Opcode = 243
	OpJ1                       Opcode = 244
	OpJe0                      Opcode = 245
	OpJe1                      Opcode = 246
	OpJne0                     Opcode = 247
	OpJne1                     Opcode = 248

)

var opcodeNames = map[Opcode]string{
	OpNone: "None",
	OpNil: "Nil",
	OpNot: "Not",
	OpMinus: "Minus",
	OpAdd: "Add",
	OpSub: "Sub",
	OpMul: "Mul",
	OpDiv: "Div",
	OpMod: "Mod",
	OpShiftl: "Shiftl",
	OpShiftr: "Shiftr",
	OpLs: "Ls",
	OpLeq: "Leq",
	OpGt: "Gt",
	OpGeq: "Geq",
	OpEq: "Eq",
	OpNeq: "Neq",
	OpBitand: "Bitand",
	OpBitor: "Bitor",
	OpBitxor: "Bitxor",
	OpReturn: "Return",
	OpPrint: "Print",
	OpPrintobj: "Printobj",
	OpHalt: "Halt",
	OpPeek: "Peek",
	OpPushtrue: "Pushtrue",
	OpPushfalse: "Pushfalse",
	OpAbort: "Abort",
	OpInt0: "Int0",
	OpInt1: "Int1",
	OpInt2: "Int2",
	OpInt3: "Int3",
	OpInt4: "Int4",
	OpInt5: "Int5",
	OpInt6: "Int6",
	OpIntI8: "IntI8",
	OpIntI16: "IntI16",
	OpIntI32: "IntI32",
	OpGetLocal0: "GetLocal0",
	OpGetLocal1: "GetLocal1",
	OpGetLocal2: "GetLocal2",
	OpGetLocal3: "GetLocal3",
	OpGetLocal4: "GetLocal4",
	OpGetLocal5: "GetLocal5",
	OpGetLocal6: "GetLocal6",
	OpGetLocalI8: "GetLocalI8",
	OpGetLocalI16: "GetLocalI16",
	OpGetLocalI32: "GetLocalI32",
	OpSetLocal0: "SetLocal0",
	OpSetLocal1: "SetLocal1",
	OpSetLocal2: "SetLocal2",
	OpSetLocal3: "SetLocal3",
	OpSetLocal4: "SetLocal4",
	OpSetLocal5: "SetLocal5",
	OpSetLocal6: "SetLocal6",
	OpSetLocalI8: "SetLocalI8",
	OpSetLocalI16: "SetLocalI16",
	OpSetLocalI32: "SetLocalI32",
	OpAllocLocal1: "AllocLocal1",
	OpAllocLocal2: "AllocLocal2",
	OpAllocLocal3: "AllocLocal3",
	OpAllocLocal4: "AllocLocal4",
	OpAllocLocal5: "AllocLocal5",
	OpAllocLocal6: "AllocLocal6",
	OpAllocLocalU8: "AllocLocalU8",
	OpAllocLocalU16: "AllocLocalU16",
	OpAllocLocalU32: "AllocLocalU32",
	OpPop1: "Pop1",
	OpPop2: "Pop2",
	OpPop3: "Pop3",
	OpPop4: "Pop4",
	OpPop5: "Pop5",
	OpPop6: "Pop6",
	OpPopU8: "PopU8",
	OpPopU16: "PopU16",
	OpPopU32: "PopU32",
	OpJne8: "Jne8",
	OpJne16: "Jne16",
	OpJne32: "Jne32",
	OpJe8: "Je8",
	OpJe16: "Je16",
	OpJe32: "Je32",
	OpJ8: "J8",
	OpJ16: "J16",
	OpJ32: "J32",
	OpGetLast0: "GetLast0",
	OpGetLast1: "GetLast1",
	OpGetLast2: "GetLast2",
	OpGetLast3: "GetLast3",
	OpGetLastU8: "GetLastU8",
	OpGetLastU16: "GetLastU16",
	OpGetLastU32: "GetLastU32",
	OpSetNodeU8: "SetNodeU8",
	OpSetNodeU16: "SetNodeU16",
	OpSetNodeU32: "SetNodeU32",
	OpObjField0: "ObjField0",
	OpObjField1: "ObjField1",
	OpObjField2: "ObjField2",
	OpObjField3: "ObjField3",
	OpObjField4: "ObjField4",
	OpObjField5: "ObjField5",
	OpObjField6: "ObjField6",
	OpUpdDev0: "UpdDev0",
	OpUpdDev1: "UpdDev1",
	OpUpdDev2: "UpdDev2",
	OpUpdDev3: "UpdDev3",
	OpUpdDevU8: "UpdDevU8",
	OpUpdNodeU8: "UpdNodeU8",
	OpUpdNodeU16: "UpdNodeU16",
	OpUpdNodeU32: "UpdNodeU32",
	OpOAction0: "OAction0",
	OpOAction1: "OAction1",
	OpOAction2: "OAction2",
	OpOAction3: "OAction3",
	OpOActionU8: "OActionU8",
	OpCallU8: "CallU8",
	OpCallU16: "CallU16",
	OpCallU32: "CallU32",
	OpGetDataU8: "GetDataU8",
	OpGetDataU16: "GetDataU16",
	OpGetDataU32: "GetDataU32",
	OpGetNodeU8: "GetNodeU8",
	OpGetNodeU16: "GetNodeU16",
	OpGetNodeU32: "GetNodeU32",
	OpSetDataU8: "SetDataU8",
	OpSetDataU16: "SetDataU16",
	OpSetDataU32: "SetDataU32",
	OpObjTag: "ObjTag",
	OpSetLast0: "SetLast0",
	OpSetLast1: "SetLast1",
	OpSetLast2: "SetLast2",
	OpSetLast3: "SetLast3",
	OpSetLastU8: "SetLastU8",
	OpSetLastU16: "SetLastU16",
	OpSetLastU32: "SetLastU32",
	OpEndUpdU8: "EndUpdU8",
	OpEndUpdU16: "EndUpdU16",
	OpEndUpdU32: "EndUpdU32",
	OpAllocObj0: "AllocObj0",
	OpAllocObj1: "AllocObj1",
	OpAllocObj2: "AllocObj2",
	OpAllocObj3: "AllocObj3",
	OpAllocObj4: "AllocObj4",
	OpAllocObj5: "AllocObj5",
	OpAllocObj6: "AllocObj6",
	OpAllocObjU8: "AllocObjU8",
	OpDropLocalObj0: "DropLocalObj0",
	OpDropLocalObj1: "DropLocalObj1",
	OpDropLocalObj2: "DropLocalObj2",
	OpDropLocalObj3: "DropLocalObj3",
	OpDropLocalObj4: "DropLocalObj4",
	OpDropLocalObj5: "DropLocalObj5",
	OpDropLocalObj6: "DropLocalObj6",
	OpDropLocalObjI8: "DropLocalObjI8",
	OpDropLocalObjI16: "DropLocalObjI16",
	OpDropLocalObjI32: "DropLocalObjI32",
	OpGetLocalRef0: "GetLocalRef0",
	OpGetLocalRef1: "GetLocalRef1",
	OpGetLocalRef2: "GetLocalRef2",
	OpGetLocalRef3: "GetLocalRef3",
	OpGetLocalRef4: "GetLocalRef4",
	OpGetLocalRef5: "GetLocalRef5",
	OpGetLocalRef6: "GetLocalRef6",
	OpGetLocalRefI8: "GetLocalRefI8",
	OpGetLocalRefI16: "GetLocalRefI16",
	OpGetLocalRefI32: "GetLocalRefI32",
	OpSetLocalRef0: "SetLocalRef0",
	OpSetLocalRef1: "SetLocalRef1",
	OpSetLocalRef2: "SetLocalRef2",
	OpSetLocalRef3: "SetLocalRef3",
	OpSetLocalRef4: "SetLocalRef4",
	OpSetLocalRef5: "SetLocalRef5",
	OpSetLocalRef6: "SetLocalRef6",
	OpSetLocalRefI8: "SetLocalRefI8",
	OpSetLocalRefI16: "SetLocalRefI16",
	OpSetLocalRefI32: "SetLocalRefI32",
	OpObjFieldRef0: "ObjFieldRef0",
	OpObjFieldRef1: "ObjFieldRef1",
	OpObjFieldRef2: "ObjFieldRef2",
	OpObjFieldRef3: "ObjFieldRef3",
	OpObjFieldRef4: "ObjFieldRef4",
	OpObjFieldRef5: "ObjFieldRef5",
	OpObjFieldRef6: "ObjFieldRef6",
	OpEndUpdObjU8: "EndUpdObjU8",
	OpEndUpdObjU16: "EndUpdObjU16",
	OpEndUpdObjU32: "EndUpdObjU32",
	OpGetNodeRefU8: "GetNodeRefU8",
	OpGetNodeRefU16: "GetNodeRefU16",
	OpGetNodeRefU32: "GetNodeRefU32",
	OpGetDataRefU8: "GetDataRefU8",
	OpGetDataRefU16: "GetDataRefU16",
	OpGetDataRefU32: "GetDataRefU32",
	OpGetLastRef0: "GetLastRef0",
	OpGetLastRef1: "GetLastRef1",
	OpGetLastRef2: "GetLastRef2",
	OpGetLastRef3: "GetLastRef3",
	OpGetLastRefU8: "GetLastRefU8",
	OpGetLastRefU16: "GetLastRefU16",
	OpGetLastRefU32: "GetLastRefU32",
	OpSetDataRefU8: "SetDataRefU8",
	OpSetDataRefU16: "SetDataRefU16",
	OpSetDataRefU32: "SetDataRefU32",
	OpSetLastRef0: "SetLastRef0",
	OpSetLastRef1: "SetLastRef1",
	OpSetLastRef2: "SetLastRef2",
	OpSetLastRef3: "SetLastRef3",
	OpSetLastRefU8: "SetLastRefU8",
	OpSetLastRefU16: "SetLastRefU16",
	OpSetLastRefU32: "SetLastRefU32",
	OpSetNodeRefU8: "SetNodeRefU8",
	OpSetNodeRefU16: "SetNodeRefU16",
	OpSetNodeRefU32: "SetNodeRefU32",
	OpDropLastU8: "DropLastU8",
	OpDropLastU16: "DropLastU16",
	OpDropLastU32: "DropLastU32",
	OpJ0: "J0",
	OpJ1: "J1",
	OpJe0: "Je0",
	OpJe1: "Je1",
	OpJne0: "Jne0",
	OpJne1: "Jne1",
}

// String returns the opcode's mnemonic, or "?unknown?" for a value with no
// assigned meaning in the instruction set.
func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return "?unknown?"
}

// IsRefCounted reports whether the opcode operates on the refcounted heap
// (GET_*_REF, SET_*_REF, OBJ_FIELD_REF, DROP_*): these opcodes call inc/drop
// on the object graph, unlike their non-REF counterparts.
func (o Opcode) IsRefCounted() bool {
	switch {
	case o >= OpDropLocalObj0 && o <= OpDropLocalObjI32:
		return true
	case o >= OpGetLocalRef0 && o <= OpSetLocalRefI32:
		return true
	case o >= OpObjFieldRef0 && o <= OpObjFieldRef6:
		return true
	case o == OpEndUpdObjU8 || o == OpEndUpdObjU16 || o == OpEndUpdObjU32:
		return true
	case o >= OpGetNodeRefU8 && o <= OpSetNodeRefU32:
		return true
	case o == OpDropLastU8 || o == OpDropLastU16 || o == OpDropLastU32:
		return true
	default:
		return false
	}
}

// IsJump reports whether the opcode can redirect ip.
func (o Opcode) IsJump() bool {
	switch o {
	case OpJne8, OpJne16, OpJne32, OpJe8, OpJe16, OpJe32, OpJ8, OpJ16, OpJ32,
		OpJ0, OpJ1, OpJe0, OpJe1, OpJne0, OpJne1:
		return true
	default:
		return false
	}
}

// IsAllocObj reports whether the opcode allocates a heap object.
func (o Opcode) IsAllocObj() bool {
	return o >= OpAllocObj0 && o <= OpAllocObjU8
}
