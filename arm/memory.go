package arm

// BusKind distinguishes an instruction fetch from a data access, so a host
// with separate I- and D-caches can route each correctly.
type BusKind uint8

const (
	BusCode BusKind = iota
	BusData
)

// Memory is the host-provided guest address space. The frontend touches
// only FastReadCodeU32, to fetch the instruction word at translation time;
// the byte/halfword/word data accessors exist for the backend's generated
// code to call at guest run time and are otherwise unused by this package.
type Memory interface {
	// FastReadCodeU32 returns the instruction word at a word-aligned
	// guest address. Behavior for a misaligned address is undefined,
	// matching real ARM instruction fetch.
	FastReadCodeU32(address uint32) uint32

	ReadU8(address uint32, bus BusKind) uint8
	ReadU16(address uint32, bus BusKind) uint16
	ReadU32(address uint32, bus BusKind) uint32
	WriteU8(address uint32, value uint8, bus BusKind)
	WriteU16(address uint32, value uint16, bus BusKind)
	WriteU32(address uint32, value uint32, bus BusKind)
}
