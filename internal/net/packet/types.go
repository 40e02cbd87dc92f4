package packet

// Client → server message types.
const (
	MsgJoin     byte = 1
	MsgInput    byte = 2
	MsgSpectate byte = 3
	MsgPing     byte = 4
)

// Server → client message types.
const (
	MsgJoined byte = 101
	MsgUpdate byte = 102
	MsgPong   byte = 103
	MsgKill   byte = 104
)

// Update flags, written as the first u16 of MsgUpdate.
const (
	UpdResync uint16 = 1 << iota
	UpdDeleted
	UpdFull
	UpdActivePlayer
	UpdLocalData
	UpdGas
	UpdGasProgress
	UpdAliveCount
)

// Move flags carried by MsgInput.
const (
	MoveLeft byte = 1 << iota
	MoveRight
	MoveUp
	MoveDown
)

// Quantisation used for positions and directions on the wire.
const (
	PosBits = 16
	DirBits = 8
)
