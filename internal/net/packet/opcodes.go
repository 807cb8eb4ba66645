package packet

// Client → server.
const (
	C_LOGIN      byte = 0x0D
	C_LOGOUT     byte = 0x0E
	C_MOVE       byte = 0x10
	C_TURN       byte = 0x11
	C_SAY        byte = 0x12
	C_ATTACK     byte = 0x13
	C_STOPATTACK byte = 0x14
	C_KEEPALIVE  byte = 0xD8
)

// Server → client.
const (
	S_LOGIN      byte = 0x80
	S_LOGOUT     byte = 0x81
	S_REMOVECHAR byte = 0x82
	S_MOVE       byte = 0x83
	S_SPIN       byte = 0x84
	S_IGTIME     byte = 0x85
	S_SAY        byte = 0x86
	S_HEALTH     byte = 0x87
	S_INFO       byte = 0x88
)

// Logout reasons carried by S_LOGOUT.
const (
	LogoutByPlayer           byte = 0
	LogoutOldClient          byte = 1
	LogoutDoubleLogin        byte = 2
	LogoutWrongPassword      byte = 3
	LogoutServerShutdown     byte = 4
	LogoutUnstableConnection byte = 12
)

// Move modes carried by S_MOVE.
const (
	MoveNoMove  byte = 0
	MoveNormal  byte = 1
	MovePush    byte = 2
	MoveRunning byte = 3
)
