package packet

// LogOut tells the client why it is being disconnected.
func LogOut(reason byte) []byte {
	w := NewWriterWithOpcode(S_LOGOUT)
	w.WriteC(reason)
	return w.Bytes()
}

// LoginOK confirms a login with the player's ID and position.
func LoginOK(id uint32, x, y, z int16) []byte {
	w := NewWriterWithOpcode(S_LOGIN)
	w.WriteDU(id)
	w.WritePos(x, y, z)
	return w.Bytes()
}

func RemoveChar(id uint32) []byte {
	w := NewWriterWithOpcode(S_REMOVECHAR)
	w.WriteDU(id)
	return w.Bytes()
}

// Move reports a character at its (new) position. duration is the
// animation length in 100ms units.
func Move(id uint32, x, y, z int16, mode, duration byte) []byte {
	w := NewWriterWithOpcode(S_MOVE)
	w.WriteDU(id)
	w.WritePos(x, y, z)
	w.WriteC(mode)
	w.WriteC(duration)
	return w.Bytes()
}

func Spin(id uint32, dir byte) []byte {
	w := NewWriterWithOpcode(S_SPIN)
	w.WriteDU(id)
	w.WriteC(dir)
	return w.Bytes()
}

// IGTime carries the in-game clock. month and day are 1-based.
func IGTime(year, month, day, hour, minute int) []byte {
	w := NewWriterWithOpcode(S_IGTIME)
	w.WriteC(byte(hour))
	w.WriteC(byte(minute))
	w.WriteC(byte(day))
	w.WriteC(byte(month))
	w.WriteH(uint16(year))
	return w.Bytes()
}

func Say(id uint32, x, y, z int16, text string) []byte {
	w := NewWriterWithOpcode(S_SAY)
	w.WriteDU(id)
	w.WritePos(x, y, z)
	w.WriteS(text)
	return w.Bytes()
}

// Health reports a character's hitpoints in thousandths of the maximum.
func Health(id uint32, permille uint16) []byte {
	w := NewWriterWithOpcode(S_HEALTH)
	w.WriteDU(id)
	w.WriteH(permille)
	return w.Bytes()
}

// Info is a server message shown to one player.
func Info(text string) []byte {
	w := NewWriterWithOpcode(S_INFO)
	w.WriteS(text)
	return w.Bytes()
}
