package scsicd

import "fmt"

// Formatted panic()
func panicFmt(format string, a ...interface{}) {
	panic(fmt.Sprintf(format, a...))
}

func de16msb(b []byte) uint32 {
	return uint32(b[0])<<8 | uint32(b[1])
}

func de24msb(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func de32msb(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func en16msb(b []byte, v uint32) {
	b[0] = uint8(v >> 8)
	b[1] = uint8(v)
}

func en24msb(b []byte, v uint32) {
	b[0] = uint8(v >> 16)
	b[1] = uint8(v >> 8)
	b[2] = uint8(v)
}

func en32msb(b []byte, v uint32) {
	b[0] = uint8(v >> 24)
	b[1] = uint8(v >> 16)
	b[2] = uint8(v >> 8)
	b[3] = uint8(v)
}

func de16lsb(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
