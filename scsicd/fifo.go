package scsicd

// Byte ring buffer from the drive to the host, sized to a power of
// two. The read pointer and fill count are the canonical state; the
// write pointer is always derived from them
type FIFO struct {
	Data    []byte
	ReadPos uint32
	InCount uint32
}

// Returns a new FIFO instance. `size` must be a power of two
func NewFIFO(size uint32) *FIFO {
	if size == 0 || size&(size-1) != 0 {
		panicFmt("fifo: size %d is not a power of two", size)
	}
	return &FIFO{Data: make([]byte, size)}
}

func (fifo *FIFO) Size() uint32 {
	return uint32(len(fifo.Data))
}

// Returns the derived write pointer
func (fifo *FIFO) WritePos() uint32 {
	return (fifo.ReadPos + fifo.InCount) & (fifo.Size() - 1)
}

// Returns the number of bytes that can still be buffered
func (fifo *FIFO) CanWrite() uint32 {
	return fifo.Size() - fifo.InCount
}

// Pushes a single byte
func (fifo *FIFO) WriteByte(val byte) {
	fifo.Data[fifo.WritePos()] = val
	fifo.InCount++
}

// Pushes a slice of bytes
func (fifo *FIFO) Write(data []byte) {
	for _, v := range data {
		fifo.WriteByte(v)
	}
}

// Pops the oldest byte
func (fifo *FIFO) ReadByte() byte {
	v := fifo.Data[fifo.ReadPos]
	fifo.ReadPos = (fifo.ReadPos + 1) & (fifo.Size() - 1)
	fifo.InCount--
	return v
}

// Empties the FIFO
func (fifo *FIFO) Flush() {
	fifo.ReadPos = 0
	fifo.InCount = 0
}
