package scsicd

import "testing"

func TestFIFOInvariant(t *testing.T) {
	assert := assertFunc(t)
	fifo := NewFIFO(64)

	check := func() {
		assert((fifo.ReadPos+fifo.InCount)&(fifo.Size()-1) == fifo.WritePos())
	}

	// Pseudo-random interleaving of writes and reads
	rng := uint32(1)
	next := func() uint32 {
		rng ^= rng << 3
		rng ^= rng >> 5
		rng ^= rng << 25
		return rng
	}

	written, read := 0, 0
	for i := 0; i < 10000; i++ {
		if next()&1 == 0 && fifo.CanWrite() > 0 {
			fifo.WriteByte(uint8(written))
			written++
		} else if fifo.InCount > 0 {
			assert(fifo.ReadByte() == uint8(read))
			read++
		}
		check()
	}

	fifo.Flush()
	assert(fifo.InCount == 0 && fifo.ReadPos == 0)
	check()
}

func TestFIFOWrap(t *testing.T) {
	assert := assertFunc(t)
	fifo := NewFIFO(8)

	for round := 0; round < 5; round++ {
		fifo.Write([]byte{1, 2, 3, 4, 5})
		assert(fifo.InCount == 5)
		assert(fifo.CanWrite() == 3)
		for i := 1; i <= 5; i++ {
			assert(fifo.ReadByte() == uint8(i))
		}
	}
}

func TestFIFOSizeMustBePowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewFIFO(100)
}
