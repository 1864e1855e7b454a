package scsicd

// Raw sector size in bytes, not counting subchannel data
const SECTOR_SIZE = 2352

// Subchannel data size in bytes per sector (96 P-W bytes)
const SUBCHANNEL_SIZE = 96

// DiscBackend is the disc image reader the drive pulls sectors from.
// The host owns it and may swap it with SetDisc; the core only calls
// it synchronously from command handlers, the sector read scheduler
// and the CD-DA engine
type DiscBackend interface {
	// Fills in the table of contents
	ReadTOC(toc *TOC)

	// Reads the raw 2352+96 byte sector at `lba` into buf. Returns
	// false on a hard read failure
	ReadRawSector(buf []byte, lba uint32) bool

	// Checks the error detection data of a raw data sector
	ValidateRawSector(buf []byte) bool

	// Hints that sequential reads starting at `lba` are coming
	HintReadSector(lba uint32)
}
