package cdimage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CUE sheet parsing. Only the common single-session BIN layouts are
// handled: FILE/TRACK/INDEX/PREGAP with MODE1, MODE2 and AUDIO track
// types

type cueTrack struct {
	number  int
	ttype   string
	pregap  uint32 // Implicit pregap sectors from a PREGAP command
	index1  int64  // Sector offset of INDEX 01 within the file, -1 if unset
	fileIdx int
}

type cueFile struct {
	path    string
	sectors int64
	size    int64
}

// Parses "mm:ss:ff" into a sector count
func parseCueTime(s string) (int64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	var v [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		v[i] = n
	}
	if v[1] >= 60 || v[2] >= 75 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return (v[0]*60+v[1])*75 + v[2], nil
}

// Splits a CUE line into tokens, honoring double quotes
func cueFields(line string) []string {
	var fields []string
	for i := 0; i < len(line); {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t' || line[i] == '\r') {
			i++
		}
		if i >= len(line) {
			break
		}
		if line[i] == '"' {
			end := strings.IndexByte(line[i+1:], '"')
			if end < 0 {
				fields = append(fields, line[i+1:])
				break
			}
			fields = append(fields, line[i+1:i+1+end])
			i += end + 2
		} else {
			end := i
			for end < len(line) && line[end] != ' ' && line[end] != '\t' && line[end] != '\r' {
				end++
			}
			fields = append(fields, line[i:end])
			i = end
		}
	}
	return fields
}

func cueSectorSize(ttype string) (uint32, uint8, bool, error) {
	switch ttype {
	case "AUDIO":
		return 2352, 0, true, nil
	case "MODE1/2352":
		return 2352, 1, false, nil
	case "MODE2/2352":
		return 2352, 2, false, nil
	case "MODE1/2048":
		return 2048, 1, false, nil
	default:
		return 0, 0, false, fmt.Errorf("unhandled track type %q", ttype)
	}
}

// Opens a CUE sheet and its BIN file(s), laying the tracks out on an
// absolute sector axis with the standard two second lead-in
func OpenCue(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var files []cueFile
	var tracks []cueTrack

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := cueFields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch strings.ToUpper(fields[0]) {
		case "FILE":
			if len(fields) < 3 {
				return nil, fmt.Errorf("cue: malformed FILE line")
			}
			if strings.ToUpper(fields[2]) != "BINARY" {
				return nil, fmt.Errorf("cue: unhandled file type %q", fields[2])
			}
			files = append(files, cueFile{path: filepath.Join(filepath.Dir(path), fields[1])})

		case "TRACK":
			if len(files) == 0 || len(fields) < 3 {
				return nil, fmt.Errorf("cue: TRACK before FILE")
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 1 || n > 99 {
				return nil, fmt.Errorf("cue: bad track number %q", fields[1])
			}
			tracks = append(tracks, cueTrack{
				number:  n,
				ttype:   strings.ToUpper(fields[2]),
				index1:  -1,
				fileIdx: len(files) - 1,
			})

		case "INDEX":
			if len(tracks) == 0 || len(fields) < 3 {
				return nil, fmt.Errorf("cue: INDEX outside TRACK")
			}
			idx, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("cue: bad index %q", fields[1])
			}
			off, err := parseCueTime(fields[2])
			if err != nil {
				return nil, fmt.Errorf("cue: %v", err)
			}
			if idx == 1 {
				tracks[len(tracks)-1].index1 = off
			}

		case "PREGAP":
			if len(tracks) == 0 || len(fields) < 2 {
				return nil, fmt.Errorf("cue: PREGAP outside TRACK")
			}
			off, err := parseCueTime(fields[1])
			if err != nil {
				return nil, fmt.Errorf("cue: %v", err)
			}
			tracks[len(tracks)-1].pregap = uint32(off)

		case "REM", "CATALOG", "CDTEXTFILE", "FLAGS", "ISRC", "PERFORMER",
			"SONGWRITER", "TITLE", "POSTGAP":
			// Ignored
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("cue: no tracks")
	}

	img := &Image{}

	for i := range files {
		bin, err := os.Open(files[i].path)
		if err != nil {
			return nil, err
		}
		st, err := bin.Stat()
		if err != nil {
			bin.Close()
			return nil, err
		}
		files[i].size = st.Size()

		// Every track of one file shares its sector size in the
		// layouts handled here; take it from the first
		for _, t := range tracks {
			if t.fileIdx == i {
				ssize, _, _, err := cueSectorSize(t.ttype)
				if err != nil {
					bin.Close()
					return nil, err
				}
				files[i].sectors = st.Size() / int64(ssize)
				break
			}
		}

		img.binFiles = append(img.binFiles, bin)
	}

	// Lay tracks out: two second lead-in, then each file's tracks
	// back to back
	lba := uint32(150)

	for ti := range tracks {
		t := &tracks[ti]
		ssize, mode, audio, err := cueSectorSize(t.ttype)
		if err != nil {
			return nil, err
		}
		if t.index1 < 0 {
			return nil, fmt.Errorf("cue: track %d has no INDEX 01", t.number)
		}

		// End of this track's data within its file: the next track's
		// INDEX 01 in the same file, or the end of the file
		end := files[t.fileIdx].sectors
		if ti+1 < len(tracks) && tracks[ti+1].fileIdx == t.fileIdx {
			end = tracks[ti+1].index1
		}
		if end < t.index1 {
			return nil, fmt.Errorf("cue: track %d is empty", t.number)
		}

		lba += t.pregap

		img.Tracks = append(img.Tracks, ImageTrack{
			Number:     uint8(t.number),
			Audio:      audio,
			Mode:       mode,
			LBA:        lba,
			Sectors:    uint32(end - t.index1),
			File:       img.binFiles[t.fileIdx],
			FileOffset: t.index1 * int64(ssize),
			SectorSize: ssize,
		})

		lba += uint32(end - t.index1)
	}

	img.Leadout = lba

	return img, nil
}

// Releases the underlying BIN files
func (img *Image) Close() error {
	var first error
	for _, f := range img.binFiles {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	img.binFiles = nil
	return first
}
