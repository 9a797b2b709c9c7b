package container

import (
	"bytes"
	"io"
	"os"
	"sort"
	"strings"
)

// Entry describes one file to be archived: Full is the native filesystem
// path to read from, Trimmed is the path to store on disk (already
// '\\'-separated, relative to whatever base directory the caller resolved
// against).
type Entry struct {
	Full    string
	Trimmed string
}

// nameOf returns the last path segment of a stored ('\\'-separated) path.
func nameOf(trimmed string) string {
	idx := strings.LastIndexByte(trimmed, PathSeparator)
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+1:]
}

// Create builds a new container at destPath from entries, per the container
// creation procedure: the entries are stable-sorted by name, their trimmed
// paths are concatenated into the path blob, and each file body is
// Huffman-compressed in turn with its record filled in as it is written.
//
// Any error aborts and leaves destPath partially written; the caller may
// remove it.
func Create(entries []Entry, destPath string) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return nameOf(sorted[i].Trimmed) < nameOf(sorted[j].Trimmed)
	})

	var blob bytes.Buffer
	for _, e := range sorted {
		blob.WriteString(e.Trimmed)
		blob.WriteByte(EON)
	}
	if int64(blob.Len()) >= MaxFileSize {
		return ErrTooLarge
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dest.Close()

	var posCnt int64

	// Placeholder for pathsEndPos, patched once its true value is known.
	if _, err := writeUint32(dest, 0); err != nil {
		return err
	}
	posCnt += uint32Size

	if _, err := writeUint32(dest, uint32(blob.Len())); err != nil {
		return err
	}
	posCnt += uint32Size

	_, written, err := compressAndWrite(bytes.NewReader(blob.Bytes()), dest)
	if err != nil {
		return err
	}
	posCnt += written

	pathsEndPos := posCnt

	filesCnt := len(sorted)
	if _, err := writeUint32(dest, uint32(filesCnt)); err != nil {
		return err
	}
	posCnt += uint32Size

	recordTableStart := posCnt
	fieldsPerRecord := int64(4)
	for i := 0; i < filesCnt*int(fieldsPerRecord); i++ {
		if _, err := writeUint32(dest, 0); err != nil {
			return err
		}
	}
	posCnt += fieldsPerRecord * uint32Size * int64(filesCnt)

	if _, err := dest.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := writeUint32(dest, uint32(pathsEndPos)); err != nil {
		return err
	}

	for i, e := range sorted {
		info, err := os.Stat(e.Full)
		if err != nil {
			return err
		}
		if info.Size() > MaxFileSize {
			return ErrTooLarge
		}

		recordOffset := recordTableStart + int64(i)*4*uint32Size
		if _, err := dest.Seek(recordOffset, io.SeekStart); err != nil {
			return err
		}
		if _, err := writeUint32(dest, uint32(info.Size())); err != nil {
			return err
		}
		if _, err := writeUint32(dest, uint32(posCnt)); err != nil {
			return err
		}

		if _, err := dest.Seek(posCnt, io.SeekStart); err != nil {
			return err
		}
		src, err := os.Open(e.Full)
		if err != nil {
			return err
		}
		crc, written, err := compressAndWrite(src, dest)
		src.Close()
		if err != nil {
			return err
		}
		posCnt += written
		endPos := posCnt

		if _, err := dest.Seek(recordOffset+2*uint32Size, io.SeekStart); err != nil {
			return err
		}
		if _, err := writeUint32(dest, crc); err != nil {
			return err
		}
		if _, err := writeUint32(dest, uint32(endPos)); err != nil {
			return err
		}

		if _, err := dest.Seek(posCnt, io.SeekStart); err != nil {
			return err
		}
	}

	if posCnt+uint32Size > MaxFileSize {
		return ErrTooLarge
	}
	return appendTrailerCRC(dest)
}

// appendTrailerCRC computes the CRC-32 of every byte written to dest so
// far and appends it as a 4-byte trailer.
func appendTrailerCRC(dest *os.File) error {
	if _, err := dest.Seek(0, io.SeekStart); err != nil {
		return err
	}
	crc, err := checksumAll(dest)
	if err != nil {
		return err
	}
	if _, err := dest.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	_, err = writeUint32(dest, crc)
	return err
}
