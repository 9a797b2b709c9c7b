package container

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// minContainerSize is a lower bound on the byte count of a well-formed
// container: a 4-byte pathsEndPos, a 4-byte pathBlobSize, a tree region of
// at least a 4-byte tree-bit-count, 1 tree byte and 1 EOT byte, a 4-byte
// filesCnt, and a 4-byte trailer.
const minContainerSize = 4 + 4 + 4 + 1 + 1 + 4 + 4

// ErrUpToDate is returned by Update when the replacement source is
// byte-identical (same size and CRC-32) to the stored member; the archive
// is left untouched.
var ErrUpToDate = errors.New("container: member already up to date")

// MemberInfo summarizes one archived file for the "info" operation.
type MemberInfo struct {
	Name           string
	Size           uint32
	CompressedSize uint32
	Ratio          float64 // percent, (1 - compressed/size) * 100
}

// Archive is an opened, verified container ready for extraction, listing,
// or update.
type Archive struct {
	path        string
	file        *os.File
	PathsEndPos uint32
	Records     []Record
}

// CheckIntegrity reports whether path's trailer CRC-32 matches the CRC-32
// of everything preceding it. It does not raise Corrupted: a mismatch is a
// normal (false, nil) result, per the integrity-check operation's contract.
func CheckIntegrity(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	size := info.Size()
	if size > MaxFileSize {
		return false, ErrTooLarge
	}
	if size < uint32Size {
		return false, nil
	}

	computed, err := checksumPrefix(f, size-uint32Size)
	if err != nil {
		return false, err
	}
	if _, err := f.Seek(size-uint32Size, io.SeekStart); err != nil {
		return false, err
	}
	stored, err := readUint32(f)
	if err != nil {
		return false, err
	}
	return computed == stored, nil
}

// Open verifies path's trailer and decodes its directory region, returning
// an Archive ready for extraction/listing/update. The caller must Close it.
func Open(path string) (*Archive, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxFileSize {
		return nil, ErrTooLarge
	}
	if info.Size() < minContainerSize {
		return nil, ErrCorrupted
	}

	ok, err := CheckIntegrity(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCorrupted
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	a, err := decodeDirectory(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	a.path = path
	a.file = f
	return a, nil
}

// decodeDirectory reads the header, the path blob, and the record table.
func decodeDirectory(f *os.File, fileSize int64) (*Archive, error) {
	pathsEndPos, err := readUint32(f)
	if err != nil {
		return nil, ErrCorrupted
	}
	if int64(pathsEndPos) > fileSize {
		return nil, ErrCorrupted
	}

	pathBlobSize, err := readUint32(f)
	if err != nil {
		return nil, ErrCorrupted
	}

	tree, depth, _, err := readTreeAndSentinel(f)
	if err != nil {
		return nil, err
	}
	var blobBuf bytes.Buffer
	if err := decodeStream(f, tree, depth, int(pathBlobSize), &blobBuf); err != nil {
		return nil, err
	}
	blob := blobBuf.Bytes()

	if _, err := f.Seek(int64(pathsEndPos), io.SeekStart); err != nil {
		return nil, err
	}
	filesCnt, err := readUint32(f)
	if err != nil {
		return nil, ErrCorrupted
	}

	paths := splitPaths(blob, int(filesCnt))
	if len(paths) != int(filesCnt) {
		return nil, ErrCorrupted
	}

	records := make([]Record, filesCnt)
	for i := range records {
		size, err1 := readUint32(f)
		start, err2 := readUint32(f)
		checksum, err3 := readUint32(f)
		end, err4 := readUint32(f)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return nil, ErrCorrupted
		}
		if start >= end || int64(end) > fileSize-uint32Size {
			return nil, ErrCorrupted
		}
		if i > 0 && start < records[i-1].EndPos {
			return nil, ErrCorrupted
		}
		records[i] = Record{
			Path:     paths[i],
			Name:     nameOf(paths[i]),
			Size:     size,
			Checksum: checksum,
			StartPos: start,
			EndPos:   end,
		}
	}

	return &Archive{PathsEndPos: pathsEndPos, Records: records}, nil
}

// splitPaths splits blob on EON into trimmed paths, dropping the trailing
// empty segment the final EON produces. n is not used to limit the split:
// the result holds every segment, and the caller compares its length to n.
func splitPaths(blob []byte, n int) []string {
	parts := bytes.Split(blob, []byte{EON})
	if len(parts) > 0 && len(parts[len(parts)-1]) == 0 {
		parts = parts[:len(parts)-1]
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}

// Close releases the archive's open file handle.
func (a *Archive) Close() error {
	if a.file == nil {
		return nil
	}
	return a.file.Close()
}

// joinStoredPath translates a '\\'-separated stored path to a native path
// rooted at destDir.
func joinStoredPath(destDir, stored string) string {
	parts := strings.Split(stored, string(rune(PathSeparator)))
	return filepath.Join(append([]string{destDir}, parts...)...)
}

func (a *Archive) extractRecord(r Record, destFull string) error {
	if err := os.MkdirAll(filepath.Dir(destFull), 0o755); err != nil {
		return err
	}
	if _, err := a.file.Seek(int64(r.StartPos), io.SeekStart); err != nil {
		return err
	}
	tree, depth, _, err := readTreeAndSentinel(a.file)
	if err != nil {
		return err
	}
	out, err := os.Create(destFull)
	if err != nil {
		return err
	}
	if err := decodeStream(a.file, tree, depth, int(r.Size), out); err != nil {
		out.Close()
		os.Remove(destFull)
		return err
	}
	return out.Close()
}

// ExtractAll decodes every member into destDir, recreating its relative
// directory structure.
func (a *Archive) ExtractAll(destDir string) error {
	for _, r := range a.Records {
		if err := a.extractRecord(r, joinStoredPath(destDir, r.Path)); err != nil {
			return err
		}
	}
	return nil
}

// indexOfName binary-searches the (name-sorted) record table for name.
func (a *Archive) indexOfName(name string) (int, bool) {
	i := sort.Search(len(a.Records), func(i int) bool { return a.Records[i].Name >= name })
	if i < len(a.Records) && a.Records[i].Name == name {
		return i, true
	}
	return 0, false
}

// ExtractOne decodes the named member into destDir. It reports false (no
// error) when name is not present in the archive.
func (a *Archive) ExtractOne(name, destDir string) (bool, error) {
	i, ok := a.indexOfName(name)
	if !ok {
		return false, nil
	}
	if err := a.extractRecord(a.Records[i], joinStoredPath(destDir, a.Records[i].Path)); err != nil {
		return false, err
	}
	return true, nil
}

// Info summarizes every member's size and compression ratio.
func (a *Archive) Info() []MemberInfo {
	infos := make([]MemberInfo, len(a.Records))
	for i, r := range a.Records {
		compressed := r.EndPos - r.StartPos
		var ratio float64
		if r.Size > 0 {
			ratio = (1 - float64(compressed)/float64(r.Size)) * 100
		}
		infos[i] = MemberInfo{Name: r.Name, Size: r.Size, CompressedSize: compressed, Ratio: ratio}
	}
	return infos
}

// Update replaces the member named after newFilePath's base name with a
// freshly compressed copy of newFilePath, rewriting offsets for every
// member after it while copying every other member body verbatim. It
// returns ErrNotFound if no member has that name, and ErrUpToDate (leaving
// the archive untouched) if newFilePath is byte-identical to what is
// already stored.
func (a *Archive) Update(newFilePath string) error {
	name := filepath.Base(newFilePath)
	i, ok := a.indexOfName(name)
	if !ok {
		return ErrNotFound
	}
	rec := a.Records[i]

	info, err := os.Stat(newFilePath)
	if err != nil {
		return err
	}
	if info.Size() > MaxFileSize {
		return ErrTooLarge
	}
	newSize := uint32(info.Size())

	newFile, err := os.Open(newFilePath)
	if err != nil {
		return err
	}
	defer newFile.Close()

	newCrc, err := checksumAll(newFile)
	if err != nil {
		return err
	}

	if newCrc == rec.Checksum && newSize == rec.Size {
		return ErrUpToDate
	}

	dir := filepath.Dir(a.path)
	tempPath := filepath.Join(dir, "temp.bin")
	temp, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	abort := func(err error) error {
		temp.Close()
		os.Remove(tempPath)
		return err
	}

	if _, err := a.file.Seek(0, io.SeekStart); err != nil {
		return abort(err)
	}
	if _, err := io.CopyN(temp, a.file, int64(rec.StartPos)); err != nil {
		return abort(err)
	}

	if _, err := newFile.Seek(0, io.SeekStart); err != nil {
		return abort(err)
	}
	confirmCrc, written, err := compressAndWrite(newFile, temp)
	if err != nil {
		return abort(err)
	}
	if confirmCrc != newCrc {
		return abort(ErrCorrupted)
	}
	newEndPos := int64(rec.StartPos) + written
	if newEndPos >= MaxFileSize {
		return abort(ErrTooLarge)
	}

	// Copy the tail verbatim, stopping short of the old trailer CRC: a
	// fresh trailer is appended after the rename, and carrying the stale
	// one forward would grow the archive by four dead bytes per update.
	origInfo, err := a.file.Stat()
	if err != nil {
		return abort(err)
	}
	tailLen := origInfo.Size() - int64(rec.EndPos) - uint32Size
	if tailLen < 0 {
		return abort(ErrCorrupted)
	}
	if _, err := a.file.Seek(int64(rec.EndPos), io.SeekStart); err != nil {
		return abort(err)
	}
	if _, err := io.CopyN(temp, a.file, tailLen); err != nil {
		return abort(err)
	}

	delta := newEndPos - int64(rec.EndPos)
	if err := patchRecordTable(temp, a.PathsEndPos, i, newSize, newCrc, uint32(newEndPos), a.Records, delta); err != nil {
		return abort(err)
	}

	if err := temp.Sync(); err != nil {
		return abort(err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}
	if err := a.file.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}
	a.file = nil

	if err := os.Remove(a.path); err != nil {
		return err
	}
	if err := os.Rename(tempPath, a.path); err != nil {
		return err
	}

	f, err := os.OpenFile(a.path, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := appendTrailerCRC(f); err != nil {
		return err
	}

	rec.Size, rec.Checksum, rec.EndPos = newSize, newCrc, uint32(newEndPos)
	a.Records[i] = rec
	for j := i + 1; j < len(a.Records); j++ {
		a.Records[j].StartPos = uint32(int64(a.Records[j].StartPos) + delta)
		a.Records[j].EndPos = uint32(int64(a.Records[j].EndPos) + delta)
	}
	return nil
}

// patchRecordTable rewrites the updated member's record in place and
// shifts every later member's start/end offsets by delta. The record
// table's own position never moves: the directory region precedes every
// member body and is untouched by an update.
func patchRecordTable(temp *os.File, pathsEndPos uint32, index int, newSize, newCrc, newEndPos uint32, records []Record, delta int64) error {
	recordTableStart := int64(pathsEndPos) + uint32Size
	fieldWidth := int64(uint32Size)
	recordWidth := 4 * fieldWidth

	offset := recordTableStart + int64(index)*recordWidth
	if _, err := temp.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if _, err := writeUint32(temp, newSize); err != nil {
		return err
	}
	// startPos (field 1) is unchanged for the updated member itself.
	if _, err := temp.Seek(offset+2*fieldWidth, io.SeekStart); err != nil {
		return err
	}
	if _, err := writeUint32(temp, newCrc); err != nil {
		return err
	}
	if _, err := writeUint32(temp, newEndPos); err != nil {
		return err
	}

	for j := index + 1; j < len(records); j++ {
		off := recordTableStart + int64(j)*recordWidth
		newStart := uint32(int64(records[j].StartPos) + delta)
		newEnd := uint32(int64(records[j].EndPos) + delta)

		if _, err := temp.Seek(off+fieldWidth, io.SeekStart); err != nil {
			return err
		}
		if _, err := writeUint32(temp, newStart); err != nil {
			return err
		}
		if _, err := temp.Seek(off+3*fieldWidth, io.SeekStart); err != nil {
			return err
		}
		if _, err := writeUint32(temp, newEnd); err != nil {
			return err
		}
	}
	return nil
}
