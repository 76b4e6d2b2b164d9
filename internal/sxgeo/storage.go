package sxgeo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/exp/mmap"
)

// ErrOutOfRange is returned by storage when a read falls outside the file.
var ErrOutOfRange = errors.New("sxgeo: read out of range")

// Storage serves immutable byte ranges of a database file.
type Storage interface {
	ReadRange(offset, length int64) ([]byte, error)
}

// sizer is implemented by storages that know their total length.
type sizer interface {
	Size() int64
}

// Mode selects how a database file is held while it is open.
type Mode int

const (
	// ModeMemory reads the whole file into memory. Gzip input is decompressed.
	ModeMemory Mode = iota
	// ModeMmap maps the file and serves ranges from the mapping.
	ModeMmap
	// ModeFile issues a positioned read for every range.
	ModeFile
)

func (m Mode) String() string {
	switch m {
	case ModeMemory:
		return "memory"
	case ModeMmap:
		return "mmap"
	case ModeFile:
		return "file"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode converts "memory", "mmap" or "file" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "memory":
		return ModeMemory, nil
	case "mmap":
		return ModeMmap, nil
	case "file":
		return ModeFile, nil
	}
	return 0, fmt.Errorf("sxgeo: unknown mode %q", s)
}

// MemoryStorage serves ranges as sub-slices of a resident buffer.
type MemoryStorage []byte

// ReadRange returns a slice aliasing the buffer; callers must not modify it.
func (m MemoryStorage) ReadRange(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > int64(len(m)) {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfRange, offset, offset+length, len(m))
	}
	return m[offset : offset+length : offset+length], nil
}

func (m MemoryStorage) Size() int64 { return int64(len(m)) }

// ReaderAtStorage serves ranges with a fresh read per call.
type ReaderAtStorage struct {
	r    io.ReaderAt
	size int64
}

// NewReaderAtStorage wraps r, whose total length is size.
func NewReaderAtStorage(r io.ReaderAt, size int64) *ReaderAtStorage {
	return &ReaderAtStorage{r: r, size: size}
}

func (s *ReaderAtStorage) ReadRange(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > s.size {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfRange, offset, offset+length, s.size)
	}
	buf := make([]byte, length)
	n, err := s.r.ReadAt(buf, offset)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("sxgeo: read %d bytes at %d: %w", length, offset, err)
}

func (s *ReaderAtStorage) Size() int64 { return s.size }

var gzipMagic = []byte{0x1f, 0x8b}

// openStorage opens path in the given mode. The returned closer may be nil.
func openStorage(path string, mode Mode) (Storage, io.Closer, error) {
	switch mode {
	case ModeMemory:
		buf, err := readAll(path)
		if err != nil {
			return nil, nil, err
		}
		return MemoryStorage(buf), nil, nil
	case ModeMmap:
		r, err := mmap.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("mmap %s: %w", path, err)
		}
		return NewReaderAtStorage(r, int64(r.Len())), r, nil
	case ModeFile:
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return NewReaderAtStorage(f, fi.Size()), f, nil
	}
	return nil, nil, fmt.Errorf("sxgeo: unknown mode %d", int(mode))
}

// readAll loads a file into memory, transparently decompressing gzip.
func readAll(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(len(gzipMagic))
	if !bytes.Equal(head, gzipMagic) {
		return io.ReadAll(br)
	}

	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("gzip %s: %w", path, err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// section is a bounded window of the storage holding one blob or table.
type section struct {
	st   Storage
	off  int64
	size int64
}

// read returns up to n bytes at offset at, clamped to the section end.
func (s section) read(at, n int64) ([]byte, error) {
	if at < 0 || at >= s.size || n <= 0 {
		return nil, nil
	}
	if at+n > s.size {
		n = s.size - at
	}
	return s.st.ReadRange(s.off+at, n)
}
