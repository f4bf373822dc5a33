package persist

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/internal/conv"

	// Register the binary loaders of every index kind.
	_ "github.com/hupe1980/neighbors/index/exhaustive"
	_ "github.com/hupe1980/neighbors/index/kmknn"
	_ "github.com/hupe1980/neighbors/index/vptree"
)

// Magic identifies a persisted index.
const Magic = "NNIX"

// Version is the current format version.
const Version uint16 = 1

// headerSize is magic(4) + version(2) + kind(1) + compression(1) +
// uncompressed(4) + compressed(4).
const headerSize = 16

var (
	// ErrBadMagic is returned when the input does not start with Magic.
	ErrBadMagic = errors.New("persist: bad magic")
	// ErrUnsupportedVersion is returned for a newer or unknown format version.
	ErrUnsupportedVersion = errors.New("persist: unsupported version")
	// ErrUnknownCompression is returned for an unknown compression tag.
	ErrUnknownCompression = errors.New("persist: unknown compression")
	// ErrCorrupted is returned when sizes or compressed data do not match.
	ErrCorrupted = errors.New("persist: corrupted data")
	// ErrTooLarge is returned when a payload does not fit the format's u32 sizes.
	ErrTooLarge = errors.New("persist: payload too large")
)

// Header describes a persisted index.
type Header struct {
	Version          uint16
	Kind             index.Kind
	Compression      Compression
	UncompressedSize uint32
	CompressedSize   uint32
}

func (h Header) encode() []byte {
	buf := make([]byte, headerSize)
	copy(buf, Magic)
	binary.LittleEndian.PutUint16(buf[4:], h.Version)
	buf[6] = uint8(h.Kind)
	buf[7] = uint8(h.Compression)
	binary.LittleEndian.PutUint32(buf[8:], h.UncompressedSize)
	binary.LittleEndian.PutUint32(buf[12:], h.CompressedSize)
	return buf
}

// ReadHeader reads and validates the header at the start of r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, fmt.Errorf("%w: short header", ErrCorrupted)
		}
		return Header{}, err
	}
	if string(buf[:4]) != Magic {
		return Header{}, ErrBadMagic
	}
	h := Header{
		Version:          binary.LittleEndian.Uint16(buf[4:]),
		Kind:             index.Kind(buf[6]),
		Compression:      Compression(buf[7]),
		UncompressedSize: binary.LittleEndian.Uint32(buf[8:]),
		CompressedSize:   binary.LittleEndian.Uint32(buf[12:]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.Compression > CompressionZSTD {
		return Header{}, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(h.Compression))
	}
	return h, nil
}

// Options configures Save.
type Options struct {
	Compression Compression
}

// DefaultOptions stores payloads uncompressed.
var DefaultOptions = Options{
	Compression: CompressionNone,
}

// WithCompression sets the payload compression. Save falls back to
// CompressionNone when c does not shrink the payload.
func WithCompression(c Compression) func(o *Options) {
	return func(o *Options) {
		o.Compression = c
	}
}

// Save writes idx to w.
func Save(w io.Writer, idx index.Index, optFns ...func(o *Options)) error {
	if idx == nil {
		return errors.New("persist: nil index")
	}
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	payload, err := idx.MarshalBinary()
	if err != nil {
		return fmt.Errorf("persist: marshal %s: %w", idx.Kind(), err)
	}
	size, err := conv.IntToUint32(len(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTooLarge, err)
	}

	data, applied, err := compress(payload, opts.Compression)
	if err != nil {
		return fmt.Errorf("persist: compress: %w", err)
	}

	h := Header{
		Version:          Version,
		Kind:             idx.Kind(),
		Compression:      applied,
		UncompressedSize: size,
		CompressedSize:   uint32(len(data)),
	}
	if _, err := w.Write(h.encode()); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Load reads an index written by Save. The index kind is taken from the
// header.
func Load(r io.Reader) (index.Index, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	// Read at most CompressedSize bytes; a short read means truncation.
	data, err := io.ReadAll(io.LimitReader(r, int64(h.CompressedSize)))
	if err != nil {
		return nil, err
	}
	if len(data) != int(h.CompressedSize) {
		return nil, fmt.Errorf("%w: payload truncated: got %d bytes, want %d", ErrCorrupted, len(data), h.CompressedSize)
	}

	payload, err := decompress(data, h.Compression, int(h.UncompressedSize))
	if err != nil {
		return nil, err
	}

	idx, err := index.UnmarshalBinary(h.Kind, payload)
	if err != nil {
		return nil, fmt.Errorf("persist: load %s: %w", h.Kind, err)
	}
	return idx, nil
}

// Marshal returns idx in the persisted format.
func Marshal(idx index.Index, optFns ...func(o *Options)) ([]byte, error) {
	var buf bytes.Buffer
	if err := Save(&buf, idx, optFns...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes an index from data. Trailing bytes are rejected.
func Unmarshal(data []byte) (index.Index, error) {
	r := bytes.NewReader(data)
	idx, err := Load(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupted, r.Len())
	}
	return idx, nil
}

// SaveFile writes idx to filename atomically: the data goes to a temporary
// file in the same directory which then replaces filename.
func SaveFile(filename string, idx index.Index, optFns ...func(o *Options)) error {
	dir := filepath.Dir(filename)

	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := Save(buf, idx, optFns...); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// LoadFile reads an index written by SaveFile.
func LoadFile(filename string) (index.Index, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(bufio.NewReaderSize(f, 256*1024))
}
