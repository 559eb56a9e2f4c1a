package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrBadFormat         = errors.New("bad index file")
)

// fourcc of a flat inner-product index file.
var flatIPMagic = [4]byte{'I', 'x', 'F', 'I'}

// FlatIP is an exhaustive inner-product index. Rows keep insertion order.
type FlatIP struct {
	dim  int
	data []float32
}

func NewFlatIP(dim int) (*FlatIP, error) {
	if dim < 1 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidArgument, dim)
	}
	return &FlatIP{dim: dim}, nil
}

func (f *FlatIP) Dim() int { return f.dim }

// NTotal returns the number of stored rows.
func (f *FlatIP) NTotal() int { return len(f.data) / f.dim }

// Add appends rows. Nothing is added when any row has the wrong width.
func (f *FlatIP) Add(rows [][]float32) error {
	for i, row := range rows {
		if len(row) != f.dim {
			return fmt.Errorf("%w: row %d has %d values, index has %d", ErrDimensionMismatch, i, len(row), f.dim)
		}
	}
	f.data = append(f.data, flatten(rows, f.dim)...)
	return nil
}

// Reconstruct returns a copy of row i.
func (f *FlatIP) Reconstruct(i int) ([]float32, error) {
	if i < 0 || i >= f.NTotal() {
		return nil, fmt.Errorf("%w: row %d out of range [0, %d)", ErrInvalidArgument, i, f.NTotal())
	}
	row := make([]float32, f.dim)
	copy(row, f.data[i*f.dim:(i+1)*f.dim])
	return row, nil
}

// Write stores the index at path, replacing any existing file.
func (f *FlatIP) Write(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	w := bufio.NewWriter(file)
	if err := f.encode(w); err != nil {
		file.Close()
		return fmt.Errorf("write index file: %w", err)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("write index file: %w", err)
	}
	return file.Close()
}

func (f *FlatIP) encode(w io.Writer) error {
	if _, err := w.Write(flatIPMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(f.dim)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int64(f.NTotal())); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, f.data)
}

// ReadIndex loads an index written by Write.
func ReadIndex(path string) (*FlatIP, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index file: %w", err)
	}

	r := bufio.NewReader(file)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: %s: short header", ErrBadFormat, path)
	}
	if magic != flatIPMagic {
		return nil, fmt.Errorf("%w: %s: unknown fourcc %q", ErrBadFormat, path, magic[:])
	}

	var dim int32
	var count int64
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("%w: %s: short header", ErrBadFormat, path)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: %s: short header", ErrBadFormat, path)
	}
	if dim < 1 || count < 0 {
		return nil, fmt.Errorf("%w: %s: dimension %d, count %d", ErrBadFormat, path, dim, count)
	}

	const headerSize = 4 + 4 + 8
	payload := info.Size() - headerSize
	if count > math.MaxInt64/4/int64(dim) || payload != count*int64(dim)*4 {
		return nil, fmt.Errorf("%w: %s: %d payload bytes for %d rows of %d", ErrBadFormat, path, payload, count, dim)
	}

	data := make([]float32, count*int64(dim))
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadFormat, path, err)
	}
	return &FlatIP{dim: int(dim), data: data}, nil
}

func flatten(rows [][]float32, dim int) []float32 {
	out := make([]float32, 0, len(rows)*dim)
	for _, row := range rows {
		out = append(out, row...)
	}
	return out
}
