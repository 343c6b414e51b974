package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Binary artifact layout: magic (4 bytes), version (uint32), dim (uint32),
// row count (uint64), then rows*dim little-endian float32 values.
const (
	codecVersion = 1

	magicIndex  = "RDXI"
	magicMatrix = "RDXM"

	// maxFrameElements bounds a frame's float payload (8 GiB). The header is
	// untrusted input; a corrupt row count must fail the read, not size an
	// allocation.
	maxFrameElements = 1 << 31
)

// WriteTo serializes the index.
func (f *Flat) WriteTo(w io.Writer) error {
	return writeFrame(w, magicIndex, f.m)
}

// ReadFlat deserializes an index written by WriteTo.
func ReadFlat(r io.Reader) (*Flat, error) {
	m, err := readFrame(r, magicIndex)
	if err != nil {
		return nil, err
	}
	return &Flat{m: m}, nil
}

// WriteTo serializes the matrix.
func (m *Matrix) WriteTo(w io.Writer) error {
	return writeFrame(w, magicMatrix, m)
}

// ReadMatrix deserializes a matrix written by WriteTo.
func ReadMatrix(r io.Reader) (*Matrix, error) {
	return readFrame(r, magicMatrix)
}

func writeFrame(w io.Writer, magic string, m *Matrix) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(magic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], codecVersion)
	binary.LittleEndian.PutUint32(header[4:8], uint32(m.dim))
	binary.LittleEndian.PutUint64(header[8:16], uint64(m.Rows()))
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	const chunk = 8192
	buf := make([]byte, chunk*4)
	for off := 0; off < len(m.data); off += chunk {
		end := off + chunk
		if end > len(m.data) {
			end = len(m.data)
		}
		n := 0
		for _, v := range m.data[off:end] {
			binary.LittleEndian.PutUint32(buf[n:], math.Float32bits(v))
			n += 4
		}
		if _, err := bw.Write(buf[:n]); err != nil {
			return fmt.Errorf("write vector data: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func readFrame(r io.Reader, magic string) (*Matrix, error) {
	br := bufio.NewReader(r)

	head := make([]byte, 4+16)
	if _, err := io.ReadFull(br, head); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(head[:4]) != magic {
		return nil, fmt.Errorf("bad magic %q, expected %q", head[:4], magic)
	}
	if v := binary.LittleEndian.Uint32(head[4:8]); v != codecVersion {
		return nil, fmt.Errorf("unsupported codec version %d", v)
	}
	dim := int(binary.LittleEndian.Uint32(head[8:12]))
	rows := int(binary.LittleEndian.Uint64(head[12:20]))
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	if rows < 0 || dim > maxFrameElements || rows > maxFrameElements/dim {
		return nil, fmt.Errorf("implausible frame size: %d rows of dimension %d", rows, dim)
	}

	m := &Matrix{dim: dim, data: make([]float32, rows*dim)}
	const chunk = 8192
	raw := make([]byte, chunk*4)
	for off := 0; off < len(m.data); off += chunk {
		end := off + chunk
		if end > len(m.data) {
			end = len(m.data)
		}
		n := (end - off) * 4
		if _, err := io.ReadFull(br, raw[:n]); err != nil {
			return nil, fmt.Errorf("read vector data at row %d/%d: %w", off/dim, rows, err)
		}
		for i := off; i < end; i++ {
			m.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[(i-off)*4:]))
		}
	}

	return m, nil
}
