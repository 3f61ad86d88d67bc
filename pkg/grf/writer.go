package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Faultbox/objexport/pkg/encoding"
)

// Writer builds a version 0x200 GRF archive. Entries are compressed as they
// are added; the file table and header are written by Close.
type Writer struct {
	file    *os.File
	entries []Entry
	names   map[string]bool
	offset  uint32
	closed  bool
}

// Create creates or truncates path and returns a Writer for it.
func Create(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	// Header placeholder, filled in by Close.
	if _, err := file.Write(make([]byte, headerSize)); err != nil {
		file.Close()
		return nil, fmt.Errorf("writing header: %w", err)
	}

	return &Writer{file: file, names: make(map[string]bool)}, nil
}

// Add stores data under name. Names use '/' or '\' separators and are
// stored with backslashes in EUC-KR, like the client's own archives.
func (w *Writer) Add(name string, data []byte) error {
	if w.closed {
		return errors.New("grf: add to closed writer")
	}
	key := normalizePath(name)
	if key == "" {
		return errors.New("grf: empty entry name")
	}
	if w.names[key] {
		return fmt.Errorf("grf: duplicate entry %s", name)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("compressing %s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compressing %s: %w", name, err)
	}

	stored := compressed.Bytes()
	// Equal sizes mean "stored" to the reader.
	if len(stored) == len(data) {
		stored = data
	}

	alignedSize := uint32(len(stored))
	if alignedSize%8 != 0 {
		alignedSize += 8 - alignedSize%8
	}

	buf := make([]byte, alignedSize)
	copy(buf, stored)
	if _, err := w.file.Write(buf); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}

	w.entries = append(w.entries, Entry{
		Name:             strings.ReplaceAll(name, "/", "\\"),
		CompressedSize:   uint32(len(stored)),
		AlignedSize:      alignedSize,
		UncompressedSize: uint32(len(data)),
		Flags:            flagFile,
		Offset:           w.offset,
	})
	w.names[key] = true
	w.offset += alignedSize
	return nil
}

// Close writes the file table and header and closes the file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.finish(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func (w *Writer) finish() error {
	var table bytes.Buffer
	for _, e := range w.entries {
		table.Write(encoding.UTF8ToEUCKR(e.Name))
		table.WriteByte(0)
		binary.Write(&table, binary.LittleEndian, e.CompressedSize)
		binary.Write(&table, binary.LittleEndian, e.AlignedSize)
		binary.Write(&table, binary.LittleEndian, e.UncompressedSize)
		table.WriteByte(e.Flags)
		binary.Write(&table, binary.LittleEndian, e.Offset)
	}

	var compressedTable bytes.Buffer
	zw := zlib.NewWriter(&compressedTable)
	if _, err := zw.Write(table.Bytes()); err != nil {
		return fmt.Errorf("compressing file table: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compressing file table: %w", err)
	}

	var sizes [8]byte
	binary.LittleEndian.PutUint32(sizes[0:], uint32(compressedTable.Len()))
	binary.LittleEndian.PutUint32(sizes[4:], uint32(table.Len()))
	if _, err := w.file.Write(sizes[:]); err != nil {
		return fmt.Errorf("writing file table: %w", err)
	}
	if _, err := w.file.Write(compressedTable.Bytes()); err != nil {
		return fmt.Errorf("writing file table: %w", err)
	}

	// FileCount is stored as count + seed + 7 with a zero seed.
	header := Header{
		TableOffset: w.offset,
		FileCount:   uint32(len(w.entries)) + 7,
		Version:     version200,
	}
	copy(header.Magic[:], grfMagic)

	var hdr bytes.Buffer
	binary.Write(&hdr, binary.LittleEndian, &header)
	if _, err := w.file.WriteAt(hdr.Bytes(), 0); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return nil
}
