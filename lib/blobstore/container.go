// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Container format constants.
const (
	// containerVersion is the format version byte embedded in the
	// file magic. Version 1 is the initial format.
	containerVersion = 1

	// containerHeaderSize is the fixed file header: the 8-byte magic.
	containerHeaderSize = 8

	// entryHeaderSize is the fixed part of each entry header:
	// 4-byte entry magic + 32-byte key + 1-byte compression tag
	// + 1-byte dtype length + 2-byte shape rank + 4-byte stored size
	// + 4-byte uncompressed size. The variable part (dtype bytes and
	// 8-byte dimensions) follows, then the payload bytes.
	entryHeaderSize = 48

	// maxDType is the maximum element-type string length (the header
	// stores it in one byte).
	maxDType = 255

	// maxRank is the maximum number of shape dimensions (the header
	// stores the rank in two bytes).
	maxRank = 65535
)

// containerMagic is the 8-byte container file signature.
var containerMagic = [8]byte{'W', 'P', 'B', 'L', 'O', 'B', containerVersion, 0}

// entryMagic marks the start of each entry. A scan that does not find
// it where an entry should begin treats the rest of the file as a torn
// tail from an interrupted append.
var entryMagic = [4]byte{'W', 'P', 'E', 'N'}

// Payload is a typed, shaped byte buffer — the unit of storage. DType
// names the element type ("int64", "float32", ...), Shape gives the
// dimensions, and Data holds the raw little-endian bytes. The store
// treats DType as an opaque tag: it participates in the key and is
// returned on Get, but the store never interprets element values.
type Payload struct {
	DType string
	Shape []int
	Data  []byte
}

// Validate checks the structural limits the container format imposes.
func (p Payload) Validate() error {
	if p.DType == "" {
		return fmt.Errorf("payload has empty dtype")
	}
	if len(p.DType) > maxDType {
		return fmt.Errorf("payload dtype is %d bytes, maximum %d", len(p.DType), maxDType)
	}
	if len(p.Shape) > maxRank {
		return fmt.Errorf("payload rank is %d, maximum %d", len(p.Shape), maxRank)
	}
	for i, dim := range p.Shape {
		if dim < 0 {
			return fmt.Errorf("payload dimension %d is negative (%d)", i, dim)
		}
	}
	if err := checkEntrySize(int64(len(p.Data))); err != nil {
		return err
	}
	return nil
}

// checkEntrySize rejects byte lengths the 32-bit header size fields
// cannot represent. A longer payload would have its length truncated
// modulo 2^32 in the entry header, misaligning every scan offset after
// it, so oversized payloads fail at Put time instead. Applies to both
// the raw payload and its stored (possibly compressed) form.
func checkEntrySize(size int64) error {
	if size > math.MaxUint32 {
		return fmt.Errorf("entry is %d bytes, maximum %d", size, uint32(math.MaxUint32))
	}
	return nil
}

// entry describes one stored payload inside the container file.
type entry struct {
	key              Key
	compression      CompressionTag
	dtype            string
	shape            []int
	storedSize       uint32
	uncompressedSize uint32

	// payloadOffset is the absolute file offset of the stored bytes.
	payloadOffset int64
}

// end returns the absolute file offset just past this entry.
func (e *entry) end() int64 {
	return e.payloadOffset + int64(e.storedSize)
}

// writeContainerHeader writes the file magic for a fresh container.
func writeContainerHeader(w io.Writer) error {
	if _, err := w.Write(containerMagic[:]); err != nil {
		return fmt.Errorf("writing container magic: %w", err)
	}
	return nil
}

// checkContainerHeader verifies the file magic of an existing
// container.
func checkContainerHeader(f *os.File) error {
	var magic [containerHeaderSize]byte
	if _, err := f.ReadAt(magic[:], 0); err != nil {
		return fmt.Errorf("reading container magic: %w", err)
	}
	if magic != containerMagic {
		return fmt.Errorf("not a blob container (bad magic %q)", magic[:6])
	}
	return nil
}

// encodeEntry serializes an entry header plus stored payload bytes.
// The stored bytes are the possibly-compressed form; uncompressedSize
// records the original payload length.
func encodeEntry(key Key, p Payload, tag CompressionTag, stored []byte) []byte {
	variableSize := len(p.DType) + 8*len(p.Shape)
	buffer := make([]byte, entryHeaderSize+variableSize+len(stored))

	copy(buffer[0:4], entryMagic[:])
	copy(buffer[4:36], key[:])
	buffer[36] = byte(tag)
	buffer[37] = byte(len(p.DType))
	binary.LittleEndian.PutUint16(buffer[38:40], uint16(len(p.Shape)))
	binary.LittleEndian.PutUint32(buffer[40:44], uint32(len(stored)))
	binary.LittleEndian.PutUint32(buffer[44:48], uint32(len(p.Data)))

	offset := entryHeaderSize
	copy(buffer[offset:], p.DType)
	offset += len(p.DType)
	for _, dim := range p.Shape {
		binary.LittleEndian.PutUint64(buffer[offset:], uint64(dim))
		offset += 8
	}
	copy(buffer[offset:], stored)

	return buffer
}

// readEntry decodes the entry starting at the given offset. Returns
// io.ErrUnexpectedEOF if the file ends before the entry is complete —
// the scanner treats that as a torn tail, not corruption.
func readEntry(f *os.File, offset int64, fileSize int64) (*entry, error) {
	if offset+entryHeaderSize > fileSize {
		return nil, io.ErrUnexpectedEOF
	}

	var header [entryHeaderSize]byte
	if _, err := f.ReadAt(header[:], offset); err != nil {
		return nil, fmt.Errorf("reading entry header at %d: %w", offset, err)
	}

	if [4]byte(header[0:4]) != entryMagic {
		return nil, fmt.Errorf("bad entry magic at offset %d", offset)
	}

	e := &entry{
		compression:      CompressionTag(header[36]),
		storedSize:       binary.LittleEndian.Uint32(header[40:44]),
		uncompressedSize: binary.LittleEndian.Uint32(header[44:48]),
	}
	copy(e.key[:], header[4:36])

	dtypeLength := int(header[37])
	rank := int(binary.LittleEndian.Uint16(header[38:40]))
	variableSize := dtypeLength + 8*rank

	if offset+entryHeaderSize+int64(variableSize)+int64(e.storedSize) > fileSize {
		return nil, io.ErrUnexpectedEOF
	}

	variable := make([]byte, variableSize)
	if _, err := f.ReadAt(variable, offset+entryHeaderSize); err != nil {
		return nil, fmt.Errorf("reading entry metadata at %d: %w", offset, err)
	}

	e.dtype = string(variable[:dtypeLength])
	e.shape = make([]int, rank)
	for i := 0; i < rank; i++ {
		e.shape[i] = int(binary.LittleEndian.Uint64(variable[dtypeLength+8*i:]))
	}

	e.payloadOffset = offset + entryHeaderSize + int64(variableSize)
	return e, nil
}

// scanEntries reads entry headers from the given offset to the end of
// the file, returning the entries found and the offset just past the
// last complete entry. A truncated trailing entry (torn by a crashed
// writer) is not an error: the scan stops at the last valid offset and
// the next append overwrites the tail.
func scanEntries(f *os.File, from int64) ([]*entry, int64, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stating container: %w", err)
	}
	fileSize := info.Size()

	var entries []*entry
	offset := from
	for offset < fileSize {
		e, err := readEntry(f, offset, fileSize)
		if err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
		offset = e.end()
	}

	return entries, offset, nil
}
