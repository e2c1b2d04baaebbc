// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrNotFound is returned by Get and Stat when no entry exists for the
// requested key. Check with errors.Is.
var ErrNotFound = errors.New("blob not found")

// Store is a handle on a shared container file. It keeps an in-memory
// key index that is refreshed from the file under the lock on every
// operation, so entries appended by other processes are always
// visible.
//
// A Store is safe for concurrent use from multiple goroutines, and the
// underlying container is safe for concurrent use from multiple
// processes: all access is serialized by the container's lock file.
type Store struct {
	path        string
	file        *os.File
	lock        *fileLock
	compression *CompressionTag // nil selects per-dtype

	mu      sync.Mutex
	index   map[Key]*entry
	order   []Key // insertion order, for deterministic listing
	scanned int64 // offset just past the last indexed entry
}

type options struct {
	lockPath    string
	compression *CompressionTag
}

// Option configures a Store at Open time.
type Option func(*options)

// WithLockFile overrides the lock file path. The default is the
// container path with a ".lock" suffix. Every process sharing the
// container must use the same lock file.
func WithLockFile(path string) Option {
	return func(o *options) { o.lockPath = path }
}

// WithCompression fixes the compression algorithm for all entries
// written through this Store. Without it, the algorithm is selected
// per payload from its element type. Reads are unaffected: each entry
// records the tag it was written with.
func WithCompression(tag CompressionTag) Option {
	return func(o *options) { o.compression = &tag }
}

// Open opens the container file at path, creating it (with a fresh
// header) if it does not exist, and indexes its entries.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{lockPath: path + ".lock"}
	for _, opt := range opts {
		opt(&o)
	}

	lock, err := newFileLock(o.lockPath)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		lock.close()
		return nil, fmt.Errorf("opening container %s: %w", path, err)
	}

	s := &Store{
		path:        path,
		file:        file,
		lock:        lock,
		compression: o.compression,
		index:       make(map[Key]*entry),
		scanned:     containerHeaderSize,
	}

	// Initialize or verify the header under the exclusive lock: two
	// processes may race to create the same container.
	if err := lock.lockExclusive(); err != nil {
		s.closeFiles()
		return nil, err
	}
	defer lock.unlock()

	info, err := file.Stat()
	if err != nil {
		s.closeFiles()
		return nil, fmt.Errorf("stating container %s: %w", path, err)
	}

	if info.Size() == 0 {
		if err := writeContainerHeader(file); err != nil {
			s.closeFiles()
			return nil, err
		}
		return s, nil
	}

	if err := checkContainerHeader(file); err != nil {
		s.closeFiles()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := s.refresh(); err != nil {
		s.closeFiles()
		return nil, err
	}
	return s, nil
}

// Put stores a payload and returns its content key. If an entry with
// the same key already exists — written by this process or any other —
// nothing is written and the existing key is returned. The existence
// check and the write happen under one exclusive lock acquisition, so
// concurrent Puts of identical payloads perform at most one physical
// write.
func (s *Store) Put(p Payload) (Key, error) {
	if err := p.Validate(); err != nil {
		return Key{}, err
	}

	key := HashPayload(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.lockExclusive(); err != nil {
		return Key{}, err
	}
	defer s.lock.unlock()

	// Pick up entries appended by other processes since the last
	// operation; one of them may already hold this key.
	if err := s.refresh(); err != nil {
		return Key{}, err
	}
	if _, exists := s.index[key]; exists {
		return key, nil
	}

	tag := compressionForDType(p.DType)
	if s.compression != nil {
		tag = *s.compression
	}
	stored, actualTag, err := compressWithFallback(p.Data, tag)
	if err != nil {
		return Key{}, fmt.Errorf("compressing payload: %w", err)
	}
	if err := checkEntrySize(int64(len(stored))); err != nil {
		return Key{}, err
	}

	buffer := encodeEntry(key, p, actualTag, stored)

	// Drop any torn tail left by an interrupted writer, then append.
	// The entry becomes visible to scanners only once its bytes are
	// fully on disk, so a reader never observes a partial entry.
	if err := s.file.Truncate(s.scanned); err != nil {
		return Key{}, fmt.Errorf("truncating torn tail: %w", err)
	}
	if _, err := s.file.WriteAt(buffer, s.scanned); err != nil {
		return Key{}, fmt.Errorf("appending entry: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return Key{}, fmt.Errorf("syncing container: %w", err)
	}

	e := &entry{
		key:              key,
		compression:      actualTag,
		dtype:            p.DType,
		shape:            append([]int(nil), p.Shape...),
		storedSize:       uint32(len(stored)),
		uncompressedSize: uint32(len(p.Data)),
		payloadOffset:    s.scanned + int64(len(buffer)-len(stored)),
	}
	s.addEntry(e)
	return key, nil
}

// Get reads back the payload stored under key. Returns an error
// wrapping ErrNotFound if no such entry exists.
func (s *Store) Get(key Key) (Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.lockShared(); err != nil {
		return Payload{}, err
	}
	defer s.lock.unlock()

	if err := s.refresh(); err != nil {
		return Payload{}, err
	}

	e, exists := s.index[key]
	if !exists {
		return Payload{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	stored := make([]byte, e.storedSize)
	if _, err := s.file.ReadAt(stored, e.payloadOffset); err != nil {
		return Payload{}, fmt.Errorf("reading entry %s: %w", key, err)
	}

	data, err := decompress(stored, e.compression, int(e.uncompressedSize))
	if err != nil {
		return Payload{}, fmt.Errorf("entry %s: %w", key, err)
	}

	return Payload{
		DType: e.dtype,
		Shape: append([]int(nil), e.shape...),
		Data:  data,
	}, nil
}

// EntryInfo describes a stored entry without its payload bytes.
type EntryInfo struct {
	Key         Key
	DType       string
	Shape       []int
	Compression CompressionTag
	StoredSize  int64
	Size        int64
}

// Stat returns metadata for the entry under key without reading its
// payload. Returns an error wrapping ErrNotFound if absent.
func (s *Store) Stat(key Key) (EntryInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.lockShared(); err != nil {
		return EntryInfo{}, err
	}
	defer s.lock.unlock()

	if err := s.refresh(); err != nil {
		return EntryInfo{}, err
	}

	e, exists := s.index[key]
	if !exists {
		return EntryInfo{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return EntryInfo{
		Key:         e.key,
		DType:       e.dtype,
		Shape:       append([]int(nil), e.shape...),
		Compression: e.compression,
		StoredSize:  int64(e.storedSize),
		Size:        int64(e.uncompressedSize),
	}, nil
}

// Contains reports whether an entry exists for key.
func (s *Store) Contains(key Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.lockShared(); err != nil {
		return false, err
	}
	defer s.lock.unlock()

	if err := s.refresh(); err != nil {
		return false, err
	}
	_, exists := s.index[key]
	return exists, nil
}

// Keys returns all stored keys in container order (the order entries
// were appended).
func (s *Store) Keys() ([]Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.lockShared(); err != nil {
		return nil, err
	}
	defer s.lock.unlock()

	if err := s.refresh(); err != nil {
		return nil, err
	}
	return append([]Key(nil), s.order...), nil
}

// Len returns the number of stored entries.
func (s *Store) Len() (int, error) {
	keys, err := s.Keys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// ContainerPath returns the path of the underlying container file.
// Serializers attach it to envelopes as a file dependency so callers
// know which file must travel with the record.
func (s *Store) ContainerPath() string {
	return s.path
}

// LockPath returns the path of the lock file coordinating access to
// this container.
func (s *Store) LockPath() string {
	return s.lock.path
}

// Close releases the lock file and closes the container. The Store
// must not be used afterwards.
func (s *Store) Close() error {
	return s.closeFiles()
}

func (s *Store) closeFiles() error {
	fileErr := s.file.Close()
	lockErr := s.lock.close()
	if fileErr != nil {
		return fileErr
	}
	return lockErr
}

// refresh scans entries appended since the last scan and merges them
// into the index. Caller must hold s.mu and the file lock.
func (s *Store) refresh() error {
	entries, validEnd, err := scanEntries(s.file, s.scanned)
	if err != nil {
		return fmt.Errorf("scanning container %s: %w", s.path, err)
	}
	for _, e := range entries {
		s.addEntry(e)
	}
	s.scanned = validEnd
	return nil
}

// addEntry records an entry in the index. First write wins: a
// duplicate key (possible only if a foreign writer ignored the dedup
// protocol) keeps the earlier entry.
func (s *Store) addEntry(e *entry) {
	if _, exists := s.index[e.key]; exists {
		if e.end() > s.scanned {
			s.scanned = e.end()
		}
		return
	}
	s.index[e.key] = e
	s.order = append(s.order, e.key)
	if e.end() > s.scanned {
		s.scanned = e.end()
	}
}
