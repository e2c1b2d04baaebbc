// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileLock is a cross-process advisory lock on a sibling lock file.
// Every process touching the same container uses the same lock file,
// so the lock linearizes check-then-write sequences across processes.
// Within a process the Store additionally serializes access with a
// mutex; flock is per file description, not per goroutine.
type fileLock struct {
	path string
	file *os.File
}

// newFileLock opens (creating if needed) the lock file at path. The
// file itself stays empty; only its flock state matters.
func newFileLock(path string) (*fileLock, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}
	return &fileLock{path: path, file: file}, nil
}

// lockExclusive blocks until the exclusive lock is held. Used for the
// full existence-check-through-write span of Put.
func (l *fileLock) lockExclusive() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("locking %s: %w", l.path, err)
	}
	return nil
}

// lockShared blocks until a shared lock is held. Used for reads, which
// may proceed concurrently with each other but not with a writer.
func (l *fileLock) lockShared() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_SH); err != nil {
		return fmt.Errorf("locking %s (shared): %w", l.path, err)
	}
	return nil
}

// unlock releases the lock.
func (l *fileLock) unlock() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("unlocking %s: %w", l.path, err)
	}
	return nil
}

// close releases the lock (closing the file description drops any
// flock held through it) and closes the lock file.
func (l *fileLock) close() error {
	return l.file.Close()
}
