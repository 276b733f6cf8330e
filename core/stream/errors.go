package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 对象不存在
	ErrNotFound = errors.New("media object not found")
	// ErrRangeNotSatisfiable covers both malformed and out-of-bounds byte ranges.
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("storage error")
)

// RangeError carries the object size so the 416 response can advertise it.
type RangeError struct {
	Header string
	Size   int64
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range %q not satisfiable for size %d: %s", e.Header, e.Size, e.Reason)
}

func (e *RangeError) Is(target error) bool { return target == ErrRangeNotSatisfiable }

// StorageError is an I/O failure talking to the object store.
type StorageError struct {
	Op  string // stat, open, read
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
