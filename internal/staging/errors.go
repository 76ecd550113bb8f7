package staging

import (
	"errors"
	"syscall"
)

// ErrTooLarge is wrapped by a StorageError when an upload exceeds the size limit.
var ErrTooLarge = errors.New("upload exceeds size limit")

// StorageError reports a failure to write, read or remove a staged upload.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path == "" {
		return "storage error: " + e.Op + ": " + e.Err.Error()
	}
	return "storage error: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsNoSpace reports whether err was caused by an exhausted disk or quota.
func IsNoSpace(err error) bool {
	return errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT)
}
