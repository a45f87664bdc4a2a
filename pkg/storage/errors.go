package storage

import "errors"

// Domain errors for storage operations. Implementations wrap the
// underlying cause with errors.Join so callers can classify failures
// while retaining detail for logging.
var (
	ErrStorageUnavailable = errors.New("storage: unavailable")
	ErrWriteFailed        = errors.New("storage: write failed")
	ErrReadFailed         = errors.New("storage: read failed")
	ErrInvalidKey         = errors.New("storage: invalid key")
	ErrInvalidKeyMaterial = errors.New("storage: invalid key material")
	ErrDecryptionFailed   = errors.New("storage: decryption failed")
)
