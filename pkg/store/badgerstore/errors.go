package badgerstore

import "errors"

var (
	ErrOpen    = errors.New("badgerstore: failed to open database")
	ErrStorage = errors.New("badgerstore: operation failed")
	ErrCodec   = errors.New("badgerstore: failed to encode or decode value")
)
