package mongostore

import "errors"

var ErrStorage = errors.New("mongostore: operation failed")
