package mock

import "errors"

// ErrDuplicateEmail mimics the unique index violation of the admins table.
var ErrDuplicateEmail = errors.New("UNIQUE constraint failed: admins.email")
