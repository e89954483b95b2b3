package users

import "errors"

// ErrInvalidTier is returned when a plan change names a tier that cannot be
// stored on a user record.
var ErrInvalidTier = errors.New("invalid plan tier")
