package pairing

import "errors"

// ErrInvalidRequest is returned when an INITIATE request fails basic shape
// validation (salt length != 32).
var ErrInvalidRequest = errors.New("pairing: invalid request")
