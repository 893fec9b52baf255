// Package errkind holds error sentinels shared by the leaf packages and the
// domain model, so both can classify failures the same way.
package errkind

import "errors"

// Validation marks malformed input.
var Validation = errors.New("validation error")
