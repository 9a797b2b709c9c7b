package container

import "errors"

// Error kinds: NotFound for absent paths/members, TooLarge for files or
// trees over their declared bound, Corrupted for anything that fails an
// integrity check, InvalidArgument for a malformed path expression.
// Underlying filesystem errors are returned unwrapped (they already carry
// their own type, typically *os.PathError).
var (
	ErrNotFound        = errors.New("container: not found")
	ErrTooLarge        = errors.New("container: exceeds maximum size")
	ErrCorrupted       = errors.New("container: corrupted")
	ErrInvalidArgument = errors.New("container: invalid argument")
)
