package registry

import "errors"

var (
	ErrProgramNotFound  = errors.New("program not found")
	ErrTagNotFound      = errors.New("tag not found")
	ErrDigestNotFound   = errors.New("digest not found")
	ErrInvalidReference = errors.New("invalid reference format")
	ErrBytecodeNotFound = errors.New("bytecode not found")
)
