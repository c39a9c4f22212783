package guard

import "fmt"

// ProgramError is the failure signal a guard returns. The numeric values
// follow the ledger's builtin program error numbering so a generated program
// can return them unchanged.
type ProgramError uint32

const (
	MissingSignature   ProgramError = 8
	IllegalOwner       ProgramError = 18
	ArithmeticOverflow ProgramError = 24
	// KeyMismatch has no builtin number; it is the first custom error code.
	KeyMismatch ProgramError = 0x1000
)

var (
	ErrMissingSignature   error = MissingSignature
	ErrIllegalOwner       error = IllegalOwner
	ErrArithmeticOverflow error = ArithmeticOverflow
	ErrKeyMismatch        error = KeyMismatch
)

func (e ProgramError) Error() string {
	switch e {
	case MissingSignature:
		return "missing required signature"
	case IllegalOwner:
		return "account owner does not match expected program"
	case ArithmeticOverflow:
		return "arithmetic overflowed"
	case KeyMismatch:
		return "account key mismatch"
	default:
		return fmt.Sprintf("custom program error: %#x", uint32(e))
	}
}

// Code returns the numeric error code.
func (e ProgramError) Code() uint32 {
	return uint32(e)
}
