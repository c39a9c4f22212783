// Package guard holds the precondition checks an instruction handler runs
// against untrusted accounts before touching any state. Every guard is a pure
// function with a single failure path, so handlers call them first and return
// the error unchanged.
package guard

import "github.com/forgestack/forge/pkg/identity"

// AccountInfo is the deserialized view of an account passed to an
// instruction.
type AccountInfo struct {
	Key        identity.Identity
	Owner      identity.Identity
	IsSigner   bool
	IsWritable bool
	Lamports   uint64
	Data       []byte
}

// RequireSigner fails when the account did not sign the transaction. It looks
// at nothing but the signer flag.
func RequireSigner(account *AccountInfo) error {
	if !account.IsSigner {
		return ErrMissingSignature
	}
	return nil
}

// AssertOwnedBy fails when the account is not owned by expectedOwner. Only the
// owning program can write an account's data, so this must pass before the
// data layout is trusted.
func AssertOwnedBy(account *AccountInfo, expectedOwner identity.Identity) error {
	if account.Owner != expectedOwner {
		return ErrIllegalOwner
	}
	return nil
}

// AssertKeysEqual returns err when a and b differ. A nil err falls back to
// ErrKeyMismatch.
func AssertKeysEqual(a, b identity.Identity, err error) error {
	if a == b {
		return nil
	}
	if err == nil {
		return ErrKeyMismatch
	}
	return err
}
