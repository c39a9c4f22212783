package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
)

// Size is the length in bytes of every identity.
const Size = 32

var (
	ErrInvalidLength   = errors.New("invalid identity length")
	ErrInvalidEncoding = errors.New("invalid identity encoding")
)

// Identity is the fixed-length public identifier of a program or account on
// the ledger. Its textual form is base58.
type Identity [Size]byte

// Zero is the all-zero identity. It is never produced by New or Derive.
var Zero Identity

// New returns a fresh random identity, the public half of a newly generated
// ed25519 key pair. The private half is discarded.
func New() (Identity, error) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Zero, fmt.Errorf("failed to generate identity: %w", err)
	}
	var id Identity
	copy(id[:], pub)
	return id, nil
}

// Derive returns an identity that is a pure function of content.
func Derive(content []byte) Identity {
	return Identity(blake3.Sum256(content))
}

// FromBytes copies b into an identity. b must be exactly Size bytes long.
func FromBytes(b []byte) (Identity, error) {
	if len(b) != Size {
		return Zero, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidLength, len(b), Size)
	}
	var id Identity
	copy(id[:], b)
	return id, nil
}

// Parse decodes the base58 form of an identity.
func Parse(s string) (Identity, error) {
	if s == "" {
		return Zero, fmt.Errorf("%w: empty string", ErrInvalidEncoding)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return FromBytes(b)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Identity {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id Identity) String() string {
	return base58.Encode(id[:])
}

func (id Identity) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, id[:])
	return b
}

func (id Identity) IsZero() bool {
	return id == Zero
}

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id Identity) MarshalYAML() (interface{}, error) {
	return id.String(), nil
}

func (id *Identity) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return id.UnmarshalText([]byte(s))
}
