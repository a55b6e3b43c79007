// Package token generates the opaque random tokens used for email
// verification, password resets, invitations, and API sessions.
package token

import (
	"crypto/rand"
	"math/big"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Standard lengths used across the service.
const (
	VerificationLength = 64
	InvitationLength   = 64
	ResetLength        = 64
	SessionLength      = 60
	PasswordLength     = 12
)

// New returns a cryptographically random alphanumeric string of length n.
func New(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the system entropy source is
			// broken, at which point nothing else is trustworthy either.
			panic(err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out)
}
