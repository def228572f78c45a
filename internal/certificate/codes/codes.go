// Package codes generates public certificate identifiers.
//
// The generator never consults storage; uniqueness is enforced by the
// certificate store's constraints, and the issuance service retries
// generation a bounded number of times on collision.
package codes

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	// verificationAlphabet keeps codes unambiguous to read aloud and safe in
	// URLs. 12 characters over 36 symbols is roughly 62 bits of entropy.
	verificationAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	verificationLength   = 12

	numberSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	numberSuffixLength   = 6
)

// Pair holds the two identifiers a certificate carries.
type Pair struct {
	CertificateNumber string
	VerificationCode  string
}

// Generate produces a certificate number and verification code. The number
// embeds the issuance instant in unix milliseconds, so it sorts roughly by
// issue time; the verification code is pure random.
func Generate(now time.Time) (Pair, error) {
	suffix, err := randomString(numberSuffixAlphabet, numberSuffixLength)
	if err != nil {
		return Pair{}, fmt.Errorf("generate certificate number: %w", err)
	}
	code, err := randomString(verificationAlphabet, verificationLength)
	if err != nil {
		return Pair{}, fmt.Errorf("generate verification code: %w", err)
	}
	return Pair{
		CertificateNumber: fmt.Sprintf("CERT-%d-%s", now.UnixMilli(), suffix),
		VerificationCode:  code,
	}, nil
}

func randomString(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
