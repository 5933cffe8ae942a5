package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Unambiguous alphabet: no 0/O or 1/I, codes get typed by hand
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateReferralCode creates a random referral code in the format "INV-XXXXXX"
func GenerateReferralCode() (string, error) {
	code := make([]byte, 6)
	for i := range code {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		code[i] = codeAlphabet[idx.Int64()]
	}

	return fmt.Sprintf("INV-%s", string(code)), nil
}
