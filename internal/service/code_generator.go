package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeAlphabet leaves out characters that are easy to misread: 0/O and 1/I
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const maxCodeAttempts = 10

// randomCode returns n characters drawn uniformly from codeAlphabet
func randomCode(n int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[idx.Int64()]
	}
	return string(b), nil
}

// seasonCode formats a season code as XXXX-XXXX
func seasonCode() (string, error) {
	raw, err := randomCode(8)
	if err != nil {
		return "", err
	}
	return raw[:4] + "-" + raw[4:], nil
}

// locationCode returns a 16 character location code
func locationCode() (string, error) {
	return randomCode(16)
}

// uniqueCode draws codes from gen until exists reports a free one
func uniqueCode(ctx context.Context, gen func() (string, error), exists func(context.Context, string) (bool, error)) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := gen()
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: no free code after %d attempts", ErrConflict, maxCodeAttempts)
}
