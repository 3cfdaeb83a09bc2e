package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
)

const (
	cardNumberPrefix  = "4111"
	cardNumberLength  = 16
	cvvLength         = 3
	accountNumberPref = "PW"
	accountDigits     = 8
)

// RandomSecretGenerator implements ports.SecretGenerator on top of crypto/rand.
type RandomSecretGenerator struct {
	rand io.Reader
}

// NewRandomSecretGenerator creates a generator reading from crypto/rand.
func NewRandomSecretGenerator() *RandomSecretGenerator {
	return &RandomSecretGenerator{rand: rand.Reader}
}

// CardNumber returns a 16-digit PAN: fixed prefix, random body, Luhn check digit.
func (g *RandomSecretGenerator) CardNumber() (string, error) {
	body, err := g.digits(cardNumberLength - len(cardNumberPrefix) - 1)
	if err != nil {
		return "", fmt.Errorf("card number: %w", err)
	}
	partial := cardNumberPrefix + body
	return partial + string(rune('0'+luhnCheckDigit(partial))), nil
}

// CVV returns a 3-digit verification code.
func (g *RandomSecretGenerator) CVV() (string, error) {
	cvv, err := g.digits(cvvLength)
	if err != nil {
		return "", fmt.Errorf("cvv: %w", err)
	}
	return cvv, nil
}

// AccountNumber returns "PW" followed by eight digits, the first of which is non-zero.
func (g *RandomSecretGenerator) AccountNumber() (string, error) {
	for {
		digits, err := g.digits(accountDigits)
		if err != nil {
			return "", fmt.Errorf("account number: %w", err)
		}
		if digits[0] != '0' {
			return accountNumberPref + digits, nil
		}
	}
}

// digits returns n uniformly distributed decimal digits.
// Bytes >= 250 are rejected to avoid modulo bias.
func (g *RandomSecretGenerator) digits(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	buf := make([]byte, n)
	for sb.Len() < n {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			sb.WriteByte('0' + b%10)
			if sb.Len() == n {
				break
			}
		}
	}
	return sb.String(), nil
}

// luhnCheckDigit computes the digit that makes partial+digit pass the Luhn check.
func luhnCheckDigit(partial string) int {
	sum := 0
	double := true
	for i := len(partial) - 1; i >= 0; i-- {
		d := int(partial[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}

// luhnValid reports whether number passes the Luhn check.
func luhnValid(number string) bool {
	if len(number) < 2 {
		return false
	}
	return luhnCheckDigit(number[:len(number)-1]) == int(number[len(number)-1]-'0')
}
