package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/smallbiznis/woyofal/internal/format"
)

const rechargeCodeDigits = 20

var (
	referenceSpace = big.NewInt(1_000_000)
	digitSpace     = big.NewInt(10)
)

// IdentifierGenerator produces purchase reference and recharge code
// candidates. Uniqueness is checked by the caller.
type IdentifierGenerator interface {
	Reference(issuedAt time.Time) (string, error)
	RechargeCode() (string, error)
}

type randomIdentifiers struct {
	template string
}

func NewIdentifierGenerator() IdentifierGenerator {
	return randomIdentifiers{template: format.DefaultReferenceTemplate}
}

func (g randomIdentifiers) Reference(issuedAt time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, referenceSpace)
	if err != nil {
		return "", err
	}
	return format.FormatReference(g.template, issuedAt, n.Int64())
}

func (g randomIdentifiers) RechargeCode() (string, error) {
	var b strings.Builder
	b.Grow(rechargeCodeDigits)
	for i := 0; i < rechargeCodeDigits; i++ {
		n, err := rand.Int(rand.Reader, digitSpace)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
