package auth

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strings"
)

const (
	DefaultCodeLength     = 6
	DefaultCodeDigitBound = 10
)

// CodeGenerator produces numeric confirmation codes. Each position is an
// independent uniform draw from [0, DigitBound).
type CodeGenerator struct {
	Length     int
	DigitBound int
	rand       io.Reader
}

// NewCodeGenerator 创建确认码生成器，非法参数回退为默认值。
func NewCodeGenerator(length, digitBound int) *CodeGenerator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	if digitBound <= 1 || digitBound > 10 {
		digitBound = DefaultCodeDigitBound
	}
	return &CodeGenerator{Length: length, DigitBound: digitBound, rand: rand.Reader}
}

// Generate returns a fresh code.
func (g *CodeGenerator) Generate() (string, error) {
	if g == nil {
		return "", errors.New("code generator is nil")
	}
	bound := big.NewInt(int64(g.DigitBound))
	var b strings.Builder
	b.Grow(g.Length)
	for i := 0; i < g.Length; i++ {
		n, err := rand.Int(g.rand, bound)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
