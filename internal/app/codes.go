package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
)

// CodeChecker answers whether a confirmation code is already taken for a
// tenant. When called with a transactional context the check shares the
// booking-insert transaction, so check and insert cannot race.
type CodeChecker interface {
	CodeExists(ctx context.Context, tenantID, code string) (bool, error)
}

const (
	defaultCodePrefix   = "BK-"
	defaultCodeDigits   = 6
	defaultCodeAttempts = 10
)

// CodeGenerator produces short confirmation codes, unique per tenant, with a
// bounded number of redraws on collision. The storage-layer uniqueness
// constraint remains the final backstop.
type CodeGenerator struct {
	checker  CodeChecker
	prefix   string
	digits   int
	attempts int
	randInt  func(max int64) (int64, error)
}

type CodeGeneratorOption func(*CodeGenerator)

// WithCodeAttempts overrides the collision-redraw cap.
func WithCodeAttempts(n int) CodeGeneratorOption {
	return func(g *CodeGenerator) {
		if n > 0 {
			g.attempts = n
		}
	}
}

// WithCodeRand replaces the random source, for deterministic tests.
func WithCodeRand(fn func(max int64) (int64, error)) CodeGeneratorOption {
	return func(g *CodeGenerator) {
		g.randInt = fn
	}
}

func NewCodeGenerator(checker CodeChecker, opts ...CodeGeneratorOption) *CodeGenerator {
	g := &CodeGenerator{
		checker:  checker,
		prefix:   defaultCodePrefix,
		digits:   defaultCodeDigits,
		attempts: defaultCodeAttempts,
		randInt:  cryptoRandInt,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate draws codes until one is free for the tenant or the attempt cap is
// reached, in which case it returns ErrCodeSpaceExhausted.
func (g *CodeGenerator) Generate(ctx context.Context, tenantID string) (string, error) {
	space := int64(1)
	for i := 0; i < g.digits; i++ {
		space *= 10
	}

	for attempt := 0; attempt < g.attempts; attempt++ {
		n, err := g.randInt(space)
		if err != nil {
			return "", fmt.Errorf("draw code: %w", err)
		}
		code := fmt.Sprintf("%s%0*d", g.prefix, g.digits, n)

		taken, err := g.checker.CodeExists(ctx, tenantID, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", domain.ErrCodeSpaceExhausted
}

func cryptoRandInt(max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}
