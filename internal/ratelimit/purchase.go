package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/woyofal/internal/config"
)

const (
	keyPurchaseMeter = "woyofal:achat:compteur:%s"
	maxKeyDigits     = 32
)

// PurchaseLimiter throttles purchases per meter number. The budget is read
// from the purchase policy on every call so hot reloads apply immediately.
type PurchaseLimiter struct {
	bucket *TokenBucket
	policy *config.PurchasePolicyHolder
}

func NewPurchaseLimiter(bucket *TokenBucket, policy *config.PurchasePolicyHolder) *PurchaseLimiter {
	if bucket == nil {
		return nil
	}
	return &PurchaseLimiter{bucket: bucket, policy: policy}
}

func (l *PurchaseLimiter) Enabled() bool {
	return l != nil && l.bucket != nil && l.perMinute() > 0
}

// AllowMeter always allows when the limiter is disabled.
func (l *PurchaseLimiter) AllowMeter(ctx context.Context, numero string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	perMinute := l.perMinute()
	return l.bucket.Allow(ctx, MeterKey(numero), float64(perMinute)/60, perMinute)
}

func (l *PurchaseLimiter) perMinute() int {
	if l.policy == nil {
		return config.DefaultPurchasePolicy().RateLimitPerMinute
	}
	return l.policy.Get().RateLimitPerMinute
}

// MeterKey keys the bucket on the digits of the meter number, so spacing or
// dashes around the same meter share one budget.
func MeterKey(numero string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, numero)
	if digits == "" {
		digits = "unknown"
	}
	if len(digits) > maxKeyDigits {
		digits = digits[:maxKeyDigits]
	}
	return fmt.Sprintf(keyPurchaseMeter, digits)
}
