package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"portops/internal/model"
)

const (
	maxIdempotencyKeyLength = 255
	idempotencyKeyField     = "Idempotency-Key"
)

func validateIdempotencyKey(key string) error {
	if len(key) > maxIdempotencyKeyLength {
		return model.NewValidationError(
			model.ErrCodeValidation,
			idempotencyKeyField,
			fmt.Sprintf("must be at most %d characters", maxIdempotencyKeyLength),
		)
	}
	return nil
}

// requestFingerprint hashes a normalized request. Prices are rendered with two
// decimals so "10" and "10.00" fingerprint the same.
func requestFingerprint(req *model.OrderRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%q|%q|%q\n", req.CustomerName, deref(req.CustomerEmail), deref(req.Notes))
	for _, item := range req.Items {
		fmt.Fprintf(h, "%q|%d|%s\n", item.ProductName, item.Quantity, item.UnitPrice.StringFixed(2))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// checkReplay rejects a repeated key whose request differs from the one that
// created the order. Orders stored without a fingerprint always match.
func checkReplay(existing *model.Order, fingerprint string) error {
	if existing.RequestHash != nil && *existing.RequestHash != fingerprint {
		return model.NewValidationError(
			model.ErrCodeIdempotencyReuse,
			idempotencyKeyField,
			"was already used for a different order",
		)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
