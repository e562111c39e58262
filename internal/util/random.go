// Package util provides utility functions for the ChatCart application.
package util

import (
	"math/rand/v2"
	"strings"
)

// OrderIDPrefix is the fixed prefix of every generated order ID. Order IDs are
// human-presentable tokens; user-entered lookups round-trip through
// NormalizeOrderID before comparison.
const OrderIDPrefix = "ORD-"

// OrderIDDigits is the number of digits in the numeric suffix of an order ID.
const OrderIDDigits = 6

// GenerateOrderID generates a human-presentable order ID in the format
// "ORD-123456". Uniqueness is enforced by the store, which retries on collision.
func GenerateOrderID() string {
	return OrderIDPrefix + GenerateRandomDigits(OrderIDDigits)
}

// NormalizeOrderID canonicalizes a user-entered order ID by trimming whitespace
// and upper-casing, so " ord-1234 " resolves the same as "ORD-1234".
func NormalizeOrderID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// GenerateRandomDigits generates a random numeric string of the specified length.
// Uses math/rand/v2 for non-cryptographic ID generation.
func GenerateRandomDigits(length int) string {
	if length <= 0 {
		return ""
	}

	const digits = "0123456789"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(digits[rand.IntN(len(digits))])
	}

	return builder.String()
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.IntN(16)])
	}

	return builder.String()
}
