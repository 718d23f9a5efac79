// Package services holds the business rules of the chore tracker. Every operation that
// touches family-owned data takes the caller's verified claims explicitly.
package services

import "time"

const defaultContextTimeout = 10 * time.Second

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultContextTimeout
	}
	return d
}
