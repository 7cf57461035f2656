// Package clock abstracts time for components that sleep or timestamp.
package clock

import (
	"context"
	"time"
)

// Clock supplies the current time and context-aware sleeps.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}
