package contxt

import (
	"context"
	"os"
	"time"
)

// NewContext returns a context detached from the caller that expires after
// timeout. Publishing triggered by a feed frame must not be cancelled when
// the frame handler returns, so callers pass these instead of the loop ctx.
func NewContext(timeout time.Duration) context.Context {
	if os.Getenv("CONTEXT_TEST") != "" {
		return context.Background()
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx
}
