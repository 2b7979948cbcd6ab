// SPDX-License-Identifier: MIT

package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, ItemIDFromContext(ctx))
	assert.Empty(t, JobIDFromContext(ctx))

	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithItemID(ctx, "item-1")
	ctx = ContextWithJobID(ctx, "job-1")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "item-1", ItemIDFromContext(ctx))
	assert.Equal(t, "job-1", JobIDFromContext(ctx))
}

func TestNilContextIsSafe(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	assert.Empty(t, RequestIDFromContext(nil))
	ctx := ContextWithRequestID(nil, "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
}

func TestWithComponent(t *testing.T) {
	logger := WithComponent("test")
	// the child logger must be usable without further configuration
	logger.Debug().Msg("component logger works")
}

func TestWithContextEnrichment(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-9")
	logger := WithContext(ctx, Base())
	logger.Debug().Msg("enriched logger works")
}
