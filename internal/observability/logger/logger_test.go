package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/recipeverse/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsRequestAndUser(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithUserID(ctx, "u1")
	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "u1", fields["user_id"])
	_, hasTrace := fields["trace_id"]
	assert.False(t, hasTrace)
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("SELECT * FROM entitlements"))
	assert.Equal(t, "UPDATE", operationFromSQL("  update entitlements SET credits = 1"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}
