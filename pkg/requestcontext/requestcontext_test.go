package requestcontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Equal(t, "req-1", RequestID(WithRequestID(ctx, "req-1")))
}

func TestPrincipal(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{Subject: "ops@example.com", Roles: []string{"approver"}})
	p, ok := PrincipalFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "ops@example.com", p.Subject)
	assert.True(t, p.HasRole("approver"))
	assert.False(t, p.HasRole("admin"))
}
