package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatusService_Check(t *testing.T) {
	svc := NewStatusService(zap.NewNop())
	svc.Register("database", HealthFunc(func(ctx context.Context) error { return nil }))
	svc.Register("ml_service", HealthFunc(func(ctx context.Context) error { return errors.New("connection refused") }))

	st := svc.Check(context.Background())

	assert.False(t, st.Healthy)
	require.Len(t, st.Dependencies, 2)
	assert.Equal(t, DependencyStatus{Name: "database", Healthy: true}, st.Dependencies[0])
	assert.Equal(t, DependencyStatus{Name: "ml_service", Healthy: false, Error: "connection refused"}, st.Dependencies[1])
}

func TestStatusService_NoDependencies(t *testing.T) {
	st := NewStatusService(zap.NewNop()).Check(context.Background())

	assert.True(t, st.Healthy)
	assert.Empty(t, st.Dependencies)
}

func TestStatusService_RegisterReplaces(t *testing.T) {
	svc := NewStatusService(zap.NewNop())
	svc.Register("redis", HealthFunc(func(ctx context.Context) error { return errors.New("down") }))
	svc.Register("redis", HealthFunc(func(ctx context.Context) error { return nil }))

	st := svc.Check(context.Background())
	assert.True(t, st.Healthy)
	assert.Len(t, st.Dependencies, 1)
}
