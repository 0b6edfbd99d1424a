package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmbud/backend/internal/domain"
)

func TestPrefillSlot_TakeIsAtomic(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer client.Close()

	slot := NewPrefillSlot(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, slot.Put(ctx, "s1", domain.DefaultSoilPrefill()))
	assert.True(t, mr.Exists(prefillPrefix+"s1"))

	first, err := slot.Take(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 6.5, *first.PH)
	assert.False(t, mr.Exists(prefillPrefix+"s1"))

	second, err := slot.Take(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestPrefillSlot_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer client.Close()

	slot := NewPrefillSlot(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, slot.Put(ctx, "s1", domain.DefaultSoilPrefill()))
	mr.FastForward(2 * time.Minute)

	got, err := slot.Take(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWizardStore_LoadSaveDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer client.Close()

	store := NewWizardStore(client, time.Hour)
	ctx := context.Background()

	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	state := domain.NewWizardState("s1")
	state.Step = domain.StepLocation
	state.Soil = &domain.SoilClassification{SoilType: "Laterite", Nutrients: domain.Nutrients{Nitrogen: 70}}
	state.Location.Weather = &domain.WeatherReading{Temperature: 22.5}
	require.NoError(t, store.Save(ctx, state))
	assert.Equal(t, time.Hour, mr.TTL(wizardPrefix+"s1"))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepLocation, got.Step)
	assert.Equal(t, "Laterite", got.Soil.SoilType)
	assert.Equal(t, 22.5, got.Location.Weather.Temperature)
	assert.True(t, got.CanApply())

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(addr, "", 0)
	assert.Error(t, err)
}
