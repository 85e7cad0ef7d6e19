package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicboard/clinicboard/internal/clinic"
)

func newTestCache(t *testing.T) (*SnapshotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewWithClient(rdb, time.Minute, nil), mr
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	appts := []clinic.Appointment{
		{ID: "a1", PatientID: "p1", Status: clinic.AppointmentScheduled},
	}
	c.Set(ctx, "appointments", appts)

	var got []clinic.Appointment
	require.True(t, c.Get(ctx, "appointments", &got))
	assert.Equal(t, appts, got)
}

func TestCacheMiss(t *testing.T) {
	c, _ := newTestCache(t)

	var got []clinic.Appointment
	assert.False(t, c.Get(context.Background(), "appointments", &got))
}

func TestCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "plans", []clinic.TreatmentPlan{{ID: "t1"}})
	mr.FastForward(2 * time.Minute)

	var got []clinic.TreatmentPlan
	assert.False(t, c.Get(ctx, "plans", &got), "entries expire with the TTL")
}

func TestCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "appointments", []clinic.Appointment{{ID: "a1"}})
	c.Set(ctx, "cost:e1", clinic.CostRecord{ID: "e1", TotalCost: 100})
	c.Invalidate(ctx, "appointments", "cost:e1")

	var appts []clinic.Appointment
	var cost clinic.CostRecord
	assert.False(t, c.Get(ctx, "appointments", &appts))
	assert.False(t, c.Get(ctx, "cost:e1", &cost))
}

func TestCacheCorruptEntryDropped(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(keyPrefix+"appointments", "{not json"))

	var got []clinic.Appointment
	assert.False(t, c.Get(ctx, "appointments", &got))
	assert.False(t, mr.Exists(keyPrefix+"appointments"), "corrupt entries are deleted on read")
}

func TestCacheNilSafe(t *testing.T) {
	var c *SnapshotCache
	ctx := context.Background()

	c.Set(ctx, "appointments", []clinic.Appointment{{ID: "a1"}})
	c.Invalidate(ctx, "appointments")

	var got []clinic.Appointment
	assert.False(t, c.Get(ctx, "appointments", &got), "a disabled cache is always a miss")
}

func TestNew_DisabledWithoutAddr(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	assert.Nil(t, c)
}
