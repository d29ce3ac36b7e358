package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studioclock/integration/internal/pkg/model"
)

func TestProjectNilEntry(t *testing.T) {
	assert.Equal(t, Projection{}, Project(nil, time.Now()))
}

func TestProjectRequiresDecrease(t *testing.T) {
	now := time.Now()
	entry := &model.RemainingEntry{Seconds: 30, UpdatedAt: now, Delta: 0}
	assert.Equal(t, Projection{}, Project(entry, now))

	entry.Delta = 5
	assert.Equal(t, Projection{}, Project(entry, now))
}

func TestProjectStaleness(t *testing.T) {
	base := time.Now()
	entry := &model.RemainingEntry{Seconds: 30, UpdatedAt: base, Delta: -1}

	fresh := Project(entry, base.Add(3*time.Second))
	assert.True(t, fresh.Active)

	stale := Project(entry, base.Add(3*time.Second+time.Millisecond))
	assert.Equal(t, Projection{}, stale)
}

func TestProjectExtrapolates(t *testing.T) {
	base := time.Now()
	entry := &model.RemainingEntry{Seconds: 30, UpdatedAt: base, Delta: -1}

	got := Project(entry, base.Add(1200*time.Millisecond))
	assert.True(t, got.Active)
	assert.Equal(t, 28, got.Seconds)
}

func TestProjectClampsAtZero(t *testing.T) {
	base := time.Now()
	entry := &model.RemainingEntry{Seconds: 1, UpdatedAt: base, Delta: -1}

	got := Project(entry, base.Add(2500*time.Millisecond))
	assert.True(t, got.Active)
	assert.Equal(t, 0, got.Seconds)
}
