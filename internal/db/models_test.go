package db

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPlanSetMonthlyPrice(t *testing.T) {
	p := &Plan{}

	p.SetMonthlyPrice(decimal.NewFromInt(29))
	assert.True(t, p.PriceYearly.Equal(decimal.NewFromInt(290)))

	p.SetMonthlyPrice(decimal.NewFromFloat(12.50))
	assert.True(t, p.PriceYearly.Equal(decimal.NewFromInt(125)))
}

func TestPlanDisplayName(t *testing.T) {
	p := &Plan{Name: "Standard", MaxUsers: 25, MaxStorageGB: 10}
	assert.Equal(t, "Standard (25 users / 10GB)", p.DisplayName())
}

func TestTenantSetStartDate(t *testing.T) {
	tn := &Tenant{}
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tn.SetStartDate(start)
	assert.Equal(t, start.AddDate(0, 0, 14), tn.TrialEndDate)

	// Recomputed on every write of the start date.
	later := start.AddDate(0, 1, 0)
	tn.SetStartDate(later)
	assert.Equal(t, later.AddDate(0, 0, 14), tn.TrialEndDate)
}

func TestTenantSetDomainSlug(t *testing.T) {
	tn := &Tenant{}

	tn.SetDomainSlug("royal")
	assert.Equal(t, "royal.dc-edux.com", tn.FullDomain)

	tn.SetDomainSlug("")
	assert.Empty(t, tn.FullDomain)
}

func TestRecomputeUsagePercents(t *testing.T) {
	t.Run("storage at half capacity", func(t *testing.T) {
		tn := &Tenant{CurrentStorageGB: 2.5, CurrentUsers: 5}
		tn.RecomputeUsagePercents(&Plan{MaxUsers: 10, MaxStorageGB: 5.0})

		assert.Equal(t, 50.0, tn.StorageUsagePercent)
		assert.Equal(t, 50.0, tn.UsersUsagePercent)
	})

	t.Run("zero limits never divide", func(t *testing.T) {
		tn := &Tenant{CurrentStorageGB: 2.5, CurrentUsers: 5}
		tn.RecomputeUsagePercents(&Plan{})

		assert.Equal(t, 0.0, tn.StorageUsagePercent)
		assert.Equal(t, 0.0, tn.UsersUsagePercent)
	})

	t.Run("over-quota exceeds one hundred", func(t *testing.T) {
		tn := &Tenant{CurrentUsers: 15}
		tn.RecomputeUsagePercents(&Plan{MaxUsers: 10, MaxStorageGB: 5.0})

		assert.Equal(t, 150.0, tn.UsersUsagePercent)
	})
}

func TestTenantOnline(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("never checked", func(t *testing.T) {
		tn := &Tenant{}
		assert.False(t, tn.Online(now))
	})

	t.Run("recent check counts as online", func(t *testing.T) {
		at := now.Add(-4 * time.Minute)
		tn := &Tenant{LastHealthCheckAt: &at}
		assert.True(t, tn.Online(now))
	})

	t.Run("stale check counts as offline", func(t *testing.T) {
		at := now.Add(-6 * time.Minute)
		tn := &Tenant{LastHealthCheckAt: &at}
		assert.False(t, tn.Online(now))
	})

	t.Run("exactly at the window edge is offline", func(t *testing.T) {
		at := now.Add(-OnlineWindow)
		tn := &Tenant{LastHealthCheckAt: &at}
		assert.False(t, tn.Online(now))
	})
}

func TestTenantProbeable(t *testing.T) {
	for status, want := range map[TenantStatus]bool{
		StatusDraft:     false,
		StatusTrial:     true,
		StatusActive:    true,
		StatusSuspended: false,
		StatusCancelled: false,
	} {
		tn := &Tenant{Status: status}
		assert.Equal(t, want, tn.Probeable(), "status %s", status)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusSuspended.Terminal())
}
