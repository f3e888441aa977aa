package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/woyofal/internal/seed"
	"github.com/smallbiznis/woyofal/internal/tariff/allocator"
	tariffdomain "github.com/smallbiznis/woyofal/internal/tariff/domain"
	"github.com/smallbiznis/woyofal/internal/tariff/repository"
	"github.com/smallbiznis/woyofal/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (tariffdomain.Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	_, err := seed.EnsureTariffSchedule(context.Background(), db, dbtest.Node(t))
	require.NoError(t, err)

	svc := New(Params{DB: db, Log: zap.NewNop(), Repo: repository.Provide()})
	return svc, db
}

func TestScheduleLoadsActiveTiersInOrder(t *testing.T) {
	svc, _ := newTestService(t)

	tiers, err := svc.Schedule(context.Background())
	require.NoError(t, err)
	require.Len(t, tiers, 4)
	assert.Equal(t, 1, tiers[0].Order)
	assert.True(t, tiers[0].UnitPrice.Equal(decimal.NewFromInt(91)))
	assert.True(t, tiers[3].Open())

	result, err := allocator.Allocate(decimal.NewFromInt(15000), decimal.Zero, tiers)
	require.NoError(t, err)
	assert.Equal(t, "163.235", result.EnergyKWh.StringFixed(3))
}

func TestSummariesDescribeTiers(t *testing.T) {
	svc, _ := newTestService(t)

	summaries, err := svc.Summaries(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 4)

	assert.Equal(t, "Tranche 1 - Social", summaries[0].Nom)
	assert.Equal(t, "De 0 à 150 kWh", summaries[0].Description)
	assert.Equal(t, "91 FCFA/kWh", summaries[0].Prix)
	assert.Equal(t, "À partir de 400 kWh", summaries[3].Description)
	assert.Equal(t, "132 FCFA/kWh", summaries[3].Prix)
}

func TestDeactivateRefusesToBreakTheSchedule(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, code := range []string{"tranche-1-social", "tranche-2-normal", "tranche-4-eleve"} {
		err := svc.Deactivate(ctx, code)
		assert.ErrorIs(t, err, tariffdomain.ErrScheduleWouldBreak, code)
	}

	tiers, err := svc.Schedule(ctx)
	require.NoError(t, err)
	assert.Len(t, tiers, 4)

	summaries, err := svc.Summaries(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 4)
}

func TestDeactivateRepairsDuplicateOpenTier(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	extra := &tariffdomain.TariffTier{
		ID:        snowflake.ID(9001),
		Nom:       "Tranche 5 - Test",
		Code:      "tranche-5-test",
		SeuilMin:  decimal.NewFromInt(400),
		PrixKwh:   decimal.NewFromInt(140),
		Ordre:     5,
		Status:    tariffdomain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repository.Provide().Insert(ctx, db, extra))

	_, err := svc.Schedule(ctx)
	require.ErrorIs(t, err, allocator.ErrConfiguration)

	require.NoError(t, svc.Deactivate(ctx, "tranche-5-test"))
	// already inactive
	require.NoError(t, svc.Deactivate(ctx, "tranche-5-test"))

	tiers, err := svc.Schedule(ctx)
	require.NoError(t, err)
	assert.Len(t, tiers, 4)
}

func TestDeactivateUnknownCode(t *testing.T) {
	svc, _ := newTestService(t)

	assert.ErrorIs(t, svc.Deactivate(context.Background(), " "), tariffdomain.ErrInvalidCode)
	assert.ErrorIs(t, svc.Deactivate(context.Background(), "tranche-9"), tariffdomain.ErrNotFound)
}

func TestScheduleFailsWithoutTiers(t *testing.T) {
	db := dbtest.Open(t)
	svc := New(Params{DB: db, Log: zap.NewNop(), Repo: repository.Provide()})

	_, err := svc.Schedule(context.Background())
	assert.ErrorIs(t, err, allocator.ErrConfiguration)
}
