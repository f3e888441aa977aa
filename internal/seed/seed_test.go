package seed_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/woyofal/internal/customer/domain"
	meterdomain "github.com/smallbiznis/woyofal/internal/meter/domain"
	meterrepo "github.com/smallbiznis/woyofal/internal/meter/repository"
	"github.com/smallbiznis/woyofal/internal/seed"
	"github.com/smallbiznis/woyofal/internal/tariff/allocator"
	tariffdomain "github.com/smallbiznis/woyofal/internal/tariff/domain"
	tariffrepo "github.com/smallbiznis/woyofal/internal/tariff/repository"
	"github.com/smallbiznis/woyofal/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureTariffScheduleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	node := dbtest.Node(t)

	created, err := seed.EnsureTariffSchedule(ctx, db, node)
	require.NoError(t, err)
	assert.Equal(t, 4, created)

	created, err = seed.EnsureTariffSchedule(ctx, db, node)
	require.NoError(t, err)
	assert.Zero(t, created)

	tiers, err := tariffrepo.Provide().ListActive(ctx, db)
	require.NoError(t, err)
	require.Len(t, tiers, 4)
	assert.Equal(t, "tranche-1-social", tiers[0].Code)
	assert.True(t, tiers[0].SeuilMin.IsZero())
	assert.True(t, tiers[1].PrixKwh.Equal(decimal.NewFromInt(102)))
	assert.False(t, tiers[3].SeuilMax.Valid)

	_, err = allocator.NormalizeSchedule(tariffdomain.ToAllocatorTiers(tiers))
	assert.NoError(t, err)
}

func TestEnsureDemoData(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	node := dbtest.Node(t)

	created, err := seed.EnsureDemoData(ctx, db, node)
	require.NoError(t, err)
	assert.Equal(t, 8, created)

	created, err = seed.EnsureDemoData(ctx, db, node)
	require.NoError(t, err)
	assert.Zero(t, created)

	found, err := meterrepo.Provide().FindWithClient(ctx, db, "123456789")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Amadou DIOP", found.Client.DisplayName())
	assert.Equal(t, "Dakar", found.Meter.Ville)
	assert.True(t, found.Meter.IsActive())
	assert.Equal(t, meterdomain.TypePrepaid, found.Meter.Type)
	require.NotNil(t, found.Client.Telephone)
	assert.Equal(t, "771234567", *found.Client.Telephone)
	require.NotNil(t, found.Client.Email)
	assert.Equal(t, "amadou.diop@example.com", *found.Client.Email)

	var clients int64
	require.NoError(t, db.Model(&customerdomain.Customer{}).Count(&clients).Error)
	assert.EqualValues(t, 8, clients)
}

func TestEnsureDemoDataReusesCustomerByPhone(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	node := dbtest.Node(t)

	_, err := seed.EnsureDemoData(ctx, db, node)
	require.NoError(t, err)
	require.NoError(t, db.Exec("DELETE FROM compteurs WHERE numero = ?", "123456789").Error)

	created, err := seed.EnsureDemoData(ctx, db, node)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	var clients int64
	require.NoError(t, db.Model(&customerdomain.Customer{}).Count(&clients).Error)
	assert.EqualValues(t, 8, clients)
}

func TestEnsureRequiresHandles(t *testing.T) {
	_, err := seed.EnsureTariffSchedule(context.Background(), nil, nil)
	assert.Error(t, err)
	_, err = seed.EnsureDemoData(context.Background(), dbtest.Open(t), nil)
	assert.Error(t, err)
}
