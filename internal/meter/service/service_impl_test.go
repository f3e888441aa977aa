package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/woyofal/internal/config"
	customerdomain "github.com/smallbiznis/woyofal/internal/customer/domain"
	customerrepo "github.com/smallbiznis/woyofal/internal/customer/repository"
	customerservice "github.com/smallbiznis/woyofal/internal/customer/service"
	meterdomain "github.com/smallbiznis/woyofal/internal/meter/domain"
	"github.com/smallbiznis/woyofal/internal/meter/repository"
	"github.com/smallbiznis/woyofal/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	meters    meterdomain.Service
	customers customerdomain.Service
	client    customerdomain.Customer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t)
	node := dbtest.Node(t)

	customers := customerservice.New(customerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  customerrepo.Provide(),
	})
	client, err := customers.Create(context.Background(), customerdomain.CreateCustomerRequest{
		Nom:    "FALL",
		Prenom: "Fatou",
	})
	require.NoError(t, err)

	meters := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Policy:       config.NewStaticPurchasePolicyHolder(config.DefaultPurchasePolicy()),
		Repo:         repository.Provide(),
		CustomerRepo: customerrepo.Provide(),
	})
	return fixture{meters: meters, customers: customers, client: client}
}

func TestRegisterAndLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	meter, err := f.meters.Register(ctx, meterdomain.RegisterRequest{
		Numero:   "9876-5432-1",
		ClientID: f.client.ID.String(),
		Adresse:  "Avenue Blaise Diagne, HLM",
		Quartier: "HLM",
	})
	require.NoError(t, err)
	assert.Equal(t, "987654321", meter.Numero)
	assert.Equal(t, "Dakar", meter.Ville)
	assert.Equal(t, meterdomain.TypePrepaid, meter.Type)

	found, err := f.meters.Lookup(ctx, "987 654 321")
	require.NoError(t, err)
	assert.Equal(t, meter.ID, found.Meter.ID)
	assert.Equal(t, f.client.ID, found.Client.ID)
	assert.Equal(t, "Fatou FALL", found.Client.DisplayName())
	require.NotNil(t, found.Meter.Adresse)
	assert.Equal(t, "Avenue Blaise Diagne, HLM", *found.Meter.Adresse)
}

func TestRegisterRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.meters.Register(ctx, meterdomain.RegisterRequest{Numero: "1234567", ClientID: f.client.ID.String()})
	assert.ErrorIs(t, err, meterdomain.ErrInvalidNumero)

	_, err = f.meters.Register(ctx, meterdomain.RegisterRequest{Numero: "1234567890123", ClientID: f.client.ID.String()})
	assert.ErrorIs(t, err, meterdomain.ErrInvalidNumero)

	_, err = f.meters.Register(ctx, meterdomain.RegisterRequest{Numero: "12345678", ClientID: "x"})
	assert.ErrorIs(t, err, meterdomain.ErrInvalidClient)

	_, err = f.meters.Register(ctx, meterdomain.RegisterRequest{Numero: "12345678", ClientID: "42"})
	assert.ErrorIs(t, err, meterdomain.ErrInvalidClient)

	_, err = f.meters.Register(ctx, meterdomain.RegisterRequest{Numero: "12345678", ClientID: f.client.ID.String()})
	require.NoError(t, err)
	_, err = f.meters.Register(ctx, meterdomain.RegisterRequest{Numero: "12345678", ClientID: f.client.ID.String()})
	assert.ErrorIs(t, err, meterdomain.ErrAlreadyExists)
}

func TestLookupStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.meters.Lookup(ctx, "99999999")
	assert.ErrorIs(t, err, meterdomain.ErrNotFound)

	_, err = f.meters.Lookup(ctx, "--")
	assert.ErrorIs(t, err, meterdomain.ErrInvalidNumero)

	_, err = f.meters.Register(ctx, meterdomain.RegisterRequest{Numero: "147258369", ClientID: f.client.ID.String()})
	require.NoError(t, err)

	require.NoError(t, f.meters.SetStatus(ctx, "147258369", meterdomain.StatusInactive))
	_, err = f.meters.Lookup(ctx, "147258369")
	assert.ErrorIs(t, err, meterdomain.ErrInactive)

	require.NoError(t, f.meters.SetStatus(ctx, "147258369", meterdomain.StatusActive))
	_, err = f.meters.Lookup(ctx, "147258369")
	assert.NoError(t, err)

	assert.ErrorIs(t, f.meters.SetStatus(ctx, "147258369", "broken"), meterdomain.ErrInvalidStatus)
	assert.ErrorIs(t, f.meters.SetStatus(ctx, "11111111", meterdomain.StatusInactive), meterdomain.ErrNotFound)
}
