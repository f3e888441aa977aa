package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/woyofal/internal/clock"
	"github.com/smallbiznis/woyofal/internal/config"
	consumptiondomain "github.com/smallbiznis/woyofal/internal/consumption/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  consumptiondomain.Repository
}

type Tracker struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	loc   *time.Location
	genID *snowflake.Node
	repo  consumptiondomain.Repository
}

func New(p Params) consumptiondomain.Tracker {
	return &Tracker{
		db:    p.DB,
		log:   p.Log.Named("consumption.tracker"),
		clock: p.Clock,
		loc:   p.Cfg.Location(),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (t *Tracker) CurrentPeriod() consumptiondomain.Period {
	return consumptiondomain.PeriodOf(t.clock.Now(), t.loc)
}

// Current ensures the row of the current period exists before locking it.
// Rows of earlier periods are never read or modified here, which is what
// makes the monthly rollover implicit.
func (t *Tracker) Current(ctx context.Context, tx *gorm.DB, clientID snowflake.ID) (*consumptiondomain.MonthlyConsumption, error) {
	period := t.CurrentPeriod()

	if err := t.repo.InsertIfAbsent(ctx, tx, t.zero(clientID, period)); err != nil {
		return nil, fmt.Errorf("open consumption period %d/%d: %w", period.Mois, period.Annee, err)
	}

	row, err := t.repo.FindByPeriod(ctx, tx, clientID, period, true)
	if err != nil {
		return nil, fmt.Errorf("lock consumption period %d/%d: %w", period.Mois, period.Annee, err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: client %s period %d/%d", consumptiondomain.ErrCounterMissing, clientID, period.Mois, period.Annee)
	}
	return row, nil
}

func (t *Tracker) Peek(ctx context.Context, clientID snowflake.ID) (*consumptiondomain.MonthlyConsumption, error) {
	period := t.CurrentPeriod()

	row, err := t.repo.FindByPeriod(ctx, t.db, clientID, period, false)
	if err != nil {
		return nil, fmt.Errorf("read consumption period %d/%d: %w", period.Mois, period.Annee, err)
	}
	if row == nil {
		zero := t.zero(clientID, period)
		zero.ID = 0
		return zero, nil
	}
	return row, nil
}

func (t *Tracker) Commit(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, period consumptiondomain.Period, amount, kwh decimal.Decimal) error {
	if !amount.IsPositive() || kwh.IsNegative() {
		return fmt.Errorf("%w: amount %s kwh %s", consumptiondomain.ErrInvalidAmount, amount, kwh)
	}

	now := t.clock.Now().UTC()
	affected, err := t.repo.Increment(ctx, tx, clientID, period, amount, kwh, now)
	if err != nil {
		return fmt.Errorf("increment consumption period %d/%d: %w", period.Mois, period.Annee, err)
	}
	if affected == 0 {
		if err := t.repo.InsertIfAbsent(ctx, tx, t.zero(clientID, period)); err != nil {
			return fmt.Errorf("open consumption period %d/%d: %w", period.Mois, period.Annee, err)
		}
		affected, err = t.repo.Increment(ctx, tx, clientID, period, amount, kwh, now)
		if err != nil {
			return fmt.Errorf("increment consumption period %d/%d: %w", period.Mois, period.Annee, err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: client %s period %d/%d", consumptiondomain.ErrCounterMissing, clientID, period.Mois, period.Annee)
		}
	}

	t.log.Debug("consumption committed",
		zap.String("client_id", clientID.String()),
		zap.Int("mois", period.Mois),
		zap.Int("annee", period.Annee),
		zap.String("montant", amount.StringFixed(2)),
		zap.String("kwh", kwh.StringFixed(3)),
	)
	return nil
}

func (t *Tracker) History(ctx context.Context, clientID snowflake.ID, limit int) ([]consumptiondomain.MonthlyConsumption, error) {
	return t.repo.ListByClient(ctx, t.db, clientID, limit)
}

func (t *Tracker) Summarize(ctx context.Context, period consumptiondomain.Period) (consumptiondomain.PeriodSummary, error) {
	return t.repo.Summarize(ctx, t.db, period)
}

func (t *Tracker) zero(clientID snowflake.ID, period consumptiondomain.Period) *consumptiondomain.MonthlyConsumption {
	now := t.clock.Now().UTC()
	return &consumptiondomain.MonthlyConsumption{
		ID:           t.genID.Generate(),
		ClientID:     clientID,
		Mois:         period.Mois,
		Annee:        period.Annee,
		MontantTotal: decimal.Zero,
		KwhTotal:     decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
