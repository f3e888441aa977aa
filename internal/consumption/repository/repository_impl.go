package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	consumptiondomain "github.com/smallbiznis/woyofal/internal/consumption/domain"
	"github.com/smallbiznis/woyofal/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() consumptiondomain.Repository {
	return &repo{}
}

func (r *repo) FindByPeriod(ctx context.Context, conn *gorm.DB, clientID snowflake.ID, period consumptiondomain.Period, lock bool) (*consumptiondomain.MonthlyConsumption, error) {
	stmt := conn.WithContext(ctx).
		Model(&consumptiondomain.MonthlyConsumption{}).
		Where("client_id = ? AND mois = ? AND annee = ?", clientID, period.Mois, period.Annee)
	if lock && db.SupportsRowLocks(conn) {
		stmt = stmt.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}

	var rows []consumptiondomain.MonthlyConsumption
	if err := stmt.Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	row.Normalize()
	return &row, nil
}

func (r *repo) InsertIfAbsent(ctx context.Context, conn *gorm.DB, row *consumptiondomain.MonthlyConsumption) error {
	return conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}, {Name: "mois"}, {Name: "annee"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *repo) Increment(ctx context.Context, conn *gorm.DB, clientID snowflake.ID, period consumptiondomain.Period, amount, kwh decimal.Decimal, now time.Time) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE consommations_mensuelles
		 SET montant_total = montant_total + ?,
		     kwh_total = kwh_total + ?,
		     nombre_achats = nombre_achats + 1,
		     updated_at = ?
		 WHERE client_id = ? AND mois = ? AND annee = ?`,
		amount,
		kwh,
		now,
		clientID,
		period.Mois,
		period.Annee,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) ListByClient(ctx context.Context, conn *gorm.DB, clientID snowflake.ID, limit int) ([]consumptiondomain.MonthlyConsumption, error) {
	if limit <= 0 {
		limit = 12
	}
	var items []consumptiondomain.MonthlyConsumption
	err := conn.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("annee desc, mois desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Normalize()
	}
	return items, nil
}

type summaryRow struct {
	Clients      int64
	MontantTotal decimal.NullDecimal
	KwhTotal     decimal.NullDecimal
	NombreAchats int64
}

func (r *repo) Summarize(ctx context.Context, conn *gorm.DB, period consumptiondomain.Period) (consumptiondomain.PeriodSummary, error) {
	var row summaryRow
	err := conn.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS clients,
		        SUM(montant_total) AS montant_total,
		        SUM(kwh_total) AS kwh_total,
		        COALESCE(SUM(nombre_achats), 0) AS nombre_achats
		 FROM consommations_mensuelles
		 WHERE mois = ? AND annee = ?`,
		period.Mois,
		period.Annee,
	).Scan(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return consumptiondomain.PeriodSummary{}, err
	}

	summary := consumptiondomain.PeriodSummary{
		Period:       period,
		Clients:      row.Clients,
		MontantTotal: decimal.Zero,
		KwhTotal:     decimal.Zero,
		NombreAchats: row.NombreAchats,
	}
	if row.MontantTotal.Valid {
		summary.MontantTotal = row.MontantTotal.Decimal.Round(2)
	}
	if row.KwhTotal.Valid {
		summary.KwhTotal = row.KwhTotal.Decimal.Round(3)
	}
	return summary, nil
}
