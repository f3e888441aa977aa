package repository

import (
	"context"

	"github.com/smallbiznis/woyofal/internal/purchase/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ExistsByReference(ctx context.Context, db *gorm.DB, reference string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM achats_woyofal WHERE reference = ?`,
		reference,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ExistsByRechargeCode(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM achats_woyofal WHERE code_recharge = ?`,
		code,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, txn *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO achats_woyofal (
			id, reference, code_recharge, numero_compteur, client_id, montant, kwh_achetes,
			prix_unitaire, tranche_id, tier_breakdown, statut, date_achat, ip_address, user_agent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.Reference,
		txn.CodeRecharge,
		txn.NumeroCompteur,
		txn.ClientID,
		txn.Montant,
		txn.KwhAchetes,
		txn.PrixUnitaire,
		txn.TrancheID,
		txn.TierBreakdown,
		txn.Statut,
		txn.DateAchat,
		txn.IPAddress,
		txn.UserAgent,
		txn.CreatedAt,
	).Error
}

func (r *repo) FindByReference(ctx context.Context, db *gorm.DB, reference string) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, reference, code_recharge, numero_compteur, client_id, montant, kwh_achetes,
		        prix_unitaire, tranche_id, tier_breakdown, statut, date_achat, ip_address, user_agent, created_at
		 FROM achats_woyofal WHERE reference = ?`,
		reference,
	).Scan(&txn).Error
	if err != nil {
		return nil, err
	}
	if txn.ID == 0 {
		return nil, nil
	}
	txn.Normalize()
	return &txn, nil
}

func (r *repo) ListByMeter(ctx context.Context, db *gorm.DB, numero string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	var items []domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, reference, code_recharge, numero_compteur, client_id, montant, kwh_achetes,
		        prix_unitaire, tranche_id, tier_breakdown, statut, date_achat, ip_address, user_agent, created_at
		 FROM achats_woyofal WHERE numero_compteur = ?
		 ORDER BY date_achat DESC, id DESC LIMIT ?`,
		numero,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Normalize()
	}
	return items, nil
}
