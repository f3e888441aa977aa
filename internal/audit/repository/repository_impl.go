package repository

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/woyofal/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.LogEntry) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO logs_achats (
			id, attempt_id, numero_compteur, montant, statut, ip_address, user_agent,
			method, endpoint, request_data, response_data, error_message, execution_time_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.AttemptID,
		entry.NumeroCompteur,
		entry.Montant,
		entry.Statut,
		entry.IPAddress,
		entry.UserAgent,
		entry.Method,
		entry.Endpoint,
		entry.RequestData,
		entry.ResponseData,
		entry.ErrorMessage,
		entry.ExecutionTimeMs,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.LogEntry, error) {
	var logs []*domain.LogEntry
	stmt := db.WithContext(ctx).Model(&domain.LogEntry{})

	if numero := strings.TrimSpace(filter.NumeroCompteur); numero != "" {
		stmt = stmt.Where("numero_compteur = ?", numero)
	}
	if filter.Statut != "" {
		stmt = stmt.Where("statut = ?", filter.Statut)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.StatusCount, error) {
	var rows []domain.StatusCount
	err := db.WithContext(ctx).Raw(
		`SELECT statut, COUNT(*) AS count, COALESCE(SUM(montant), 0) AS montant_total
		 FROM logs_achats
		 WHERE created_at >= ? AND created_at < ?
		 GROUP BY statut
		 ORDER BY statut`,
		from.UTC(),
		to.UTC(),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ExecutionStats(ctx context.Context, db *gorm.DB, from, to time.Time) (domain.ExecutionStats, error) {
	var stats domain.ExecutionStats
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(AVG(execution_time_ms), 0) AS avg,
		        COALESCE(MAX(execution_time_ms), 0) AS max,
		        COALESCE(MIN(execution_time_ms), 0) AS min,
		        COUNT(DISTINCT numero_compteur) AS unique_compteurs,
		        COUNT(DISTINCT ip_address) AS unique_ips
		 FROM logs_achats
		 WHERE created_at >= ? AND created_at < ?`,
		from.UTC(),
		to.UTC(),
	).Scan(&stats).Error
	if err != nil {
		return domain.ExecutionStats{}, err
	}
	return stats, nil
}

// DeleteBefore removes entries older than cutoff in batches so a large backlog
// does not hold one long transaction.
func (r *repo) DeleteBefore(ctx context.Context, db *gorm.DB, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		res := db.WithContext(ctx).Exec(deleteBatchSQL(db), cutoff.UTC(), batchSize)
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
		if res.RowsAffected < int64(batchSize) {
			return total, nil
		}
	}
}

func deleteBatchSQL(db *gorm.DB) string {
	if db.Dialector != nil && db.Dialector.Name() == "mysql" {
		return `DELETE FROM logs_achats WHERE created_at < ? ORDER BY created_at ASC LIMIT ?`
	}
	return `DELETE FROM logs_achats WHERE id IN (
		SELECT id FROM logs_achats WHERE created_at < ? ORDER BY created_at ASC LIMIT ?
	)`
}
