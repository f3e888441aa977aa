package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/woyofal/internal/customer/domain"
	meterdomain "github.com/smallbiznis/woyofal/internal/meter/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() meterdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, meter *meterdomain.Meter) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO compteurs (
			id, numero, client_id, adresse, quartier, ville, type, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meter.ID,
		meter.Numero,
		meter.ClientID,
		meter.Adresse,
		meter.Quartier,
		meter.Ville,
		meter.Type,
		meter.Status,
		meter.CreatedAt,
		meter.UpdatedAt,
	).Error
}

func (r *repo) FindByNumero(ctx context.Context, db *gorm.DB, numero string) (*meterdomain.Meter, error) {
	var meter meterdomain.Meter
	err := db.WithContext(ctx).Raw(
		`SELECT id, numero, client_id, adresse, quartier, ville, type, status, created_at, updated_at
		 FROM compteurs WHERE numero = ?`,
		numero,
	).Scan(&meter).Error
	if err != nil {
		return nil, err
	}
	if meter.ID == 0 {
		return nil, nil
	}
	return &meter, nil
}

type meterClientRow struct {
	ID              snowflake.ID
	Numero          string
	ClientID        snowflake.ID
	Adresse         *string
	Quartier        *string
	Ville           string
	Type            string
	Status          meterdomain.Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClientNom       string
	ClientPrenom    string
	ClientTelephone *string
	ClientEmail     *string
	ClientStatus    customerdomain.Status
	ClientCreatedAt time.Time
	ClientUpdatedAt time.Time
}

func (r *repo) FindWithClient(ctx context.Context, db *gorm.DB, numero string) (*meterdomain.MeterWithClient, error) {
	var row meterClientRow
	err := db.WithContext(ctx).Raw(
		`SELECT m.id, m.numero, m.client_id, m.adresse, m.quartier, m.ville, m.type, m.status,
		        m.created_at, m.updated_at,
		        c.nom AS client_nom, c.prenom AS client_prenom, c.telephone AS client_telephone,
		        c.email AS client_email, c.status AS client_status,
		        c.created_at AS client_created_at, c.updated_at AS client_updated_at
		 FROM compteurs m
		 JOIN clients c ON c.id = m.client_id
		 WHERE m.numero = ?`,
		numero,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}

	return &meterdomain.MeterWithClient{
		Meter: meterdomain.Meter{
			ID:        row.ID,
			Numero:    row.Numero,
			ClientID:  row.ClientID,
			Adresse:   row.Adresse,
			Quartier:  row.Quartier,
			Ville:     row.Ville,
			Type:      row.Type,
			Status:    row.Status,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
		Client: customerdomain.Customer{
			ID:        row.ClientID,
			Nom:       row.ClientNom,
			Prenom:    row.ClientPrenom,
			Telephone: row.ClientTelephone,
			Email:     row.ClientEmail,
			Status:    row.ClientStatus,
			CreatedAt: row.ClientCreatedAt,
			UpdatedAt: row.ClientUpdatedAt,
		},
	}, nil
}

func (r *repo) SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status meterdomain.Status) error {
	return db.WithContext(ctx).Exec(
		`UPDATE compteurs SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UTC(),
		id,
	).Error
}
