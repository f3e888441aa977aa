package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/woyofal/internal/config"
	customerdomain "github.com/smallbiznis/woyofal/internal/customer/domain"
	meterdomain "github.com/smallbiznis/woyofal/internal/meter/domain"
	"github.com/smallbiznis/woyofal/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Policy       *config.PurchasePolicyHolder
	Repo         meterdomain.Repository
	CustomerRepo customerdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	policy       *config.PurchasePolicyHolder
	repo         meterdomain.Repository
	customerRepo customerdomain.Repository
}

func New(p Params) meterdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("meter.service"),
		genID:        p.GenID,
		policy:       p.Policy,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
	}
}

// NormalizeNumero strips every non-digit from a meter number.
func NormalizeNumero(value string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, value)
}

func (s *Service) Register(ctx context.Context, req meterdomain.RegisterRequest) (*meterdomain.Meter, error) {
	policy := s.policy.Get()
	numero := NormalizeNumero(req.Numero)
	if len(numero) < policy.MeterMinDigits || len(numero) > policy.MeterMaxDigits {
		return nil, meterdomain.ErrInvalidNumero
	}

	clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
	if err != nil || clientID == 0 {
		return nil, meterdomain.ErrInvalidClient
	}

	adresse, err := optionalText(req.Adresse, 500)
	if err != nil {
		return nil, err
	}
	quartier, err := optionalText(req.Quartier, 100)
	if err != nil {
		return nil, err
	}
	ville := strings.TrimSpace(req.Ville)
	if ville == "" {
		ville = "Dakar"
	}
	if utf8.RuneCountInString(ville) > 100 {
		return nil, meterdomain.ErrInvalidAddress
	}

	client, err := s.customerRepo.FindByID(ctx, s.db, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, meterdomain.ErrInvalidClient
	}

	now := time.Now().UTC()
	meter := &meterdomain.Meter{
		ID:        s.genID.Generate(),
		Numero:    numero,
		ClientID:  clientID,
		Adresse:   adresse,
		Quartier:  quartier,
		Ville:     ville,
		Type:      meterdomain.TypePrepaid,
		Status:    meterdomain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, meter); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, meterdomain.ErrAlreadyExists
		}
		return nil, err
	}

	s.log.Info("meter registered",
		zap.String("compteur", meter.Numero),
		zap.String("client_id", clientID.String()),
	)
	return meter, nil
}

func (s *Service) Lookup(ctx context.Context, numero string) (*meterdomain.MeterWithClient, error) {
	numero = NormalizeNumero(numero)
	if numero == "" {
		return nil, meterdomain.ErrInvalidNumero
	}

	found, err := s.repo.FindWithClient(ctx, s.db, numero)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, meterdomain.ErrNotFound
	}
	if !found.Meter.IsActive() {
		return nil, meterdomain.ErrInactive
	}
	if !found.Client.IsActive() {
		return nil, meterdomain.ErrInactiveCustomer
	}
	return found, nil
}

func (s *Service) SetStatus(ctx context.Context, numero string, status meterdomain.Status) error {
	if status != meterdomain.StatusActive && status != meterdomain.StatusInactive {
		return meterdomain.ErrInvalidStatus
	}

	meter, err := s.repo.FindByNumero(ctx, s.db, NormalizeNumero(numero))
	if err != nil {
		return err
	}
	if meter == nil {
		return meterdomain.ErrNotFound
	}
	if meter.Status == status {
		return nil
	}

	if err := s.repo.SetStatus(ctx, s.db, meter.ID, status); err != nil {
		return err
	}
	s.log.Info("meter status changed",
		zap.String("compteur", meter.Numero),
		zap.String("status", string(status)),
	)
	return nil
}

func optionalText(value string, max int) (*string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(value) > max {
		return nil, meterdomain.ErrInvalidAddress
	}
	return &value, nil
}
