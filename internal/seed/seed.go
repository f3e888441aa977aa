package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/woyofal/internal/config"
	customerdomain "github.com/smallbiznis/woyofal/internal/customer/domain"
	customerrepo "github.com/smallbiznis/woyofal/internal/customer/repository"
	customerservice "github.com/smallbiznis/woyofal/internal/customer/service"
	meterdomain "github.com/smallbiznis/woyofal/internal/meter/domain"
	meterrepo "github.com/smallbiznis/woyofal/internal/meter/repository"
	meterservice "github.com/smallbiznis/woyofal/internal/meter/service"
	tariffdomain "github.com/smallbiznis/woyofal/internal/tariff/domain"
	tariffrepo "github.com/smallbiznis/woyofal/internal/tariff/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type tierSeed struct {
	nom   string
	min   int64
	max   int64
	price int64
}

// defaultSchedule is the residential prepaid schedule. A zero max marks the
// open top tier.
var defaultSchedule = []tierSeed{
	{nom: "Tranche 1 - Social", min: 0, max: 150, price: 91},
	{nom: "Tranche 2 - Normal", min: 150, max: 250, price: 102},
	{nom: "Tranche 3 - Intermédiaire", min: 250, max: 400, price: 116},
	{nom: "Tranche 4 - Élevé", min: 400, price: 132},
}

type demoCustomer struct {
	nom       string
	prenom    string
	email     string
	telephone string
	compteur  string
	adresse   string
	quartier  string
	ville     string
}

var demoCustomers = []demoCustomer{
	{"DIOP", "Amadou", "amadou.diop@example.com", "771234567", "123456789", "Rue 10 x Rue 15, Medina", "Medina", "Dakar"},
	{"FALL", "Fatou", "fatou.fall@example.com", "775678912", "987654321", "Avenue Blaise Diagne, HLM", "HLM", "Dakar"},
	{"NDIAYE", "Moussa", "moussa.ndiaye@example.com", "779876543", "456789123", "Route de Rufisque, Keur Massar", "Keur Massar", "Pikine"},
	{"SECK", "Aïcha", "aicha.seck@example.com", "773456789", "789123456", "Cité Millionnaire, Grand Yoff", "Grand Yoff", "Dakar"},
	{"SARR", "Ousmane", "ousmane.sarr@example.com", "776543210", "321654987", "Quartier Résidentiel, Almadies", "Almadies", "Dakar"},
	{"KANE", "Mariama", "mariama.kane@example.com", "778901234", "654987321", "Zone de Captage, Thiaroye", "Thiaroye", "Pikine"},
	{"BA", "Ibrahima", "ibrahima.ba@example.com", "772345678", "147258369", "Boulevard du Centenaire, Plateau", "Plateau", "Dakar"},
	{"GUEYE", "Awa", "awa.gueye@example.com", "774567890", "963852741", "Cité Mixta, Guédiawaye", "Guédiawaye", "Guédiawaye"},
}

// EnsureTariffSchedule inserts the default tiers that are missing, matched by
// code. Existing tiers are left as they are. It returns the number of tiers
// created.
func EnsureTariffSchedule(ctx context.Context, db *gorm.DB, node *snowflake.Node) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}
	if node == nil {
		return 0, errors.New("seed id generator is required")
	}

	repo := tariffrepo.Provide()
	created := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for i, seed := range defaultSchedule {
			code := slug.Make(seed.nom)
			existing, err := repo.FindByCode(ctx, tx, code)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}

			tier := &tariffdomain.TariffTier{
				ID:        node.Generate(),
				Nom:       seed.nom,
				Code:      code,
				SeuilMin:  decimal.NewFromInt(seed.min),
				PrixKwh:   decimal.NewFromInt(seed.price),
				Ordre:     i + 1,
				Status:    tariffdomain.StatusActive,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if seed.max > 0 {
				tier.SeuilMax = decimal.NewNullDecimal(decimal.NewFromInt(seed.max))
			}
			if err := repo.Insert(ctx, tx, tier); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// EnsureDemoData registers the demo customers and their meters when the
// meter number is not registered yet. Records go through the customer and
// meter services so they are validated like any other registration. It
// returns the number of meters created.
func EnsureDemoData(ctx context.Context, db *gorm.DB, node *snowflake.Node) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}
	if node == nil {
		return 0, errors.New("seed id generator is required")
	}

	created := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customerRepo := customerrepo.Provide()
		meterRepo := meterrepo.Provide()
		customers := customerservice.New(customerservice.Params{
			DB:    tx,
			Log:   zap.NewNop(),
			GenID: node,
			Repo:  customerRepo,
		})
		meters := meterservice.New(meterservice.Params{
			DB:           tx,
			Log:          zap.NewNop(),
			GenID:        node,
			Policy:       config.NewStaticPurchasePolicyHolder(config.DefaultPurchasePolicy()),
			Repo:         meterRepo,
			CustomerRepo: customerRepo,
		})

		for _, demo := range demoCustomers {
			existing, err := meterRepo.FindByNumero(ctx, tx, demo.compteur)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}

			clientID, err := demoClient(ctx, tx, customerRepo, customers, demo)
			if err != nil {
				return err
			}
			if _, err := meters.Register(ctx, meterdomain.RegisterRequest{
				Numero:   demo.compteur,
				ClientID: clientID.String(),
				Adresse:  demo.adresse,
				Quartier: demo.quartier,
				Ville:    demo.ville,
			}); err != nil {
				return fmt.Errorf("register demo meter %s: %w", demo.compteur, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// demoClient reuses the customer already registered with the demo phone
// number.
func demoClient(ctx context.Context, tx *gorm.DB, repo customerdomain.Repository, svc customerdomain.Service, demo demoCustomer) (snowflake.ID, error) {
	existing, err := repo.FindByPhone(ctx, tx, demo.telephone)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}
	customer, err := svc.Create(ctx, customerdomain.CreateCustomerRequest{
		Nom:       demo.nom,
		Prenom:    demo.prenom,
		Telephone: demo.telephone,
		Email:     demo.email,
	})
	if err != nil {
		return 0, fmt.Errorf("create demo customer %s %s: %w", demo.prenom, demo.nom, err)
	}
	return customer.ID, nil
}
