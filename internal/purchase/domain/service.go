package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type PurchaseRequest struct {
	Compteur string          `json:"compteur"`
	Montant  decimal.Decimal `json:"montant"`
}

// Service is the purchase workflow: validation, tier allocation,
// persistence, consumption update and audit.
type Service interface {
	Purchase(ctx context.Context, req PurchaseRequest) (*Receipt, error)
	// Simulate runs the same computation as Purchase without writing.
	Simulate(ctx context.Context, req PurchaseRequest) (*Simulation, error)
	GetByReference(ctx context.Context, reference string) (*Detail, error)
	Consumption(ctx context.Context, numero string) (*ConsumptionView, error)
}

// Receipt is the success payload returned to the buyer.
type Receipt struct {
	Compteur  string `json:"compteur"`
	Reference string `json:"reference"`
	Code      string `json:"code"`
	Date      string `json:"date"`
	Tranche   string `json:"tranche"`
	Prix      string `json:"prix"`
	NbreKwt   string `json:"nbreKwt"`
	Client    string `json:"client"`
}

type Detail struct {
	Receipt     Receipt     `json:"recu"`
	Transaction Transaction `json:"-"`
}

type Simulation struct {
	Compteur         string             `json:"compteur"`
	MontantSimule    string             `json:"montant_simule"`
	KwhEstimes       string             `json:"kwh_estimes"`
	PrixUnitaire     string             `json:"prix_unitaire"`
	TrancheAppliquee string             `json:"tranche_appliquee"`
	Client           string             `json:"client"`
	Details          []SimulationDetail `json:"details"`
}

type SimulationDetail struct {
	Tranche        string `json:"tranche"`
	PrixKwh        string `json:"prix_kwh"`
	KwhUtilises    string `json:"kwh_utilises"`
	MontantUtilise string `json:"montant_utilise"`
}

// ConsumptionView is the current-period counter of the meter's client.
type ConsumptionView struct {
	Compteur        string           `json:"compteur"`
	Client          string           `json:"client"`
	Mois            int              `json:"mois"`
	Annee           int              `json:"annee"`
	MontantTotal    string           `json:"montant_total"`
	KwhTotal        string           `json:"kwh_total"`
	NombreAchats    int              `json:"nombre_achats"`
	TrancheActuelle string           `json:"tranche_actuelle"`
	DerniersAchats  []PurchaseLedger `json:"derniers_achats"`
	// Historique lists the recorded months, newest first.
	Historique []PeriodLedger `json:"historique"`
}

type PeriodLedger struct {
	Mois         int    `json:"mois"`
	Annee        int    `json:"annee"`
	MontantTotal string `json:"montant_total"`
	KwhTotal     string `json:"kwh_total"`
	NombreAchats int    `json:"nombre_achats"`
}

type PurchaseLedger struct {
	Reference string `json:"reference"`
	Date      string `json:"date"`
	Montant   string `json:"montant"`
	NbreKwt   string `json:"nbreKwt"`
}
