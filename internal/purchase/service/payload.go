package service

import (
	"time"

	"github.com/smallbiznis/woyofal/internal/format"
	"github.com/smallbiznis/woyofal/internal/purchase/domain"
	"github.com/smallbiznis/woyofal/internal/tariff/allocator"
)

func buildReceipt(txn domain.Transaction, tierName, client string, loc *time.Location) domain.Receipt {
	return domain.Receipt{
		Compteur:  txn.NumeroCompteur,
		Reference: txn.Reference,
		Code:      txn.CodeRecharge,
		Date:      format.Date(txn.DateAchat, loc),
		Tranche:   tierName,
		Prix:      format.PricePerKWh(txn.PrixUnitaire),
		NbreKwt:   format.KWh(txn.KwhAchetes),
		Client:    client,
	}
}

func buildSimulation(numero, client string, result allocator.Result) domain.Simulation {
	details := make([]domain.SimulationDetail, 0, len(result.Breakdown))
	for _, entry := range result.Breakdown {
		details = append(details, domain.SimulationDetail{
			Tranche:        entry.TierName,
			PrixKwh:        format.PricePerKWh(entry.UnitPrice),
			KwhUtilises:    format.KWh(entry.KWh),
			MontantUtilise: format.FCFA(entry.Amount),
		})
	}
	return domain.Simulation{
		Compteur:         numero,
		MontantSimule:    format.FCFA(result.Amount),
		KwhEstimes:       format.KWh(result.EnergyKWh),
		PrixUnitaire:     format.PricePerKWh(result.BlendedUnitPrice),
		TrancheAppliquee: result.FinalTier.Name,
		Client:           client,
		Details:          details,
	}
}

// tierName returns the name of the tier that closed the purchase.
func tierName(txn domain.Transaction) string {
	if n := len(txn.TierBreakdown); n > 0 {
		return txn.TierBreakdown[n-1].TierName
	}
	return ""
}
