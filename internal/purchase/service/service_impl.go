package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/woyofal/internal/audit/domain"
	"github.com/smallbiznis/woyofal/internal/auditcontext"
	"github.com/smallbiznis/woyofal/internal/clock"
	"github.com/smallbiznis/woyofal/internal/config"
	consumptiondomain "github.com/smallbiznis/woyofal/internal/consumption/domain"
	customerdomain "github.com/smallbiznis/woyofal/internal/customer/domain"
	"github.com/smallbiznis/woyofal/internal/format"
	meterdomain "github.com/smallbiznis/woyofal/internal/meter/domain"
	meterservice "github.com/smallbiznis/woyofal/internal/meter/service"
	"github.com/smallbiznis/woyofal/internal/observability/metrics"
	purchasedomain "github.com/smallbiznis/woyofal/internal/purchase/domain"
	"github.com/smallbiznis/woyofal/internal/tariff/allocator"
	tariffdomain "github.com/smallbiznis/woyofal/internal/tariff/domain"
	tariffservice "github.com/smallbiznis/woyofal/internal/tariff/service"
	"github.com/smallbiznis/woyofal/pkg/db"
	"github.com/smallbiznis/woyofal/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	identifierSavepoint = "achat_identifiers"
	recentPurchases     = 5
	historyMonths       = 12
	maxLoggedCompteur   = 20
)

var (
	referencePattern = regexp.MustCompile(`^WYF\d{12}$`)
	// numeric(12,2) upper bound for logged amounts
	maxLoggedAmount = decimal.New(1, 10)
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	Clock      clock.Clock
	GenID      *snowflake.Node
	Policy     *config.PurchasePolicyHolder
	Repo       purchasedomain.Repository
	Meters     meterdomain.Service
	Customers  customerdomain.Repository
	TariffRepo tariffdomain.Repository
	Tracker    consumptiondomain.Tracker
	Audit      auditdomain.Service
	IDs        IdentifierGenerator `optional:"true"`
	Metrics    *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	loc        *time.Location
	clock      clock.Clock
	genID      *snowflake.Node
	policy     *config.PurchasePolicyHolder
	ids        IdentifierGenerator
	repo       purchasedomain.Repository
	meters     meterdomain.Service
	customers  customerdomain.Repository
	tariffRepo tariffdomain.Repository
	tracker    consumptiondomain.Tracker
	audit      auditdomain.Service
	metrics    *metrics.Metrics
}

func New(p Params) purchasedomain.Service {
	ids := p.IDs
	if ids == nil {
		ids = NewIdentifierGenerator()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("purchase.service"),
		loc:        p.Cfg.Location(),
		clock:      p.Clock,
		genID:      p.GenID,
		policy:     p.Policy,
		ids:        ids,
		repo:       p.Repo,
		meters:     p.Meters,
		customers:  p.Customers,
		tariffRepo: p.TariffRepo,
		tracker:    p.Tracker,
		audit:      p.Audit,
		metrics:    p.Metrics,
	}
}

type attempt struct {
	id      string
	started time.Time
	req     purchasedomain.PurchaseRequest
	numero  string
	amount  *decimal.Decimal
}

func (s *Service) Purchase(ctx context.Context, req purchasedomain.PurchaseRequest) (_ *purchasedomain.Receipt, err error) {
	ctx, attemptID := correlation.EnsureAttemptID(ctx)
	a := &attempt{id: attemptID, started: time.Now(), req: req}
	defer s.recoverAttempt(ctx, a, &err)

	numero, amount, err := validateRequest(s.policy.Get(), req)
	if err != nil {
		s.finish(ctx, a, auditdomain.StatusValidationError, nil, err)
		return nil, err
	}
	a.numero = numero
	a.amount = &amount

	found, err := s.lookup(ctx, numero)
	if err != nil {
		statut := auditdomain.StatusServerError
		if errors.Is(err, purchasedomain.ErrMeterNotFound) {
			statut = auditdomain.StatusCompteurNotFound
		}
		s.finish(ctx, a, statut, nil, err)
		return nil, err
	}

	txn, result, err := s.execute(ctx, found, amount)
	if err != nil {
		statut := auditdomain.StatusServerError
		if errors.Is(err, purchasedomain.ErrConsistency) {
			statut = auditdomain.StatusConsistencyWarning
		}
		s.finish(ctx, a, statut, nil, err)
		return nil, err
	}

	receipt := buildReceipt(*txn, tierName(*txn), found.Client.DisplayName(), s.loc)
	s.metrics.RecordPurchaseVolume(ctx, result.FinalTier.Code, amount.InexactFloat64(), result.EnergyKWh.InexactFloat64())
	s.finish(ctx, a, auditdomain.StatusSuccess, receiptPayload(receipt), nil)

	s.log.Info("purchase completed",
		zap.String("attempt_id", attemptID),
		zap.String("reference", txn.Reference),
		zap.String("compteur", numero),
		zap.String("montant", amount.StringFixed(2)),
		zap.String("kwh", txn.KwhAchetes.StringFixed(3)),
		zap.String("kwh_cumule", result.EndingKWh().StringFixed(3)),
		zap.String("tranche", result.FinalTier.Code),
	)
	return &receipt, nil
}

// recoverAttempt turns a panic below Purchase into an internal error and
// records it as a server_error attempt.
func (s *Service) recoverAttempt(ctx context.Context, a *attempt, err *error) {
	r := recover()
	if r == nil {
		return
	}
	*err = fmt.Errorf("%w: panic: %v", purchasedomain.ErrInternal, r)
	s.log.Error("purchase panicked",
		zap.String("attempt_id", a.id),
		zap.Any("panic", r),
		zap.Stack("stack"),
	)
	s.finish(ctx, a, auditdomain.StatusServerError, nil, *err)
}

// execute runs the locked part of a purchase: schedule, counter, allocation,
// identifiers, insert and counter update share one transaction.
func (s *Service) execute(ctx context.Context, found *meterdomain.MeterWithClient, amount decimal.Decimal) (*purchasedomain.Transaction, allocator.Result, error) {
	var (
		txn      *purchasedomain.Transaction
		result   allocator.Result
		bodyDone bool
	)
	info := auditcontext.FromContext(ctx)
	clientID := found.Client.ID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		schedule, err := tariffservice.ScheduleFrom(ctx, tx, s.tariffRepo)
		if err != nil {
			return classify("load tariff schedule", err)
		}

		counter, err := s.tracker.Current(ctx, tx, clientID)
		if err != nil {
			return persistenceErr("read consumption", err)
		}

		result, err = allocator.Allocate(amount, counter.KwhTotal, schedule)
		if err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		txn = &purchasedomain.Transaction{
			ID:             s.genID.Generate(),
			NumeroCompteur: found.Meter.Numero,
			ClientID:       clientID,
			Montant:        amount.Round(allocator.MoneyScale),
			KwhAchetes:     result.EnergyKWh,
			PrixUnitaire:   result.BlendedUnitPrice,
			TrancheID:      snowflake.ID(result.FinalTier.ID),
			TierBreakdown:  result.Breakdown,
			Statut:         purchasedomain.StatusSuccess,
			DateAchat:      now,
			IPAddress:      optional(info.IPAddress),
			UserAgent:      optional(info.UserAgent),
			CreatedAt:      now,
		}
		if err := s.insertWithIdentifiers(ctx, tx, txn); err != nil {
			return err
		}

		if err := s.tracker.Commit(ctx, tx, clientID, counter.Period(), txn.Montant, result.EnergyKWh); err != nil {
			return persistenceErr("commit consumption", err)
		}

		bodyDone = true
		return nil
	})
	if err == nil {
		return txn, result, nil
	}
	if !bodyDone {
		return nil, allocator.Result{}, classify("purchase transaction", err)
	}
	return s.resolveCommitFailure(ctx, txn, result, err)
}

// insertWithIdentifiers draws reference and recharge code candidates until
// one pair is free. Each insert runs under a savepoint so a unique violation
// from a concurrent purchase leaves the transaction usable.
func (s *Service) insertWithIdentifiers(ctx context.Context, tx *gorm.DB, txn *purchasedomain.Transaction) error {
	maxAttempts := s.policy.Get().MaxIdentifierAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	issuedAt := txn.DateAchat.In(s.loc)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		reference, err := s.ids.Reference(issuedAt)
		if err != nil {
			return fmt.Errorf("generate reference: %w", err)
		}
		code, err := s.ids.RechargeCode()
		if err != nil {
			return fmt.Errorf("generate recharge code: %w", err)
		}

		taken, err := s.repo.ExistsByReference(ctx, tx, reference)
		if err != nil {
			return persistenceErr("check reference", err)
		}
		if taken {
			s.collision(ctx, "reference", attempt)
			continue
		}
		taken, err = s.repo.ExistsByRechargeCode(ctx, tx, code)
		if err != nil {
			return persistenceErr("check recharge code", err)
		}
		if taken {
			s.collision(ctx, "code_recharge", attempt)
			continue
		}

		txn.Reference = reference
		txn.CodeRecharge = code
		if err := tx.SavePoint(identifierSavepoint).Error; err != nil {
			return persistenceErr("savepoint", err)
		}
		err = s.repo.Insert(ctx, tx, txn)
		if err == nil {
			return nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return persistenceErr("insert purchase", err)
		}
		if err := tx.RollbackTo(identifierSavepoint).Error; err != nil {
			return persistenceErr("rollback savepoint", err)
		}
		s.collision(ctx, "insert", attempt)
	}

	txn.Reference = ""
	txn.CodeRecharge = ""
	return fmt.Errorf("%w after %d attempts", purchasedomain.ErrIdentifierSpaceExhausted, maxAttempts)
}

// resolveCommitFailure reads the purchase row back after COMMIT reported an
// error. A stored row means the commit landed.
func (s *Service) resolveCommitFailure(ctx context.Context, txn *purchasedomain.Transaction, result allocator.Result, commitErr error) (*purchasedomain.Transaction, allocator.Result, error) {
	stored, err := s.repo.FindByReference(ctx, s.db, txn.Reference)
	switch {
	case err != nil:
		s.metrics.RecordConsistencyWarning(ctx)
		s.log.Error("purchase commit outcome unknown",
			zap.String("reference", txn.Reference),
			zap.String("compteur", txn.NumeroCompteur),
			zap.String("client_id", txn.ClientID.String()),
			zap.String("montant", txn.Montant.StringFixed(2)),
			zap.Bool("reconciliation_required", true),
			zap.Bool("retryable", db.IsRetryableTxErr(commitErr)),
			zap.Error(commitErr),
			zap.NamedError("lookup_error", err),
		)
		return nil, allocator.Result{}, &purchasedomain.ConsistencyError{Reference: txn.Reference, Cause: commitErr}
	case stored == nil:
		return nil, allocator.Result{}, persistenceErr("commit purchase", commitErr)
	default:
		s.log.Warn("purchase commit reported an error but the purchase is stored",
			zap.String("reference", txn.Reference),
			zap.Error(commitErr),
		)
		return stored, result, nil
	}
}

func (s *Service) Simulate(ctx context.Context, req purchasedomain.PurchaseRequest) (*purchasedomain.Simulation, error) {
	numero, amount, err := validateRequest(s.policy.Get(), req)
	if err != nil {
		return nil, err
	}

	found, err := s.lookup(ctx, numero)
	if err != nil {
		return nil, err
	}

	schedule, err := tariffservice.ScheduleFrom(ctx, s.db, s.tariffRepo)
	if err != nil {
		return nil, classify("load tariff schedule", err)
	}
	counter, err := s.tracker.Peek(ctx, found.Client.ID)
	if err != nil {
		return nil, persistenceErr("read consumption", err)
	}

	result, err := allocator.Allocate(amount, counter.KwhTotal, schedule)
	if err != nil {
		return nil, err
	}

	simulation := buildSimulation(numero, found.Client.DisplayName(), result)
	return &simulation, nil
}

func (s *Service) GetByReference(ctx context.Context, reference string) (*purchasedomain.Detail, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if !referencePattern.MatchString(reference) {
		return nil, purchasedomain.ErrInvalidReference
	}

	txn, err := s.repo.FindByReference(ctx, s.db, reference)
	if err != nil {
		return nil, persistenceErr("find purchase", err)
	}
	if txn == nil {
		return nil, purchasedomain.ErrNotFound
	}

	client, err := s.customers.FindByID(ctx, s.db, txn.ClientID)
	if err != nil {
		return nil, persistenceErr("find customer", err)
	}
	name := ""
	if client != nil {
		name = client.DisplayName()
	}

	return &purchasedomain.Detail{
		Receipt:     buildReceipt(*txn, tierName(*txn), name, s.loc),
		Transaction: *txn,
	}, nil
}

func (s *Service) Consumption(ctx context.Context, numero string) (*purchasedomain.ConsumptionView, error) {
	numero = meterservice.NormalizeNumero(numero)
	found, err := s.lookup(ctx, numero)
	if err != nil {
		return nil, err
	}

	counter, err := s.tracker.Peek(ctx, found.Client.ID)
	if err != nil {
		return nil, persistenceErr("read consumption", err)
	}
	schedule, err := tariffservice.ScheduleFrom(ctx, s.db, s.tariffRepo)
	if err != nil {
		return nil, classify("load tariff schedule", err)
	}
	recent, err := s.repo.ListByMeter(ctx, s.db, found.Meter.Numero, recentPurchases)
	if err != nil {
		return nil, persistenceErr("list purchases", err)
	}
	history, err := s.tracker.History(ctx, found.Client.ID, historyMonths)
	if err != nil {
		return nil, persistenceErr("list consumption history", err)
	}

	view := &purchasedomain.ConsumptionView{
		Compteur:       found.Meter.Numero,
		Client:         found.Client.DisplayName(),
		Mois:           counter.Mois,
		Annee:          counter.Annee,
		MontantTotal:   format.FCFA(counter.MontantTotal),
		KwhTotal:       format.KWh(counter.KwhTotal),
		NombreAchats:   counter.NombreAchats,
		DerniersAchats: make([]purchasedomain.PurchaseLedger, 0, len(recent)),
		Historique:     make([]purchasedomain.PeriodLedger, 0, len(history)),
	}
	if tier, ok := allocator.TierAt(schedule, counter.KwhTotal); ok {
		view.TrancheActuelle = tier.Name
	}
	for _, txn := range recent {
		view.DerniersAchats = append(view.DerniersAchats, purchasedomain.PurchaseLedger{
			Reference: txn.Reference,
			Date:      format.Date(txn.DateAchat, s.loc),
			Montant:   format.FCFA(txn.Montant),
			NbreKwt:   format.KWh(txn.KwhAchetes),
		})
	}
	for _, month := range history {
		view.Historique = append(view.Historique, purchasedomain.PeriodLedger{
			Mois:         month.Mois,
			Annee:        month.Annee,
			MontantTotal: format.FCFA(month.MontantTotal),
			KwhTotal:     format.KWh(month.KwhTotal),
			NombreAchats: month.NombreAchats,
		})
	}
	return view, nil
}

func (s *Service) lookup(ctx context.Context, numero string) (*meterdomain.MeterWithClient, error) {
	found, err := s.meters.Lookup(ctx, numero)
	switch {
	case err == nil:
		return found, nil
	case errors.Is(err, meterdomain.ErrNotFound), errors.Is(err, meterdomain.ErrInvalidNumero):
		return nil, purchasedomain.NewMeterNotFound(numero, "Le numéro de compteur n'a pas été trouvé", err)
	case errors.Is(err, meterdomain.ErrInactive), errors.Is(err, meterdomain.ErrInactiveCustomer):
		return nil, purchasedomain.NewMeterNotFound(numero, "Le compteur est désactivé", err)
	default:
		return nil, persistenceErr("lookup meter", err)
	}
}

// finish records the attempt outcome. Audit failures are logged by the audit
// service and never change the purchase result.
func (s *Service) finish(ctx context.Context, a *attempt, statut auditdomain.Status, response map[string]any, cause error) {
	s.metrics.RecordPurchase(ctx, string(statut))

	numero := a.numero
	if numero == "" {
		numero = truncate(strings.TrimSpace(a.req.Compteur), maxLoggedCompteur)
	}
	amount := a.amount
	if amount == nil && a.req.Montant.Abs().LessThan(maxLoggedAmount) {
		raw := a.req.Montant
		amount = &raw
	}

	rec := auditdomain.Record{
		AttemptID:      a.id,
		NumeroCompteur: numero,
		Montant:        amount,
		Statut:         statut,
		RequestData: map[string]any{
			"compteur": a.req.Compteur,
			"montant":  a.req.Montant.String(),
		},
		ResponseData:  response,
		ExecutionTime: time.Since(a.started),
	}
	if cause != nil {
		rec.ErrorMessage = cause.Error()
	}

	switch statut {
	case auditdomain.StatusSuccess:
	case auditdomain.StatusValidationError, auditdomain.StatusCompteurNotFound:
		s.log.Info("purchase rejected",
			zap.String("attempt_id", a.id),
			zap.String("statut", string(statut)),
			zap.Error(cause),
		)
	default:
		s.log.Error("purchase failed",
			zap.String("attempt_id", a.id),
			zap.String("statut", string(statut)),
			zap.String("compteur", numero),
			zap.Error(cause),
		)
	}

	_ = s.audit.Record(ctx, rec)
}

func (s *Service) collision(ctx context.Context, kind string, attempt int) {
	s.metrics.RecordIdentifierCollision(ctx, kind)
	s.log.Warn("purchase identifier collision",
		zap.String("kind", kind),
		zap.Int("attempt", attempt),
	)
}

func receiptPayload(r purchasedomain.Receipt) map[string]any {
	return map[string]any{
		"compteur":  r.Compteur,
		"reference": r.Reference,
		"code":      r.Code,
		"date":      r.Date,
		"tranche":   r.Tranche,
		"prix":      r.Prix,
		"nbreKwt":   r.NbreKwt,
		"client":    r.Client,
	}
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", purchasedomain.ErrPersistence, op, err)
}

// classify keeps already classified errors and wraps the rest as
// persistence failures.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, allocator.ErrConfiguration),
		errors.Is(err, allocator.ErrAllocationExhausted),
		errors.Is(err, purchasedomain.ErrIdentifierSpaceExhausted),
		errors.Is(err, purchasedomain.ErrPersistence):
		return err
	default:
		return persistenceErr(op, err)
	}
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
