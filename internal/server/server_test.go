package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/woyofal/internal/audit/domain"
	auditrepo "github.com/smallbiznis/woyofal/internal/audit/repository"
	auditservice "github.com/smallbiznis/woyofal/internal/audit/service"
	"github.com/smallbiznis/woyofal/internal/clock"
	"github.com/smallbiznis/woyofal/internal/config"
	consumptionrepo "github.com/smallbiznis/woyofal/internal/consumption/repository"
	consumptionservice "github.com/smallbiznis/woyofal/internal/consumption/service"
	customerrepo "github.com/smallbiznis/woyofal/internal/customer/repository"
	meterrepo "github.com/smallbiznis/woyofal/internal/meter/repository"
	meterservice "github.com/smallbiznis/woyofal/internal/meter/service"
	"github.com/smallbiznis/woyofal/internal/observability"
	purchasedomain "github.com/smallbiznis/woyofal/internal/purchase/domain"
	purchaserepo "github.com/smallbiznis/woyofal/internal/purchase/repository"
	purchaseservice "github.com/smallbiznis/woyofal/internal/purchase/service"
	"github.com/smallbiznis/woyofal/internal/ratelimit"
	"github.com/smallbiznis/woyofal/internal/receipt"
	"github.com/smallbiznis/woyofal/internal/seed"
	tariffrepo "github.com/smallbiznis/woyofal/internal/tariff/repository"
	tariffservice "github.com/smallbiznis/woyofal/internal/tariff/service"
	"github.com/smallbiznis/woyofal/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const demoMeter = "123456789"

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	clock  *clock.FakeClock
}

type envelopeResponse struct {
	Data    json.RawMessage `json:"data"`
	Statut  string          `json:"statut"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	db := dbtest.Open(t)
	node := dbtest.Node(t)

	_, err := seed.EnsureTariffSchedule(ctx, db, node)
	require.NoError(t, err)
	_, err = seed.EnsureDemoData(ctx, db, node)
	require.NoError(t, err)

	log := zap.NewNop()
	cfg := config.Config{
		BillingTimezone: "Africa/Dakar",
		AppName:         "woyofal",
		AppVersion:      "1.0.0",
		Environment:     "test",
	}
	fake := clock.NewFakeClock(time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC))
	policy := config.NewStaticPurchasePolicyHolder(config.DefaultPurchasePolicy())

	meters := meterservice.New(meterservice.Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Policy:       policy,
		Repo:         meterrepo.Provide(),
		CustomerRepo: customerrepo.Provide(),
	})
	tracker := consumptionservice.New(consumptionservice.Params{
		DB:    db,
		Log:   log,
		Cfg:   cfg,
		Clock: fake,
		GenID: node,
		Repo:  consumptionrepo.Provide(),
	})
	audit := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		Cfg:   cfg,
		Clock: fake,
		GenID: node,
		Repo:  auditrepo.Provide(),
	})
	tariffs := tariffservice.New(tariffservice.Params{DB: db, Log: log, Repo: tariffrepo.Provide()})
	purchases := purchaseservice.New(purchaseservice.Params{
		DB:         db,
		Log:        log,
		Cfg:        cfg,
		Clock:      fake,
		GenID:      node,
		Policy:     policy,
		Repo:       purchaserepo.Provide(),
		Meters:     meters,
		Customers:  customerrepo.Provide(),
		TariffRepo: tariffrepo.Provide(),
		Tracker:    tracker,
		Audit:      audit,
	})

	engine := NewEngine(observability.Config{}, nil)
	NewServer(ServerParams{
		Gin:         engine,
		Cfg:         cfg,
		DB:          db,
		Log:         log,
		Clock:       fake,
		PurchaseSvc: purchases,
		TariffSvc:   tariffs,
		AuditSvc:    audit,
		Receipts:    receipt.NewRenderer(cfg, log),
	})

	return testServer{engine: engine, db: db, clock: fake}
}

func (s testServer) do(t *testing.T, method, path string, body string) (*httptest.ResponseRecorder, envelopeResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "woyofal-test")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelopeResponse
	if rec.Header().Get("Content-Type") != receipt.ContentType {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (s testServer) auditRows(t *testing.T) []auditdomain.LogEntry {
	t.Helper()
	var rows []auditdomain.LogEntry
	require.NoError(t, s.db.Order("id").Find(&rows).Error)
	return rows
}

func TestPurchaseEndpointReturnsReceipt(t *testing.T) {
	srv := newTestServer(t)

	rec, env := srv.do(t, http.MethodPost, "/api/woyofal/achat", `{"compteur":"123456789","montant":15000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", env.Statut)
	assert.Equal(t, 200, env.Code)
	assert.Equal(t, "Achat effectué avec succès", env.Message)

	var receiptData purchasedomain.Receipt
	require.NoError(t, json.Unmarshal(env.Data, &receiptData))
	assert.Equal(t, demoMeter, receiptData.Compteur)
	assert.Regexp(t, regexp.MustCompile(`^WYF\d{12}$`), receiptData.Reference)
	assert.Regexp(t, regexp.MustCompile(`^\d{20}$`), receiptData.Code)
	assert.Equal(t, "163,24 kWh", receiptData.NbreKwt)
	assert.Equal(t, "92 FCFA/kWh", receiptData.Prix)
	assert.Equal(t, "Tranche 2 - Normal", receiptData.Tranche)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rows := srv.auditRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, auditdomain.StatusSuccess, rows[0].Statut)
	require.NotNil(t, rows[0].UserAgent)
	assert.Equal(t, "woyofal-test", *rows[0].UserAgent)
	require.NotNil(t, rows[0].Endpoint)
	assert.Equal(t, "/api/woyofal/achat", *rows[0].Endpoint)
}

func TestPurchaseEndpointErrors(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		status  int
		message string
		statut  auditdomain.Status
	}{
		{
			name:    "malformed json",
			body:    `{"compteur":`,
			status:  http.StatusBadRequest,
			message: "Données JSON invalides ou manquantes",
			statut:  auditdomain.StatusValidationError,
		},
		{
			name:    "empty body",
			body:    "",
			status:  http.StatusBadRequest,
			message: "Données JSON invalides ou manquantes",
			statut:  auditdomain.StatusValidationError,
		},
		{
			name:    "amount below minimum",
			body:    `{"compteur":"123456789","montant":100}`,
			status:  http.StatusBadRequest,
			message: "Le montant minimum est de 500 FCFA",
			statut:  auditdomain.StatusValidationError,
		},
		{
			name:    "short meter number",
			body:    `{"compteur":"123","montant":5000}`,
			status:  http.StatusBadRequest,
			message: "Le numéro de compteur doit contenir entre 8 et 12 chiffres",
			statut:  auditdomain.StatusValidationError,
		},
		{
			name:    "unknown meter",
			body:    `{"compteur":"99999999","montant":5000}`,
			status:  http.StatusNotFound,
			message: "Le numéro de compteur n'a pas été trouvé",
			statut:  auditdomain.StatusCompteurNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t)

			rec, env := srv.do(t, http.MethodPost, "/api/woyofal/achat", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "error", env.Statut)
			assert.Equal(t, tc.status, env.Code)
			assert.Equal(t, tc.message, env.Message)
			assert.Equal(t, "null", string(env.Data))

			rows := srv.auditRows(t)
			require.Len(t, rows, 1)
			assert.Equal(t, tc.statut, rows[0].Statut)
		})
	}
}

func TestSimulateEndpointWritesNothing(t *testing.T) {
	srv := newTestServer(t)

	rec, env := srv.do(t, http.MethodPost, "/api/woyofal/simulate", `{"compteur":"123456789","montant":15000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "simulation", env.Statut)
	assert.Equal(t, "Simulation d'achat réalisée", env.Message)

	var sim purchasedomain.Simulation
	require.NoError(t, json.Unmarshal(env.Data, &sim))
	assert.Equal(t, "15 000 FCFA", sim.MontantSimule)
	assert.Equal(t, "163,24 kWh", sim.KwhEstimes)

	var purchases int64
	require.NoError(t, srv.db.Model(&purchasedomain.Transaction{}).Count(&purchases).Error)
	assert.Zero(t, purchases)
	assert.Empty(t, srv.auditRows(t))

	rec, _ = srv.do(t, http.MethodPost, "/api/woyofal/simulate", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, srv.auditRows(t))
}

func TestPurchaseLookupAndReceipt(t *testing.T) {
	srv := newTestServer(t)

	_, env := srv.do(t, http.MethodPost, "/api/woyofal/achat", `{"compteur":"123456789","montant":5000}`)
	var bought purchasedomain.Receipt
	require.NoError(t, json.Unmarshal(env.Data, &bought))

	rec, env := srv.do(t, http.MethodGet, "/api/woyofal/achats/"+bought.Reference, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail purchasedomain.Detail
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, bought.Code, detail.Receipt.Code)

	rec, _ = srv.do(t, http.MethodGet, "/api/woyofal/achats/"+bought.Reference+"/recu", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, receipt.ContentType, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec, env = srv.do(t, http.MethodGet, "/api/woyofal/achats/NOPE", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Format de référence invalide (attendu: WYFyymmddNNNNNN)", env.Message)

	rec, env = srv.do(t, http.MethodGet, "/api/woyofal/achats/WYF250310000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Achat introuvable", env.Message)
}

func TestConsumptionEndpointIsReadOnly(t *testing.T) {
	srv := newTestServer(t)

	rec, env := srv.do(t, http.MethodGet, "/api/woyofal/compteurs/123456789/consommation", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view purchasedomain.ConsumptionView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 3, view.Mois)
	assert.Equal(t, 2025, view.Annee)
	assert.Zero(t, view.NombreAchats)

	var rows int64
	require.NoError(t, srv.db.Table("consommations_mensuelles").Count(&rows).Error)
	assert.Zero(t, rows)

	rec, _ = srv.do(t, http.MethodGet, "/api/woyofal/compteurs/99999999/consommation", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTranchesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec, env := srv.do(t, http.MethodGet, "/api/woyofal/tranches", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var tiers []struct {
		Nom         string `json:"nom"`
		Code        string `json:"code"`
		Description string `json:"description"`
		Ordre       int    `json:"ordre"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tiers))
	require.NotEmpty(t, tiers)
	assert.Equal(t, 1, tiers[0].Ordre)
	assert.Equal(t, "De 0 à 150 kWh", tiers[0].Description)
}

func TestAuditEndpoints(t *testing.T) {
	srv := newTestServer(t)

	srv.do(t, http.MethodPost, "/api/woyofal/achat", `{"compteur":"123456789","montant":5000}`)
	srv.do(t, http.MethodPost, "/api/woyofal/achat", `{"compteur":"99999999","montant":5000}`)

	rec, env := srv.do(t, http.MethodGet, "/api/woyofal/stats/daily?date=2025-03-10", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats auditdomain.DailyStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, "2025-03-10", stats.Date)
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.SuccessCount)

	rec, env = srv.do(t, http.MethodGet, "/api/woyofal/logs?statut=compteur_not_found", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page auditdomain.ListAuditLogResponse
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Logs, 1)
	assert.Equal(t, auditdomain.StatusCompteurNotFound, page.Logs[0].Statut)

	rec, _ = srv.do(t, http.MethodGet, "/api/woyofal/stats/daily?date=10-03-2025", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = srv.do(t, http.MethodGet, "/api/woyofal/logs?statut=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceEndpointsAndFallbacks(t *testing.T) {
	srv := newTestServer(t)

	rec, env := srv.do(t, http.MethodGet, "/api/woyofal/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "operational", status["api_status"])
	assert.Equal(t, "1.0.0", status["version"])
	assert.Equal(t, "test", status["environment"])

	rec, env = srv.do(t, http.MethodGet, "/api/woyofal/ping", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", env.Message)

	rec, _ = srv.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = srv.do(t, http.MethodGet, "/api/woyofal/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Endpoint non trouvé", env.Message)

	rec, env = srv.do(t, http.MethodGet, "/api/woyofal/achat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "error", env.Statut)
}

func TestDisabledRateLimiterLetsPurchasesThrough(t *testing.T) {
	var limiter *ratelimit.PurchaseLimiter
	assert.False(t, limiter.Enabled())

	srv := newTestServer(t)
	for i := 0; i < 3; i++ {
		rec, _ := srv.do(t, http.MethodPost, "/api/woyofal/achat", `{"compteur":"123456789","montant":500}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestPanicRendersEnvelope(t *testing.T) {
	srv := newTestServer(t)
	srv.engine.GET("/api/woyofal/boom", func(c *gin.Context) {
		panic("driver blew up")
	})

	rec, env := srv.do(t, http.MethodGet, "/api/woyofal/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", env.Statut)
	assert.Equal(t, http.StatusInternalServerError, env.Code)
	assert.Equal(t, "Erreur interne du serveur", env.Message)
	assert.NotContains(t, rec.Body.String(), "driver blew up")
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(300*time.Millisecond))
	assert.Equal(t, 3, retryAfterSeconds(2100*time.Millisecond))
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{&purchasedomain.ValidationError{Field: "montant", Message: "Le montant doit être supérieur à 0"}, http.StatusBadRequest, "Le montant doit être supérieur à 0"},
		{purchasedomain.NewMeterNotFound("12345678", "Le compteur est désactivé", nil), http.StatusNotFound, "Le compteur est désactivé"},
		{purchasedomain.ErrIdentifierSpaceExhausted, http.StatusInternalServerError, "Erreur interne du serveur"},
		{purchasedomain.ErrPersistence, http.StatusInternalServerError, "Erreur interne du serveur"},
		{ErrRateLimited, http.StatusTooManyRequests, msgRateLimited},
		{invalidRequest("bad"), http.StatusBadRequest, "bad"},
	}
	for _, tc := range cases {
		status, message := MapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.message, message, tc.err.Error())
	}

	errType, code := classifyErrorForLog(&purchasedomain.ValidationError{Field: "montant", Message: "x"})
	assert.Equal(t, "validation_error", errType)
	assert.Equal(t, purchasedomain.ErrValidation.Error(), code)
}
