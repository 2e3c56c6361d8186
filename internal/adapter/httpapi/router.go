package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
	"github.com/oleksiishulzhenko/indexfund/internal/metrics"
	"github.com/oleksiishulzhenko/indexfund/internal/usecase/dashboard"
)

// Handler serves the read-only HTTP surface: health, fund summary, share
// balances and Prometheus metrics
type Handler struct {
	Dashboard     *dashboard.DashboardService
	Metrics       *metrics.FundMetrics
	Logger        *slog.Logger
	ValueDecimals int32

	router http.Handler
}

// New creates a new Handler instance
func New(dashboardService *dashboard.DashboardService, m *metrics.FundMetrics, valueDecimals int32) *Handler {
	h := &Handler{
		Dashboard:     dashboardService,
		Metrics:       m,
		Logger:        slog.Default(),
		ValueDecimals: valueDecimals,
	}
	h.router = h.buildRouter()
	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(api chi.Router) {
		api.Get("/fund", h.GetFund)
		api.Get("/shares/{account}", h.GetShareBalance)
	})

	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	return r
}

type holdingResponse struct {
	Asset    string `json:"asset"`
	Position int    `json:"position"`
	Balance  string `json:"balance"`
	Price    string `json:"price"`
	Value    string `json:"value"`
	Priced   bool   `json:"priced"`
}

type fundResponse struct {
	TotalValue         string            `json:"total_value"`
	TotalValueDisplay  string            `json:"total_value_display"`
	TotalSupply        string            `json:"total_supply"`
	TotalSupplyDisplay string            `json:"total_supply_display"`
	NAVPerShare        string            `json:"nav_per_share"`
	DepositCount       int               `json:"deposit_count"`
	Holdings           []holdingResponse `json:"holdings"`
}

type balanceResponse struct {
	Account        string `json:"account"`
	Balance        string `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
}

// GetFund returns the fund summary
func (h *Handler) GetFund(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Dashboard.GetFund(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := fundResponse{
		TotalValue:         summary.TotalValue.Dec(),
		TotalValueDisplay:  domain.FormatUnits(summary.TotalValue, h.ValueDecimals).String(),
		TotalSupply:        summary.TotalSupply.Dec(),
		TotalSupplyDisplay: domain.FormatUnits(summary.TotalSupply, h.ValueDecimals).String(),
		NAVPerShare:        summary.NAVPerShare.String(),
		DepositCount:       summary.DepositCount,
		Holdings:           make([]holdingResponse, 0, len(summary.Holdings)),
	}
	for _, holding := range summary.Holdings {
		resp.Holdings = append(resp.Holdings, holdingResponse{
			Asset:    string(holding.AssetID),
			Position: holding.Position,
			Balance:  holding.Balance.Dec(),
			Price:    holding.Price.Dec(),
			Value:    holding.Value.Dec(),
			Priced:   holding.Priced,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetShareBalance returns the share balance of the account in the path
func (h *Handler) GetShareBalance(w http.ResponseWriter, r *http.Request) {
	account := domain.Account(chi.URLParam(r, "account"))

	balance, err := h.Dashboard.ShareBalance(account)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		Account:        string(account),
		Balance:        balance.Dec(),
		BalanceDisplay: domain.FormatUnits(balance, h.ValueDecimals).String(),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidDeposit):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	}

	if code == http.StatusInternalServerError {
		h.logger().ErrorContext(r.Context(), "http request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.Any("error", err),
		)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
