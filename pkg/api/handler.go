// Package api exposes the leasing workflows over HTTP. It is a thin
// translation layer: JSON in, service call, JSON out. Unit conversions
// that belong to the outer boundary (days to seconds, hex to address)
// happen here and nowhere deeper.
package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	chaindomain "github.com/crowdly/leasing-gateway/business/blockchain/domain"
	leasingapp "github.com/crowdly/leasing-gateway/business/leasing/app"
	leasingdomain "github.com/crowdly/leasing-gateway/business/leasing/domain"
	walletdomain "github.com/crowdly/leasing-gateway/business/wallet/domain"
	"github.com/crowdly/leasing-gateway/internal/asset"
	"github.com/crowdly/leasing-gateway/internal/logger"
)

const secondsPerDay = 86400

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 90, 150},
	}, []string{"method", "endpoint"})
)

// Leasing is the slice of the leasing service the handlers need.
type Leasing interface {
	CreateLeasingContractAndRequest(ctx context.Context, in leasingapp.CreateLeaseInput) (*leasingdomain.LeaseHandle, error)
	ListActiveLeasingContracts(ctx context.Context) ([]leasingdomain.LeaseListing, error)
	FundLeasingContract(ctx context.Context, instanceAddr, investor common.Address, amountDecimal string) (*types.Receipt, error)
	LeasingContractAddress(ctx context.Context, leaseID *big.Int) (common.Address, error)
	ActiveLeases() []string
}

// Session is the slice of the session service the handlers need.
type Session interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	State() walletdomain.State
	CurrentSession() (walletdomain.Session, bool)
	ActiveProvider(ctx context.Context) (chaindomain.SigningProvider, error)
}

// Chain is the slice of the blockchain service the handlers need.
type Chain interface {
	Accounts(ctx context.Context, provider chaindomain.SigningProvider) ([]chaindomain.Account, error)
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
	GasPrice(ctx context.Context) (*chaindomain.GasPrice, error)
	ConnectionState() chaindomain.ConnectionState
}

// Handler wires the HTTP routes to the application services.
type Handler struct {
	leasing Leasing
	session Session
	chain   Chain
	native  *asset.Asset
	log     logger.LoggerInterface
}

func NewHandler(leasing Leasing, session Session, chain Chain, native *asset.Asset, log logger.LoggerInterface) *Handler {
	return &Handler{
		leasing: leasing,
		session: session,
		chain:   chain,
		native:  native,
		log:     log,
	}
}

// Router builds the full route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/session", h.GetSession).Methods("GET")
	apiV1.HandleFunc("/session/login", h.Login).Methods("POST")
	apiV1.HandleFunc("/session/logout", h.Logout).Methods("POST")
	apiV1.HandleFunc("/leases", h.CreateLease).Methods("POST")
	apiV1.HandleFunc("/leases/active", h.ListActiveLeases).Methods("GET")
	apiV1.HandleFunc("/leases/active-ids", h.ActiveLeaseIDs).Methods("GET")
	apiV1.HandleFunc("/leases/by-id/{leaseId:[0-9]+}", h.GetLeaseByID).Methods("GET")
	apiV1.HandleFunc("/leases/{address}/investments", h.Invest).Methods("POST")
	apiV1.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	apiV1.HandleFunc("/accounts/{address}/balance", h.GetBalance).Methods("GET")
	apiV1.HandleFunc("/gas-price", h.GetGasPrice).Methods("GET")
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"chain":  string(h.chain.ConnectionState()),
	})
}

type createLeaseRequest struct {
	Borrower          string `json:"borrower"`
	TokenName         string `json:"token_name"`
	TokenSymbol       string `json:"token_symbol"`
	Amount            string `json:"amount"`
	DurationDays      int64  `json:"duration_days"`
	FundingPeriodDays int64  `json:"funding_period_days"`
	TokenPrice        string `json:"token_price"`
}

type createLeaseResponse struct {
	Address   string `json:"address"`
	Borrower  string `json:"borrower"`
	CreateTx  string `json:"create_tx"`
	RequestTx string `json:"request_tx"`
}

func (h *Handler) CreateLease(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/leases"))
	defer timer.ObserveDuration()

	var req createLeaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpRequestsTotal.WithLabelValues("POST", "/leases", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.Borrower) {
		httpRequestsTotal.WithLabelValues("POST", "/leases", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "invalid borrower address")
		return
	}

	// Durations cross the boundary in days; the contract wants seconds.
	handle, err := h.leasing.CreateLeasingContractAndRequest(r.Context(), leasingapp.CreateLeaseInput{
		Borrower:             common.HexToAddress(req.Borrower),
		TokenName:            req.TokenName,
		TokenSymbol:          req.TokenSymbol,
		Amount:               req.Amount,
		DurationSeconds:      req.DurationDays * secondsPerDay,
		FundingPeriodSeconds: req.FundingPeriodDays * secondsPerDay,
		TokenPrice:           req.TokenPrice,
	})
	if err != nil {
		h.log.Error(r.Context(), "create lease failed", "error", err)
		h.countAppError("POST", "/leases", w, err)
		return
	}

	httpRequestsTotal.WithLabelValues("POST", "/leases", "201").Inc()
	respondWithJSON(w, http.StatusCreated, createLeaseResponse{
		Address:   handle.Address.Hex(),
		Borrower:  handle.Borrower.Hex(),
		CreateTx:  handle.CreateTx.Hex(),
		RequestTx: handle.RequestTx.Hex(),
	})
}

type leaseListingResponse struct {
	Address         string `json:"address"`
	RemainingAmount string `json:"remaining_amount"`
}

func (h *Handler) ListActiveLeases(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", "/leases/active"))
	defer timer.ObserveDuration()

	listings, err := h.leasing.ListActiveLeasingContracts(r.Context())
	if err != nil {
		h.log.Error(r.Context(), "active lease scan failed", "error", err)
		h.countAppError("GET", "/leases/active", w, err)
		return
	}

	out := make([]leaseListingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, leaseListingResponse{
			Address:         l.Address.Hex(),
			RemainingAmount: l.RemainingAmount.String(),
		})
	}
	httpRequestsTotal.WithLabelValues("GET", "/leases/active", "200").Inc()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"leases": out})
}

func (h *Handler) ActiveLeaseIDs(w http.ResponseWriter, r *http.Request) {
	httpRequestsTotal.WithLabelValues("GET", "/leases/active-ids", "200").Inc()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"ids": h.leasing.ActiveLeases()})
}

// GetLeaseByID resolves a lease ID to its contract address through the
// factory registry.
func (h *Handler) GetLeaseByID(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", "/leases/by-id/{leaseId}"))
	defer timer.ObserveDuration()

	leaseID, ok := new(big.Int).SetString(mux.Vars(r)["leaseId"], 10)
	if !ok {
		httpRequestsTotal.WithLabelValues("GET", "/leases/by-id/{leaseId}", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "invalid lease id")
		return
	}

	addr, err := h.leasing.LeasingContractAddress(r.Context(), leaseID)
	if err != nil {
		h.log.Error(r.Context(), "lease lookup failed", "lease_id", leaseID.String(), "error", err)
		h.countAppError("GET", "/leases/by-id/{leaseId}", w, err)
		return
	}

	httpRequestsTotal.WithLabelValues("GET", "/leases/by-id/{leaseId}", "200").Inc()
	respondWithJSON(w, http.StatusOK, map[string]string{
		"lease_id": leaseID.String(),
		"address":  addr.Hex(),
	})
}

type investRequest struct {
	Investor string `json:"investor"`
	Amount   string `json:"amount"`
}

func (h *Handler) Invest(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/leases/{address}/investments"))
	defer timer.ObserveDuration()

	instance := mux.Vars(r)["address"]
	if !common.IsHexAddress(instance) {
		httpRequestsTotal.WithLabelValues("POST", "/leases/{address}/investments", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "invalid lease address")
		return
	}

	var req investRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpRequestsTotal.WithLabelValues("POST", "/leases/{address}/investments", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.Investor) {
		httpRequestsTotal.WithLabelValues("POST", "/leases/{address}/investments", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "invalid investor address")
		return
	}

	receipt, err := h.leasing.FundLeasingContract(r.Context(),
		common.HexToAddress(instance), common.HexToAddress(req.Investor), req.Amount)
	if err != nil {
		h.log.Error(r.Context(), "investment failed", "lease", instance, "error", err)
		h.countAppError("POST", "/leases/{address}/investments", w, err)
		return
	}

	httpRequestsTotal.WithLabelValues("POST", "/leases/{address}/investments", "200").Inc()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"tx_hash":      receipt.TxHash.Hex(),
		"block_number": receipt.BlockNumber.Uint64(),
		"gas_used":     receipt.GasUsed,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/session/login"))
	defer timer.ObserveDuration()

	if err := h.session.Login(r.Context()); err != nil {
		h.log.Warn(r.Context(), "login failed", "error", err)
		h.countAppError("POST", "/session/login", w, err)
		return
	}
	httpRequestsTotal.WithLabelValues("POST", "/session/login", "200").Inc()
	h.writeSession(w)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		h.log.Warn(r.Context(), "logout failed", "error", err)
		h.countAppError("POST", "/session/logout", w, err)
		return
	}
	httpRequestsTotal.WithLabelValues("POST", "/session/logout", "200").Inc()
	respondWithJSON(w, http.StatusOK, map[string]string{"state": string(h.session.State())})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	httpRequestsTotal.WithLabelValues("GET", "/session", "200").Inc()
	h.writeSession(w)
}

func (h *Handler) writeSession(w http.ResponseWriter) {
	resp := map[string]interface{}{"state": string(h.session.State())}
	if sess, ok := h.session.CurrentSession(); ok {
		resp["address"] = sess.Address.Hex()
		resp["expires_at"] = sess.ExpiresAt.Format(time.RFC3339)
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// ListAccounts returns the logged-in session's accounts with balances.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", "/accounts"))
	defer timer.ObserveDuration()

	provider, err := h.session.ActiveProvider(r.Context())
	if err != nil {
		h.countAppError("GET", "/accounts", w, err)
		return
	}

	accounts, err := h.chain.Accounts(r.Context(), provider)
	if err != nil {
		h.log.Error(r.Context(), "account query failed", "error", err)
		h.countAppError("GET", "/accounts", w, err)
		return
	}

	out := make([]map[string]string, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, map[string]string{
			"address": acc.Address.Hex(),
			"wei":     acc.Balance.String(),
			"balance": asset.NewAmount(h.native, acc.Balance).ToDecimal().String(),
		})
	}
	httpRequestsTotal.WithLabelValues("GET", "/accounts", "200").Inc()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"accounts": out})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", "/accounts/{address}/balance"))
	defer timer.ObserveDuration()

	addr := mux.Vars(r)["address"]
	if !common.IsHexAddress(addr) {
		httpRequestsTotal.WithLabelValues("GET", "/accounts/{address}/balance", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "invalid address")
		return
	}

	wei, err := h.chain.Balance(r.Context(), common.HexToAddress(addr))
	if err != nil {
		h.log.Error(r.Context(), "balance query failed", "address", addr, "error", err)
		h.countAppError("GET", "/accounts/{address}/balance", w, err)
		return
	}

	httpRequestsTotal.WithLabelValues("GET", "/accounts/{address}/balance", "200").Inc()
	respondWithJSON(w, http.StatusOK, map[string]string{
		"address": common.HexToAddress(addr).Hex(),
		"wei":     wei.String(),
		"balance": asset.NewAmount(h.native, wei).ToDecimal().String(),
		"symbol":  h.native.Symbol(),
	})
}

func (h *Handler) GetGasPrice(w http.ResponseWriter, r *http.Request) {
	price, err := h.chain.GasPrice(r.Context())
	if err != nil {
		h.countAppError("GET", "/gas-price", w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"wei":  price.Wei.String(),
		"gwei": price.Gwei,
	})
}

// countAppError records the request metric with the mapped status and
// writes the error body in one step.
func (h *Handler) countAppError(method, endpoint string, w http.ResponseWriter, err error) {
	rec := &statusRecorder{ResponseWriter: w}
	respondAppError(rec, err)
	httpRequestsTotal.WithLabelValues(method, endpoint, rec.statusLabel()).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) statusLabel() string {
	if r.status == 0 {
		return "200"
	}
	return strconv.Itoa(r.status)
}
