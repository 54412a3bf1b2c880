package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/jeffreyhu16/nexchange/pkg/exchange"
	"github.com/jeffreyhu16/nexchange/pkg/token"
)

// Server exposes the exchange over REST and streams audit records over
// WebSocket. It performs no authorization: the host environment is
// expected to have verified each request before it reaches the core.
type Server struct {
	exchange *exchange.Exchange
	registry *token.Registry
	router   *mux.Router
	hub      *Hub
	log      *zap.SugaredLogger
}

// NewServer wires routes and registers the WebSocket hub as an event sink
// on the exchange.
func NewServer(x *exchange.Exchange, registry *token.Registry, logger *zap.Logger) *Server {
	s := &Server{
		exchange: x,
		registry: registry,
		router:   mux.NewRouter(),
		hub:      NewHub(logger),
		log:      logger.Sugar().Named("api"),
	}
	x.AddSink(s.hub)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Read side
	api.HandleFunc("/exchange", s.handleGetExchange).Methods("GET")
	api.HandleFunc("/tokens", s.handleGetTokens).Methods("GET")
	api.HandleFunc("/balances/{token}/{owner}", s.handleGetBalance).Methods("GET")
	api.HandleFunc("/orders", s.handleGetOrders).Methods("GET")
	api.HandleFunc("/orders/{id:[0-9]+}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/events", s.handleGetEvents).Methods("GET")

	// Write side
	api.HandleFunc("/deposit", s.handleDeposit).Methods("POST")
	api.HandleFunc("/withdraw", s.handleWithdraw).Methods("POST")
	api.HandleFunc("/orders", s.handleMakeOrder).Methods("POST")
	api.HandleFunc("/orders/{id:[0-9]+}/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/{id:[0-9]+}/fill", s.handleFillOrder).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the full HTTP handler including CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	s.log.Infow("server_starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetExchange(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, ExchangeInfo{
		FeeAccount: s.exchange.FeeAccount().Hex(),
		FeeRate:    s.exchange.FeeRate().Numerator().String(),
		OrderCount: s.exchange.OrderCount(),
	})
}

func (s *Server) handleGetTokens(w http.ResponseWriter, r *http.Request) {
	tokens := s.registry.List()
	response := make([]TokenInfo, len(tokens))
	for i, t := range tokens {
		response[i] = TokenInfo{
			Address:     t.Address.Hex(),
			Name:        t.Name,
			Symbol:      t.Symbol,
			Decimals:    t.Decimals,
			TotalSupply: t.TotalSupply().String(),
		}
	}
	respondJSON(w, response)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tokenAddr, ok := parseAddress(w, vars["token"], "token")
	if !ok {
		return
	}
	owner, ok := parseAddress(w, vars["owner"], "owner")
	if !ok {
		return
	}

	balance := s.exchange.BalanceOf(tokenAddr, owner)
	respondJSON(w, BalanceInfo{
		Token:   tokenAddr.Hex(),
		Owner:   owner.Hex(),
		Balance: balance.String(),
	})
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	var orders []*exchange.Order
	if r.URL.Query().Get("status") == "open" {
		orders = s.exchange.OpenOrders()
	} else {
		orders = s.exchange.Orders()
	}

	response := make([]OrderInfo, len(orders))
	for i, o := range orders {
		response[i] = orderInfo(o)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id", err.Error())
		return
	}

	order, err := s.exchange.OrderByID(id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, orderInfo(order))
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	since := uint64(0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid since parameter", err.Error())
			return
		}
		since = parsed
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit parameter", "")
			return
		}
		limit = parsed
	}

	records, err := s.exchange.EventsSince(since, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "event log read failed", err.Error())
		return
	}
	if records == nil {
		records = []exchange.Record{}
	}
	respondJSON(w, records)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleMoveFunds(w, r, s.exchange.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleMoveFunds(w, r, s.exchange.Withdraw)
}

func (s *Server) handleMoveFunds(w http.ResponseWriter, r *http.Request, op func(token, owner common.Address, amount *big.Int) error) {
	var req MoveFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	tokenAddr, ok := parseAddress(w, req.Token, "token")
	if !ok {
		return
	}
	owner, ok := parseAddress(w, req.Owner, "owner")
	if !ok {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	if err := op(tokenAddr, owner, amount); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, BalanceInfo{
		Token:   tokenAddr.Hex(),
		Owner:   owner.Hex(),
		Balance: s.exchange.BalanceOf(tokenAddr, owner).String(),
	})
}

func (s *Server) handleMakeOrder(w http.ResponseWriter, r *http.Request) {
	var req MakeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	maker, ok := parseAddress(w, req.Maker, "maker")
	if !ok {
		return
	}
	tokenGet, ok := parseAddress(w, req.TokenGet, "tokenGet")
	if !ok {
		return
	}
	tokenGive, ok := parseAddress(w, req.TokenGive, "tokenGive")
	if !ok {
		return
	}
	amountGet, ok := parseAmount(w, req.AmountGet)
	if !ok {
		return
	}
	amountGive, ok := parseAmount(w, req.AmountGive)
	if !ok {
		return
	}

	id, err := s.exchange.MakeOrder(maker, tokenGet, amountGet, tokenGive, amountGive)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, MakeOrderResponse{ID: id, Status: "open"})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	s.handleOrderAction(w, r, s.exchange.CancelOrder)
}

func (s *Server) handleFillOrder(w http.ResponseWriter, r *http.Request) {
	s.handleOrderAction(w, r, s.exchange.FillOrder)
}

func (s *Server) handleOrderAction(w http.ResponseWriter, r *http.Request, op func(id uint64, actor common.Address) error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id", err.Error())
		return
	}

	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	actor, ok := parseAddress(w, req.Actor, "actor")
	if !ok {
		return
	}

	if err := op(id, actor); err != nil {
		respondDomainError(w, err)
		return
	}

	order, err := s.exchange.OrderByID(id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, orderInfo(order))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

func orderInfo(o *exchange.Order) OrderInfo {
	return OrderInfo{
		ID:         o.ID,
		Maker:      o.Maker.Hex(),
		TokenGet:   o.TokenGet.Hex(),
		AmountGet:  o.AmountGet.String(),
		TokenGive:  o.TokenGive.Hex(),
		AmountGive: o.AmountGive.String(),
		CreatedAt:  o.CreatedAt,
		Status:     o.Status.String(),
	}
}

func parseAddress(w http.ResponseWriter, raw, field string) (common.Address, bool) {
	if !common.IsHexAddress(raw) {
		respondError(w, http.StatusBadRequest, "invalid address", field)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func parseAmount(w http.ResponseWriter, raw string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid amount", raw)
		return nil, false
	}
	return amount, true
}

// respondDomainError maps core errors onto HTTP statuses: unknown ids are
// 404, lifecycle and balance conflicts are 409, bad input is 400.
func respondDomainError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, exchange.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, exchange.ErrOrderCancelled),
		errors.Is(err, exchange.ErrOrderFilled),
		errors.Is(err, exchange.ErrNotOwner),
		errors.Is(err, exchange.ErrInsufficientBalance),
		errors.Is(err, exchange.ErrInsufficientDeposit),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance):
		status = http.StatusConflict
	}
	respondError(w, status, err.Error(), "")
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
