package api

// ==============================
// REST Response Types
// ==============================

// TokenInfo describes one registered token
type TokenInfo struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
}

// BalanceInfo is one custodial balance entry
type BalanceInfo struct {
	Token   string `json:"token"`
	Owner   string `json:"owner"`
	Balance string `json:"balance"` // decimal string, 18-decimal fixed point
}

// OrderInfo mirrors an order for API consumers
type OrderInfo struct {
	ID         uint64 `json:"id"`
	Maker      string `json:"maker"`
	TokenGet   string `json:"tokenGet"`
	AmountGet  string `json:"amountGet"`
	TokenGive  string `json:"tokenGive"`
	AmountGive string `json:"amountGive"`
	CreatedAt  int64  `json:"createdAt"`
	Status     string `json:"status"`
}

// ExchangeInfo reports the immutable fee configuration
type ExchangeInfo struct {
	FeeAccount string `json:"feeAccount"`
	FeeRate    string `json:"feeRate"` // 1e18-scaled numerator
	OrderCount uint64 `json:"orderCount"`
}

// ==============================
// REST Request Types
// ==============================

// MoveFundsRequest is the body for deposit and withdraw
type MoveFundsRequest struct {
	Token  string `json:"token"`
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

// MakeOrderRequest is the body for posting a new order
type MakeOrderRequest struct {
	Maker      string `json:"maker"`
	TokenGet   string `json:"tokenGet"`
	AmountGet  string `json:"amountGet"`
	TokenGive  string `json:"tokenGive"`
	AmountGive string `json:"amountGive"`
}

// ActorRequest is the body for cancel and fill (who is acting)
type ActorRequest struct {
	Actor string `json:"actor"`
}

// MakeOrderResponse returns the id of the freshly posted order
type MakeOrderResponse struct {
	ID     uint64 `json:"id"`
	Status string `json:"status"`
}

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket Types
// ==============================

// WSSubscribeRequest subscribes or unsubscribes channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}
