package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterMovementRequest body para POST /api/inventory/movements.
// kind: INBOUND (compra) u OUTBOUND (venta); line_value es el valor monetario de la línea.
type RegisterMovementRequest struct {
	Kind         string          `json:"kind" validate:"required"`
	ProductID    string          `json:"product_id" validate:"required"`
	Quantity     int             `json:"quantity" validate:"gt=0"`
	LineValue    decimal.Decimal `json:"line_value" validate:"decimal_gte0"`
	Counterparty string          `json:"counterparty" validate:"required,notblank"`
}

// ReturnRequest body para POST /api/inventory/returns.
type ReturnRequest struct {
	OutboundID   string `json:"outbound_id" validate:"required"`
	Counterparty string `json:"counterparty,omitempty"`
}

// ExchangeLineRequest artículo nuevo de un cambio.
type ExchangeLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ExchangeRequest body para POST /api/inventory/exchanges y /exchanges/quote.
// Las líneas se validan en el caso de uso (EMPTY_EXCHANGE).
type ExchangeRequest struct {
	OutboundID   string                `json:"outbound_id" validate:"required"`
	Lines        []ExchangeLineRequest `json:"lines"`
	Counterparty string                `json:"counterparty,omitempty"`
}

// TransactionResponse movimiento del libro.
type TransactionResponse struct {
	ID                  string          `json:"id"`
	Seq                 int64           `json:"seq"`
	Kind                string          `json:"kind"`
	ProductID           string          `json:"product_id"`
	Quantity            int             `json:"quantity"`
	SignedQuantity      int             `json:"signed_quantity"`
	LineValue           decimal.Decimal `json:"line_value"`
	Counterparty        string          `json:"counterparty"`
	RecordedBy          string          `json:"recorded_by"`
	RecordedAt          time.Time       `json:"recorded_at"`
	LinkedTransactionID *string         `json:"linked_transaction_id,omitempty"`
	GroupID             *string         `json:"group_id,omitempty"`
	State               string          `json:"state,omitempty"`
	Resolved            bool            `json:"resolved"`
}

// TransactionListResponse página del libro; next_after_seq sirve como cursor de la siguiente página.
type TransactionListResponse struct {
	Items        []TransactionResponse `json:"items"`
	NextAfterSeq int64                 `json:"next_after_seq"`
}

// ReturnResponse devolución confirmada.
type ReturnResponse struct {
	GroupID string              `json:"group_id"`
	Return  TransactionResponse `json:"return"`
}

// ExchangeResponse cambio confirmado.
type ExchangeResponse struct {
	GroupID     string                `json:"group_id"`
	ExchangeOut TransactionResponse   `json:"exchange_out"`
	ExchangeIn  []TransactionResponse `json:"exchange_in"`
}

// QuoteLineResponse línea valorizada con el precio actual del catálogo.
type QuoteLineResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineValue decimal.Decimal `json:"line_value"`
}

// ExchangeQuoteResponse comparación de un cambio sin confirmarlo.
// status: exact | deficit | excess; difference = proposed - original.
type ExchangeQuoteResponse struct {
	OutboundID string              `json:"outbound_id"`
	Original   decimal.Decimal     `json:"original"`
	Proposed   decimal.Decimal     `json:"proposed"`
	Difference decimal.Decimal     `json:"difference"`
	Status     string              `json:"status"`
	Lines      []QuoteLineResponse `json:"lines"`
}

// OnHandResponse cantidad disponible de un producto.
type OnHandResponse struct {
	ProductID string `json:"product_id"`
	OnHand    int    `json:"on_hand"`
}

// StockLevelResponse fila del listado de inventario.
type StockLevelResponse struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	StockValue     decimal.Decimal `json:"stock_value"`
	AlertThreshold int             `json:"alert_threshold"`
	BelowAlert     bool            `json:"below_alert"`
}

// ReconciliationHistoryResponse venta y movimientos que la concilian.
type ReconciliationHistoryResponse struct {
	Outbound TransactionResponse   `json:"outbound"`
	Lines    []TransactionResponse `json:"lines"`
}

// ReplenishmentSuggestionDTO producto en o bajo su umbral de alerta con la cantidad sugerida de reposición.
type ReplenishmentSuggestionDTO struct {
	ProductID           string          `json:"product_id"`
	ProductName         string          `json:"product_name"`
	CurrentStock        int             `json:"current_stock"`
	AlertThreshold      int             `json:"alert_threshold"`
	IdealStock          int             `json:"ideal_stock"`         // AlertThreshold * 1.5
	SuggestedOrderQty   int             `json:"suggested_order_qty"` // IdealStock - CurrentStock
	UnitPrice           decimal.Decimal `json:"unit_price"`
	EstimatedValue      decimal.Decimal `json:"estimated_value"` // SuggestedOrderQty * UnitPrice
	UnitsSoldLast90Days int             `json:"units_sold_last_90d"`
	Priority            int             `json:"priority"` // 1 = más urgente
}

// DriftResponse diferencia entre la proyección guardada y la reproducción del libro.
type DriftResponse struct {
	ProductID string `json:"product_id"`
	Stored    int    `json:"stored"`
	Replayed  int    `json:"replayed"`
}
