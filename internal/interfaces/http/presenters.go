package http

import (
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

func toTransactionResponse(t *entity.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:                  t.ID,
		Seq:                 t.Seq,
		Kind:                string(t.Kind),
		ProductID:           t.ProductID,
		Quantity:            t.Quantity,
		SignedQuantity:      domaininv.SignedQuantity(t.Kind, t.Quantity),
		LineValue:           t.LineValue,
		Counterparty:        t.Counterparty,
		RecordedBy:          t.RecordedBy,
		RecordedAt:          t.RecordedAt,
		LinkedTransactionID: t.LinkedTransactionID,
		GroupID:             t.GroupID,
		State:               string(t.State),
		Resolved:            t.Resolved(),
	}
}

func toTransactionResponses(list []*entity.Transaction) []dto.TransactionResponse {
	out := make([]dto.TransactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

func toExchangeResponse(r *inventory.ExchangeResult) dto.ExchangeResponse {
	return dto.ExchangeResponse{
		GroupID:     r.GroupID,
		ExchangeOut: toTransactionResponse(r.ExchangeOut),
		ExchangeIn:  toTransactionResponses(r.ExchangeIn),
	}
}

func toQuoteResponse(q *inventory.ExchangeQuote) dto.ExchangeQuoteResponse {
	lines := make([]dto.QuoteLineResponse, 0, len(q.Lines))
	for _, l := range q.Lines {
		lines = append(lines, dto.QuoteLineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineValue: l.LineValue,
		})
	}
	return dto.ExchangeQuoteResponse{
		OutboundID: q.Outbound.ID,
		Original:   q.Original,
		Proposed:   q.Proposed,
		Difference: q.Difference,
		Status:     string(q.Status),
		Lines:      lines,
	}
}

func toStockLevelResponses(levels []entity.StockLevel) []dto.StockLevelResponse {
	out := make([]dto.StockLevelResponse, 0, len(levels))
	for _, l := range levels {
		out = append(out, dto.StockLevelResponse{
			ProductID:      l.ProductID,
			Name:           l.Name,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			StockValue:     l.StockValue,
			AlertThreshold: l.AlertThreshold,
			BelowAlert:     l.BelowAlert,
		})
	}
	return out
}

func toDriftResponses(drift []inventory.Drift) []dto.DriftResponse {
	out := make([]dto.DriftResponse, 0, len(drift))
	for _, d := range drift {
		out = append(out, dto.DriftResponse{ProductID: d.ProductID, Stored: d.Stored, Replayed: d.Replayed})
	}
	return out
}

func toExchangeLines(in []dto.ExchangeLineRequest) []inventory.ExchangeLine {
	out := make([]inventory.ExchangeLine, 0, len(in))
	for _, l := range in {
		out = append(out, inventory.ExchangeLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}
