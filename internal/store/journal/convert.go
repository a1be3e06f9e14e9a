package journal

import (
	"normex/internal/engine"
	"normex/internal/exchange"

	"github.com/shopspring/decimal"
)

func fromModel(row executionModel) engine.JournalEntry {
	qty, _ := decimal.NewFromString(row.Quantity)
	price, _ := decimal.NewFromString(row.Price)
	return engine.JournalEntry{
		Venue:     exchange.Venue(row.Venue),
		Symbol:    row.Symbol,
		Operation: row.Operation,
		Side:      exchange.Side(row.Side),
		Quantity:  qty,
		Price:     price,
		OrderID:   row.OrderID,
		Status:    row.Status,
		ErrorKind: exchange.ErrorKind(row.ErrorKind),
		RawError:  row.RawError,
		CreatedAt: row.CreatedAt,
	}
}
