// Package export writes run records as Parquet documents for offline
// analysis.
package export

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"quantboard/internal/domain"
)

// RecordRow is the Parquet schema for one prediction/trade record.
type RecordRow struct {
	RunID          int64   `parquet:"run_id"`
	ModelType      string  `parquet:"model_type"`
	Timestamp      int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	PredictedPrice float64 `parquet:"predicted_price"`
	ActualPrice    float64 `parquet:"actual_price"`
	Action         string  `parquet:"action"`
	Position       float64 `parquet:"position"`
	PnL            float64 `parquet:"pnl"`
	CumulativePnL  float64 `parquet:"cumulative_pnl"`
	Equity         float64 `parquet:"equity"`
}

// WriteRecords writes the records to w as a single Parquet row group,
// in delivery order.
func WriteRecords(w io.Writer, records []domain.Record) error {
	rows := make([]RecordRow, len(records))
	for i := range records {
		r := &records[i]
		rows[i] = RecordRow{
			RunID:          r.RunID,
			ModelType:      r.ModelType,
			Timestamp:      r.Timestamp.UnixMilli(),
			PredictedPrice: r.PredictedPrice,
			ActualPrice:    r.ActualPrice,
			Action:         r.Action,
			Position:       r.Position,
			PnL:            r.PnL,
			CumulativePnL:  r.CumulativePnL,
			Equity:         r.Equity,
		}
	}

	pw := parquet.NewGenericWriter[RecordRow](w)
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return fmt.Errorf("writing records: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return nil
}
