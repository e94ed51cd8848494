package storage

import (
	"encoding/json"
	"time"

	"coin-observer/src/models"
)

// rankingRow is one coin of one published ranking, flattened for insertion.
type rankingRow struct {
	CycleID   string
	Partition string
	Rank      int
	Symbol    string
	Price     float64
	Change5m  float64
	Change24h float64
	Momentum  float64
	Score     float64
	IsHot     bool
	IsStable  bool
	Policy    string
	Payload   string
	CreatedAt int64
}

// -----------------------------------------------------------------------------

// buildRows flattens a ranking in published order. Rank starts at 1.
func buildRows(cycleID, partition string, coins []*models.MCoinAnalytics, at time.Time) ([]rankingRow, error) {
	rows := make([]rankingRow, 0, len(coins))
	createdAt := at.UnixMilli()

	for i, c := range coins {
		if c == nil {
			continue
		}
		payload, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		rows = append(rows, rankingRow{
			CycleID:   cycleID,
			Partition: partition,
			Rank:      i + 1,
			Symbol:    c.Symbol,
			Price:     c.Price,
			Change5m:  c.Change5m(),
			Change24h: c.Change24h,
			Momentum:  c.Metrics.Momentum,
			Score:     c.ScoreMomentum,
			IsHot:     c.IsHot,
			IsStable:  c.IsStableGrowth,
			Policy:    c.Policy,
			Payload:   string(payload),
			CreatedAt: createdAt,
		})
	}
	return rows, nil
}

// -----------------------------------------------------------------------------

func (r rankingRow) args() []interface{} {
	return []interface{}{
		r.CycleID, r.Partition, r.Rank, r.Symbol, r.Price, r.Change5m, r.Change24h,
		r.Momentum, r.Score, r.IsHot, r.IsStable, r.Policy, r.Payload, r.CreatedAt,
	}
}

// -----------------------------------------------------------------------------

// retentionCutoff returns the oldest created_at (ms) that is kept.
func retentionCutoff(hours int, now time.Time) int64 {
	if hours <= 0 {
		hours = 24
	}
	return now.Add(-time.Duration(hours) * time.Hour).UnixMilli()
}
