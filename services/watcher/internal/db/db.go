package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/crop-advisor/services/watcher/internal/models"
)

const sourceName = "agmarknet"

// FetchLastPrices loads the most recent stored price per series.
func FetchLastPrices(ctx context.Context, pool *pgxpool.Pool, crops []string) (map[string]models.LastPrice, error) {
	result := make(map[string]models.LastPrice)
	if len(crops) == 0 {
		return result, nil
	}

	rows, err := pool.Query(ctx, `
SELECT DISTINCT ON (crop, state, market) crop, state, market, modal_price, ts
FROM agri.market_prices
WHERE crop = ANY($1) AND source = $2
ORDER BY crop, state, market, ts DESC`, crops, sourceName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var crop, state, market string
		var price float64
		var ts time.Time
		if err := rows.Scan(&crop, &state, &market, &price, &ts); err != nil {
			return nil, err
		}
		result[models.SeriesKey(crop, state, market)] = models.LastPrice{ModalPrice: price, TS: ts}
	}

	return result, rows.Err()
}

// InsertPrices writes new price rows to market_prices.
func InsertPrices(ctx context.Context, pool *pgxpool.Pool, prices []models.PriceCandidate) error {
	if len(prices) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO agri.market_prices (crop, state, market, modal_price, ts, source, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())`

	for _, p := range prices {
		batch.Queue(query, p.Crop, p.State, p.Market, p.ModalPrice, p.TS, sourceName)
	}

	res := pool.SendBatch(ctx, batch)
	defer res.Close()

	for range prices {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}

	return nil
}
