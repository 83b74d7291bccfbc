package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// DefaultHistoryLimit caps every history read. It is also the limit used when
// the caller passes none.
const DefaultHistoryLimit = 20

// Conn is the subset of pgxpool.Pool the store uses.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store wraps database access helpers.
type Store struct {
	pool Conn
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// NewWithConn wraps an existing connection or pool.
func NewWithConn(conn Conn) *Store {
	return &Store{pool: conn}
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the agri schema and its tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// RecommendationRecord is a stored recommendation.
type RecommendationRecord struct {
	ID             int64           `json:"id"`
	UserID         string          `json:"user_id"`
	InputData      json.RawMessage `json:"input_data"`
	MLResponse     json.RawMessage `json:"ml_response"`
	MarketSnapshot json.RawMessage `json:"market_snapshot"`
	CreatedAt      time.Time       `json:"created_at"`
}

const insertRecommendationSQL = `
    INSERT INTO agri.recommendations (user_id, input_data, ml_response, market_snapshot)
    VALUES ($1, $2, $3, $4)
    RETURNING id
`

// SaveRecommendation stores the request, the response and the market
// snapshot as JSON documents and returns the new id.
func (s *Store) SaveRecommendation(ctx context.Context, userID string, input, response, marketSnapshot any) (int64, error) {
	in, err := json.Marshal(input)
	if err != nil {
		return 0, fmt.Errorf("encode input: %w", err)
	}
	out, err := json.Marshal(response)
	if err != nil {
		return 0, fmt.Errorf("encode response: %w", err)
	}
	snap, err := json.Marshal(marketSnapshot)
	if err != nil {
		return 0, fmt.Errorf("encode market snapshot: %w", err)
	}

	var id int64
	if err := s.pool.QueryRow(ctx, insertRecommendationSQL, userID, in, out, snap).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert recommendation: %w", err)
	}
	return id, nil
}

const recentRecommendationsSQL = `
    SELECT id, user_id, input_data, ml_response, market_snapshot, created_at
    FROM agri.recommendations
    WHERE user_id = $1
    ORDER BY created_at DESC, id DESC
    LIMIT $2
`

// RecentRecommendations returns the newest records of a user. An unknown user
// yields an empty slice.
func (s *Store) RecentRecommendations(ctx context.Context, userID string, limit int) ([]RecommendationRecord, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	rows, err := s.pool.Query(ctx, recentRecommendationsSQL, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]RecommendationRecord, 0)
	for rows.Next() {
		var (
			rec                 RecommendationRecord
			input, resp, market []byte
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &input, &resp, &market, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.InputData = json.RawMessage(input)
		rec.MLResponse = json.RawMessage(resp)
		rec.MarketSnapshot = json.RawMessage(market)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Feedback is a farmer's verdict on a recommendation.
type Feedback struct {
	RecommendationID int64   `json:"recommendation_id"`
	UserID           string  `json:"user_id"`
	Helpful          bool    `json:"helpful"`
	Notes            *string `json:"notes,omitempty"`
}

const insertFeedbackSQL = `
    INSERT INTO agri.feedbacks (recommendation_id, user_id, helpful, notes)
    VALUES ($1, $2, $3, $4)
    RETURNING id
`

// SaveFeedback appends a feedback row and returns its id.
func (s *Store) SaveFeedback(ctx context.Context, f Feedback) (int64, error) {
	var id int64
	if err := s.pool.QueryRow(ctx, insertFeedbackSQL, f.RecommendationID, f.UserID, f.Helpful, f.Notes).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert feedback: %w", err)
	}
	return id, nil
}

// MarketPrice is the newest recorded price of a crop.
type MarketPrice struct {
	Crop       string    `json:"crop"`
	State      string    `json:"state"`
	Market     string    `json:"market"`
	ModalPrice float64   `json:"modal_price"`
	Timestamp  time.Time `json:"ts"`
	Source     string    `json:"source"`
}

const latestMarketPricesSQL = `
    SELECT DISTINCT ON (crop) crop, state, market, modal_price, ts, source
    FROM agri.market_prices
    WHERE $1 = '' OR lower(state) = lower($1)
    ORDER BY crop, ts DESC
`

// LatestMarketPrices returns the newest price per crop, optionally limited to
// one state ("" for all states).
func (s *Store) LatestMarketPrices(ctx context.Context, state string) ([]MarketPrice, error) {
	rows, err := s.pool.Query(ctx, latestMarketPricesSQL, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make([]MarketPrice, 0)
	for rows.Next() {
		var p MarketPrice
		if err := rows.Scan(&p.Crop, &p.State, &p.Market, &p.ModalPrice, &p.Timestamp, &p.Source); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// LatestPrices adapts LatestMarketPrices to a crop → price map.
func (s *Store) LatestPrices(ctx context.Context, state string) (map[string]float64, error) {
	prices, err := s.LatestMarketPrices(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("latest market prices: %w", err)
	}
	out := make(map[string]float64, len(prices))
	for _, p := range prices {
		out[p.Crop] = p.ModalPrice
	}
	return out, nil
}

const recommendationByIDSQL = `
    SELECT id, user_id, input_data, ml_response, market_snapshot, created_at
    FROM agri.recommendations
    WHERE id = $1
`

// RecommendationByID returns one stored recommendation or ErrNotFound.
func (s *Store) RecommendationByID(ctx context.Context, id int64) (RecommendationRecord, error) {
	var (
		rec                 RecommendationRecord
		input, resp, market []byte
	)
	err := s.pool.QueryRow(ctx, recommendationByIDSQL, id).Scan(&rec.ID, &rec.UserID, &input, &resp, &market, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RecommendationRecord{}, fmt.Errorf("recommendation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return RecommendationRecord{}, err
	}
	rec.InputData = json.RawMessage(input)
	rec.MLResponse = json.RawMessage(resp)
	rec.MarketSnapshot = json.RawMessage(market)
	return rec, nil
}
