package db

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewWithConn(mock), mock
}

func TestMigrate(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE SCHEMA IF NOT EXISTS agri")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveRecommendation(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO agri.recommendations")).
		WithArgs("farmer-7", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := store.SaveRecommendation(context.Background(), "farmer-7",
		map[string]any{"soil_type": "Loamy"}, map[string]any{"model_version": "v1"}, map[string]float64{"Rice": 2300})
	if err != nil {
		t.Fatal(err)
	}
	if id != 42 {
		t.Fatalf("id = %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveRecommendationRejectsUnencodable(t *testing.T) {
	store, mock := newMockStore(t)
	if _, err := store.SaveRecommendation(context.Background(), "u", make(chan int), nil, nil); err == nil {
		t.Fatal("expected encode error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRecentRecommendations(t *testing.T) {
	store, mock := newMockStore(t)
	newer := time.Date(2024, 7, 2, 10, 0, 0, 0, time.UTC)
	older := newer.Add(-24 * time.Hour)
	rows := pgxmock.NewRows([]string{"id", "user_id", "input_data", "ml_response", "market_snapshot", "created_at"}).
		AddRow(int64(2), "farmer-7", []byte(`{"soil_type":"Clayey"}`), []byte(`{"model_version":"v1"}`), []byte(`{}`), newer).
		AddRow(int64(1), "farmer-7", []byte(`{"soil_type":"Loamy"}`), []byte(`{"model_version":"v1"}`), []byte(`{}`), older)
	mock.ExpectQuery(regexp.QuoteMeta("FROM agri.recommendations")).
		WithArgs("farmer-7", DefaultHistoryLimit).
		WillReturnRows(rows)

	got, err := store.RecentRecommendations(context.Background(), "farmer-7", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != 2 || !got[0].CreatedAt.Equal(newer) {
		t.Fatalf("unexpected records %+v", got)
	}
	var input map[string]string
	if err := json.Unmarshal(got[0].InputData, &input); err != nil || input["soil_type"] != "Clayey" {
		t.Fatalf("input data = %s (%v)", got[0].InputData, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRecentRecommendationsEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM agri.recommendations")).
		WithArgs("nobody", 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "input_data", "ml_response", "market_snapshot", "created_at"}))

	got, err := store.RecentRecommendations(context.Background(), "nobody", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestRecentRecommendationsCapsLimit(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM agri.recommendations")).
		WithArgs("farmer-7", DefaultHistoryLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "input_data", "ml_response", "market_snapshot", "created_at"}))

	if _, err := store.RecentRecommendations(context.Background(), "farmer-7", 500); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveFeedback(t *testing.T) {
	store, mock := newMockStore(t)
	notes := "yield matched"
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO agri.feedbacks")).
		WithArgs(int64(42), "farmer-7", true, &notes).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))

	id, err := store.SaveFeedback(context.Background(), Feedback{RecommendationID: 42, UserID: "farmer-7", Helpful: true, Notes: &notes})
	if err != nil || id != 3 {
		t.Fatalf("id=%d err=%v", id, err)
	}
}

func TestLatestPrices(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ON (crop)")).
		WithArgs("Punjab").
		WillReturnRows(pgxmock.NewRows([]string{"crop", "state", "market", "modal_price", "ts", "source"}).
			AddRow("Rice", "Punjab", "Khanna", 2410.0, ts, "agmarknet").
			AddRow("Wheat", "Punjab", "Khanna", 2350.0, ts, "agmarknet"))

	got, err := store.LatestPrices(context.Background(), "Punjab")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got["Rice"] != 2410 || got["Wheat"] != 2350 {
		t.Fatalf("unexpected prices %v", got)
	}
}

func TestLatestPricesError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ON (crop)")).
		WithArgs("").
		WillReturnError(errors.New("relation does not exist"))

	if _, err := store.LatestPrices(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestRecommendationByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.RecommendationByID(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
