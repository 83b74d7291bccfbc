package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/crop-advisor/services/watcher/internal/agmarknet"
	"github.com/02loveslollipop/crop-advisor/services/watcher/internal/config"
	"github.com/02loveslollipop/crop-advisor/services/watcher/internal/db"
	"github.com/02loveslollipop/crop-advisor/services/watcher/internal/utils"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("watcher failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout+10*time.Second)
	defer cancel()

	client := &http.Client{Timeout: cfg.RequestTimeout}
	retrievalTS := time.Now().UTC().Truncate(time.Second)

	rows, err := agmarknet.FetchPriceTable(ctx, client, cfg.SourceURL)
	if err != nil {
		return err
	}
	log.Printf("fetched %d price rows from %s", len(rows), cfg.SourceURL)

	candidates := utils.BuildPriceCandidates(rows, retrievalTS, cfg.DefaultState)
	if len(candidates) == 0 {
		log.Printf("no tracked crops in price table (retrieval=%s)", retrievalTS.Format(time.RFC3339))
		return nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	lastMap, err := db.FetchLastPrices(ctx, pool, utils.CropNames(candidates))
	if err != nil {
		return err
	}

	pending := utils.FilterNewPrices(candidates, lastMap, cfg.MinInterval, cfg.ValueEpsilon)
	if len(pending) == 0 {
		log.Printf("no new prices to insert (retrieval=%s)", retrievalTS.Format(time.RFC3339))
		return nil
	}

	log.Printf("prepared %d new prices (dry-run=%v)", len(pending), cfg.DryRun)

	if cfg.DryRun {
		for _, cand := range pending {
			log.Printf("dry-run: would insert crop=%s state=%s market=%s price=%s", cand.Crop, cand.State, cand.Market, utils.PriceString(cand.ModalPrice))
		}
		return nil
	}

	if err := db.InsertPrices(ctx, pool, pending); err != nil {
		return err
	}

	log.Printf("inserted %d prices", len(pending))
	return nil
}
