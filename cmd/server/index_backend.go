package main

import (
	"context"
	"log"

	"dropzone.gg/internal/persistence/indexdb"
	"dropzone.gg/internal/sim/catalogs"
	"dropzone.gg/internal/sim/match"
	"dropzone.gg/internal/sim/tuning"
)

// matchIndex is what main needs from the index backend; the nil-object
// variant backs -disable_db so call sites stay unconditional.
type matchIndex interface {
	RecordReport(r *match.FinalReport)
	TopPlayers(ctx context.Context, limit int) ([]indexdb.TopPlayer, error)
	Close() error
}

type noopIndex struct{}

func (noopIndex) RecordReport(*match.FinalReport) {}
func (noopIndex) TopPlayers(context.Context, int) ([]indexdb.TopPlayer, error) {
	return nil, nil
}
func (noopIndex) Close() error { return nil }

func openIndex(disabled bool, dbPath, configDir string, cat *catalogs.ItemCatalog, tune tuning.Tuning, logger *log.Logger) (matchIndex, error) {
	if disabled {
		logger.Printf("match index disabled")
		return noopIndex{}, nil
	}
	idx, err := indexdb.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	if err := idx.UpsertCatalogs(configDir, cat, tune); err != nil {
		logger.Printf("upsert catalogs: %v", err)
	}
	return idx, nil
}
