package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealdesk/dealdesk/pkg/configuration"
)

func connectDB(ctx context.Context) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, configuration.Use().Database.Opts)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
