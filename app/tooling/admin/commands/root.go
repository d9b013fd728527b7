// Package commands contains the admin commands.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database/storage"
	"github.com/spf13/cobra"
)

var (
	dbType       string
	dbPath       string
	maxBytes     int64
	minFreeBytes uint64
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbType, "db-type", "t", storage.TypeBolt, "Type of the store: bolt, leveldb.")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db-path", "d", "zblock/chain.db", "Path to the store of the node.")
	rootCmd.PersistentFlags().Int64Var(&maxBytes, "max-bytes", 0, "Size limit of the store, zero for none.")
	rootCmd.PersistentFlags().Uint64Var(&minFreeBytes, "min-free-bytes", 64<<20, "Free space the volume must keep.")
}

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Inspect the store of a stopped node",
}

// Execute runs the command named on the command line.
func Execute(build string) {
	rootCmd.Version = build

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openDB opens the configured store. The caller closes the database.
func openDB() (*database.Database, error) {
	store, err := storage.New(dbType, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	db, err := database.New(database.Config{
		Store:        store,
		Path:         filepath.Dir(dbPath),
		MaxBytes:     maxBytes,
		MinFreeBytes: minFreeBytes,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	return db, nil
}
