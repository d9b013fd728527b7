package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var capacityCmd = &cobra.Command{
	Use:   "capacity",
	Short: "Print the size of the store and whether it is full.",
	RunE:  capacityRun,
}

func init() {
	rootCmd.AddCommand(capacityCmd)
}

func capacityRun(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return printCapacity(cmd.OutOrStdout(), db)
}

func printCapacity(w io.Writer, db *database.Database) error {
	size, err := db.Size()
	if err != nil {
		return err
	}

	full, err := db.IsFull()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Size: %d bytes  Limit: %d bytes  Full: %t\n", size, maxBytes, full)
	return nil
}
