package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Print the confirmed blocks and the candidate.",
	RunE:  blocksRun,
}

func init() {
	rootCmd.AddCommand(blocksCmd)
}

func blocksRun(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return printBlocks(cmd.OutOrStdout(), db)
}

func printBlocks(w io.Writer, db *database.Database) error {
	top, _, err := db.Top()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Top: %s  Candidate: %s\n\n", top, db.Candidate())

	return db.ForEachHeader(func(link database.HeaderLink, header database.Header) bool {
		fmt.Fprintf(w, "Link: %s  State: %s  Number: %d  Hash: %s  Prev: %s  Txs: %d\n",
			link, header.State, header.Number, header.Hash, header.PrevBlockHash, len(header.Txs))
		return true
	})
}
