package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var unconfirmedOnly bool

var txsCmd = &cobra.Command{
	Use:   "txs",
	Short: "Print the stored transactions.",
	RunE:  txsRun,
}

func init() {
	rootCmd.AddCommand(txsCmd)
	txsCmd.Flags().BoolVarP(&unconfirmedOnly, "unconfirmed", "u", false, "Only print transactions no block confirms.")
}

func txsRun(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return printTxs(cmd.OutOrStdout(), db, unconfirmedOnly)
}

func printTxs(w io.Writer, db *database.Database, unconfirmed bool) error {
	type record struct {
		link database.TxLink
		tx   database.BlockTx
	}

	// The store is read in full before the block index is queried so no
	// lookup runs inside the iteration.
	var records []record
	err := db.ForEachTx(func(link database.TxLink, tx database.BlockTx) bool {
		records = append(records, record{link: link, tx: tx})
		return true
	})
	if err != nil {
		return err
	}

	for _, rec := range records {
		block := "unconfirmed"

		header, err := db.TxBlock(rec.link)
		switch {
		case err == nil:
			if unconfirmed {
				continue
			}
			block = header.String()

		case !errors.Is(err, database.ErrNotFound):
			return err
		}

		from, err := rec.tx.FromAccount()
		if err != nil {
			from = "unknown"
		}

		fmt.Fprintf(w, "Link: %s  ID: %s  From: %s  To: %s  Nonce: %d  Value: %d  Tip: %d  Block: %s\n",
			rec.link, rec.tx.ID(), from, rec.tx.ToID, rec.tx.Nonce, rec.tx.Value, rec.tx.Tip, block)
	}

	return nil
}
