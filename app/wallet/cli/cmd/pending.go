package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

type pendingTx struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Nonce uint64 `json:"nonce"`
	Value uint64 `json:"value"`
	Tip   uint64 `json:"tip"`
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Print your unconfirmed transactions.",
	RunE:  pendingRun,
}

func init() {
	rootCmd.AddCommand(pendingCmd)
}

func pendingRun(cmd *cobra.Command, args []string) error {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return err
	}

	accountID := database.PublicKeyToAccountID(privateKey.PublicKey)
	fmt.Fprintln(cmd.OutOrStdout(), "For Account:", accountID)

	resp, err := http.Get(fmt.Sprintf("%s/v1/tx/uncommitted/list/%s", url, accountID))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var txs []pendingTx
	if err := json.NewDecoder(resp.Body).Decode(&txs); err != nil {
		return err
	}

	for _, tx := range txs {
		fmt.Fprintf(cmd.OutOrStdout(), "ID: %s  To: %s  Nonce: %d  Value: %d  Tip: %d\n", tx.ID, tx.To, tx.Nonce, tx.Value, tx.Tip)
	}

	return nil
}
