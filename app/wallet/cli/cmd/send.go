package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	chainID uint16
	nonce   uint64
	to      string
	value   uint64
	tip     uint64
	data    []byte
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			return err
		}

		return sendWithDetails(cmd.OutOrStdout(), privateKey)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().Uint16VarP(&chainID, "chain", "c", 1, "Chain id of the node.")
	sendCmd.Flags().Uint64VarP(&nonce, "nonce", "n", 1, "Nonce for the transaction.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account receiving the value.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
	sendCmd.Flags().Uint64VarP(&tip, "tip", "i", 0, "Tip to send.")
	sendCmd.Flags().BytesHexVarP(&data, "data", "d", nil, "Data to send.")
	sendCmd.MarkFlagRequired("to")
}

func sendWithDetails(w io.Writer, privateKey *ecdsa.PrivateKey) error {
	toID, err := database.ToAccountID(to)
	if err != nil {
		return err
	}

	tx, err := database.NewTx(chainID, nonce, toID, value, tip, data)
	if err != nil {
		return err
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(signedTx)
	if err != nil {
		return err
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("node refused the transaction, status %d: %s", resp.StatusCode, body)
	}

	fmt.Fprintln(w, string(body))
	return nil
}
