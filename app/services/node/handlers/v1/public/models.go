package public

import (
	"math/big"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/nameservice"
	"github.com/ardanlabs/chasenode/foundation/validate"
)

// submitTx is the signed transaction a wallet submits.
type submitTx struct {
	ChainID uint16   `json:"chain_id" validate:"required"`
	Nonce   uint64   `json:"nonce" validate:"required"`
	ToID    string   `json:"to" validate:"required,startswith=0x,len=42"`
	Value   uint64   `json:"value"`
	Tip     uint64   `json:"tip"`
	Data    []byte   `json:"data"`
	V       *big.Int `json:"v" validate:"required"`
	R       *big.Int `json:"r" validate:"required"`
	S       *big.Int `json:"s" validate:"required"`
}

// Validate checks the tags of the submitted transaction.
func (st submitTx) Validate() error {
	return validate.Check(st)
}

func (st submitTx) toSignedTx() database.SignedTx {
	return database.SignedTx{
		Tx: database.Tx{
			ChainID: st.ChainID,
			Nonce:   st.Nonce,
			ToID:    database.AccountID(st.ToID),
			Value:   st.Value,
			Tip:     st.Tip,
			Data:    st.Data,
		},
		V: st.V,
		R: st.R,
		S: st.S,
	}
}

// tx is the view of an unconfirmed transaction.
type tx struct {
	Link        database.TxLink    `json:"link"`
	ID          string             `json:"id"`
	FromAccount database.AccountID `json:"from"`
	FromName    string             `json:"from_name"`
	To          database.AccountID `json:"to"`
	ToName      string             `json:"to_name"`
	ChainID     uint16             `json:"chain_id"`
	Nonce       uint64             `json:"nonce"`
	Value       uint64             `json:"value"`
	Tip         uint64             `json:"tip"`
	Data        []byte             `json:"data"`
	TimeStamp   uint64             `json:"timestamp"`
	GasPrice    uint64             `json:"gas_price"`
	GasUnits    uint64             `json:"gas_units"`
	Sig         string             `json:"sig"`
}

func toTx(ns *nameservice.NameService, link database.TxLink, blockTx database.BlockTx) tx {
	account, _ := blockTx.FromAccount()

	return tx{
		Link:        link,
		ID:          blockTx.ID(),
		FromAccount: account,
		FromName:    ns.Lookup(account),
		To:          blockTx.ToID,
		ToName:      ns.Lookup(blockTx.ToID),
		ChainID:     blockTx.ChainID,
		Nonce:       blockTx.Nonce,
		Value:       blockTx.Value,
		Tip:         blockTx.Tip,
		Data:        blockTx.Data,
		TimeStamp:   blockTx.TimeStamp,
		GasPrice:    blockTx.GasPrice,
		GasUnits:    blockTx.GasUnits,
		Sig:         blockTx.SignatureString(),
	}
}
