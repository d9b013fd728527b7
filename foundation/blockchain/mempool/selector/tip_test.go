package selector_test

import (
	"testing"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/mempool/selector"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Keys of the accounts sending test transactions.
const (
	signPavel = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	signBill  = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
	signEd    = "aed31b6b5a341af8f27e66fb0b7633cf20fc27049e3eb7f6f623a4655b719ebb"
)

func sign(t *testing.T, hexKey string, nonce uint64, tip uint64) selector.Entry {
	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the key: %s", failed, err)
	}

	tx, err := database.NewTx(1, nonce, "0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76", 0, tip, nil)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the transaction: %s", failed, err)
	}

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign the transaction: %s", failed, err)
	}

	return selector.Entry{BlockTx: database.NewBlockTx(signedTx, 1, 1)}
}

func Test_TipSelect(t *testing.T) {
	tran := func(nonce uint64, hexKey string, tip uint64) selector.Entry {
		return sign(t, hexKey, nonce, tip)
	}

	type test struct {
		name    string
		txs     []selector.Entry
		howMany int
		best    []selector.Entry
	}

	tt := []test{
		{
			name: "one from second cycle",
			txs: []selector.Entry{
				tran(0, signPavel, 25),
				tran(1, signPavel, 75),
				tran(2, signPavel, 50),

				tran(0, signBill, 10),
				tran(1, signBill, 5),
				tran(2, signBill, 75),

				tran(0, signEd, 5),
				tran(1, signEd, 50),
				tran(2, signEd, 25),
			},
			howMany: 4,
			best: []selector.Entry{
				tran(0, signPavel, 25),
				tran(1, signPavel, 75),
				tran(0, signBill, 10),
				tran(0, signEd, 5),
			},
		},
		{
			name: "whole two cycles",
			txs: []selector.Entry{
				tran(0, signPavel, 25),
				tran(1, signPavel, 75),
				tran(2, signPavel, 50),

				tran(0, signBill, 10),
				tran(1, signBill, 5),
				tran(2, signBill, 75),

				tran(0, signEd, 5),
				tran(1, signEd, 50),
				tran(2, signEd, 25),
			},
			howMany: 6,
			best: []selector.Entry{
				tran(0, signPavel, 25),
				tran(1, signPavel, 75),
				tran(0, signBill, 10),
				tran(1, signBill, 5),
				tran(0, signEd, 5),
				tran(1, signEd, 50),
			},
		},
		{
			name: "take all",
			txs: []selector.Entry{
				tran(0, signPavel, 25),
				tran(1, signPavel, 75),
				tran(2, signPavel, 50),
				tran(0, signBill, 10),
				tran(1, signBill, 5),
				tran(2, signBill, 75),
				tran(0, signEd, 5),
				tran(1, signEd, 50),
				tran(2, signEd, 25),
			},
			howMany: 15,
			best: []selector.Entry{
				tran(0, signPavel, 25),
				tran(1, signPavel, 75),
				tran(2, signPavel, 50),
				tran(0, signBill, 10),
				tran(1, signBill, 5),
				tran(2, signBill, 75),
				tran(0, signEd, 5),
				tran(1, signEd, 50),
				tran(2, signEd, 25),
			},
		},
		{
			name: "first two",
			txs: []selector.Entry{
				tran(0, signPavel, 25),
				tran(1, signPavel, 75),
				tran(2, signPavel, 50),
				tran(0, signBill, 10),
				tran(1, signBill, 5),
				tran(2, signBill, 75),
				tran(0, signEd, 5),
				tran(1, signEd, 50),
				tran(2, signEd, 25),
			},
			howMany: 2,
			best: []selector.Entry{
				tran(0, signPavel, 25),
				tran(0, signBill, 10),
			},
		},
	}

	t.Log("Given the need to pick best transactions from mempool.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of transaction.", testID)
			{
				f := func(t *testing.T) {
					m := make(map[database.AccountID][]selector.Entry)
					for _, tx := range tst.txs {
						from, err := tx.FromAccount()
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to get from account: %s", failed, testID, err)
						}

						m[from] = append(m[from], tx)
					}

					sort, err := selector.Retrieve(selector.StrategyTip)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to get sort strategy function: %s", failed, testID, err)
					}

					txs := sort(m, tst.howMany)
					for _, tx := range txs {
						gotFrom, err := tx.FromAccount()
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to get from account: %s", failed, testID, err)
						}

						found := false
						for _, exp := range tst.best {
							expFrom, err := exp.FromAccount()
							if err != nil {
								t.Fatalf("\t%s\tTest %d:\tShould be able to get from account: %s", failed, testID, err)
							}

							if exp.Nonce == tx.Nonce && expFrom == gotFrom {
								found = true
								break
							}
						}

						if !found {
							t.Fatalf("\t%s\tTest %d:\tShould get back the right from/nonce: %s/%d", failed, testID, gotFrom, tx.Nonce)
						}
						t.Logf("\t%s\tTest %d:\tShould get back the right from/nonce: %s/%d", success, testID, gotFrom, tx.Nonce)
					}
				}

				t.Run(tst.name, f)
			}
		}
	}
}
