package peer_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database/dbtest"
	"github.com/ardanlabs/chasenode/foundation/blockchain/peer"
	"go.uber.org/zap"
)

const (
	success = dbtest.Success
	failed  = dbtest.Failed
)

func Test_PeerSet(t *testing.T) {
	t.Log("Given the need to manage the known peers.")
	{
		ps := peer.NewPeerSet("host1", "host2")

		t.Logf("\tTest 0:\tWhen adding peers.")
		{
			if !ps.Add(peer.New("host3")) {
				t.Fatalf("\t%s\tTest 0:\tShould add a new peer.", failed)
			}
			if ps.Add(peer.New("host1")) {
				t.Fatalf("\t%s\tTest 0:\tShould not add a known peer twice.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould add each peer once.", success)
		}

		t.Logf("\tTest 1:\tWhen copying the peers for a host.")
		{
			peers := ps.Copy("host2")
			if len(peers) != 2 || peers[0].Host != "host1" || peers[1].Host != "host3" {
				t.Fatalf("\t%s\tTest 1:\tShould exclude the host, got %v.", failed, peers)
			}
			t.Logf("\t%s\tTest 1:\tShould exclude the host.", success)
		}

		t.Logf("\tTest 2:\tWhen removing a peer.")
		{
			ps.Remove(peer.New("host3"))
			if peers := ps.Copy(""); len(peers) != 2 {
				t.Fatalf("\t%s\tTest 2:\tShould remove the peer, got %v.", failed, peers)
			}
			t.Logf("\t%s\tTest 2:\tShould remove the peer.", success)
		}
	}
}

func Test_Relay(t *testing.T) {
	t.Log("Given the need to relay transactions and blocks to the known peers.")
	{
		var mu sync.Mutex
		var txs []database.BlockTx
		var blocks []database.BlockData

		snapshot := func() ([]database.BlockTx, []database.BlockData) {
			mu.Lock()
			defer mu.Unlock()
			return append([]database.BlockTx(nil), txs...), append([]database.BlockData(nil), blocks...)
		}

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()

			switch r.URL.Path {
			case "/v1/node/tx/add":
				var tx database.BlockTx
				if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				txs = append(txs, tx)

			case "/v1/node/block/next":
				var bd database.BlockData
				if err := json.NewDecoder(r.Body).Decode(&bd); err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				blocks = append(blocks, bd)

			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		db := dbtest.NewDB(t, 0)
		tx := dbtest.NewTx(t, 1, 0)
		link, _, err := db.StoreTx(tx)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to store the tx: %s", failed, err)
		}

		self := "127.0.0.1:1"
		peers := peer.NewPeerSet(strings.TrimPrefix(srv.URL, "http://"), self)
		relay := peer.NewRelay(zap.NewNop().Sugar(), self, peers, db)

		t.Logf("\tTest 0:\tWhen a transaction is announced.")
		{
			relay.Observe(chase.NewEvent(chase.KindTransaction, chase.TxPayload(link)))

			got, _ := snapshot()
			if len(got) != 1 || got[0].ID() != tx.ID() {
				t.Fatalf("\t%s\tTest 0:\tShould send the tx to the peer once, got %d.", failed, len(got))
			}
			t.Logf("\t%s\tTest 0:\tShould send the tx to the peer once.", success)
		}

		t.Logf("\tTest 1:\tWhen a block is confirmed.")
		{
			block := database.Block{
				Header: database.BlockHeader{Number: 1},
				Trans:  []database.BlockTx{tx},
			}
			header, err := db.AppendBlock(block)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to append the block: %s", failed, err)
			}

			relay.Observe(chase.NewEvent(chase.KindConfirmed, chase.HeaderPayload(header)))

			_, got := snapshot()
			if len(got) != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould propose the block to the peer once, got %d.", failed, len(got))
			}
			t.Logf("\t%s\tTest 1:\tShould propose the block to the peer once.", success)

			if got[0].Hash != block.Hash() || len(got[0].Trans) != 1 || got[0].Trans[0].ID() != tx.ID() {
				t.Fatalf("\t%s\tTest 1:\tShould send the full block, got %s.", failed, got[0].Hash)
			}
			t.Logf("\t%s\tTest 1:\tShould send the full block.", success)
		}

		t.Logf("\tTest 2:\tWhen another event is observed.")
		{
			relay.Observe(chase.NewEvent(chase.KindResume, chase.NoPayload()))

			txs, blocks := snapshot()
			if len(txs) != 1 || len(blocks) != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould ignore it, got %d/%d.", failed, len(txs), len(blocks))
			}
			t.Logf("\t%s\tTest 2:\tShould ignore it.", success)
		}
	}
}
