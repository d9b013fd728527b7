package storage_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database/storage"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Stores(t *testing.T) {
	types := []string{storage.TypeMemory, storage.TypeBolt, storage.TypeLevelDB}

	t.Log("Given the need to read and write chain data.")
	{
		for testID, typ := range types {
			t.Logf("\tTest %d:\tWhen using the %s store.", testID, typ)
			{
				f := func(t *testing.T) {
					store, err := storage.New(typ, filepath.Join(t.TempDir(), "chain.db"))
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to open the store: %s", failed, testID, err)
					}
					defer store.Close()

					changes := map[string][]byte{
						"\x01b": []byte("2"),
						"\x01a": []byte("1"),
						"\x02a": []byte("x"),
					}
					if err := store.PutChangeSet(changes); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to write a change set: %s", failed, testID, err)
					}

					v, err := store.Get([]byte("\x01a"))
					if err != nil || string(v) != "1" {
						t.Fatalf("\t%s\tTest %d:\tShould read back the value, got %q: %v", failed, testID, v, err)
					}
					t.Logf("\t%s\tTest %d:\tShould read back the value.", success, testID)

					var keys []string
					err = store.Seek([]byte{0x01}, func(k, v []byte) bool {
						keys = append(keys, string(k))
						return true
					})
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to seek: %s", failed, testID, err)
					}
					if len(keys) != 2 || keys[0] != "\x01a" || keys[1] != "\x01b" {
						t.Fatalf("\t%s\tTest %d:\tShould seek the prefix in key order, got %q.", failed, testID, keys)
					}
					t.Logf("\t%s\tTest %d:\tShould seek the prefix in key order.", success, testID)

					if err := store.PutChangeSet(map[string][]byte{"\x01a": nil}); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to delete: %s", failed, testID, err)
					}
					if _, err := store.Get([]byte("\x01a")); !errors.Is(err, storage.ErrKeyNotFound) {
						t.Fatalf("\t%s\tTest %d:\tShould delete on a nil value, got %v.", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould delete on a nil value.", success, testID)

					if _, err := store.Size(); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to report the size: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to report the size.", success, testID)
				}

				t.Run(typ, f)
			}
		}
	}
}

func Test_UnknownStore(t *testing.T) {
	t.Log("Given the need to reject unknown store types.")
	{
		t.Logf("\tTest 0:\tWhen asking for a store that does not exist.")
		{
			if _, err := storage.New("paper", t.TempDir()); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould get an error.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get an error.", success)
		}
	}
}
