// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time `json:"date"`
	ChainID       uint16    `json:"chain_id"`        // The chain id represents an unique id for this running instance.
	TransPerBlock uint16    `json:"trans_per_block"` // The maximum number of transactions that can be in a block.
	Difficulty    uint16    `json:"difficulty"`      // How difficult it needs to be to solve the work problem.
	MiningReward  uint64    `json:"mining_reward"`   // Reward for mining a block.
	GasPrice      uint64    `json:"gas_price"`       // Fee paid for each transaction mined into a block.
}

// Default returns the genesis used when no file is configured.
func Default() Genesis {
	return Genesis{
		Date:          time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:       1,
		TransPerBlock: 10,
		Difficulty:    2,
		MiningReward:  700,
		GasPrice:      15,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. An empty path returns the
// default genesis. Fields missing from the file keep their defaults.
func Load(path string) (Genesis, error) {
	genesis := Default()
	if path == "" {
		return genesis, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decode genesis: %w", err)
	}

	if genesis.TransPerBlock == 0 {
		return Genesis{}, fmt.Errorf("genesis: trans_per_block must be above zero")
	}

	return genesis, nil
}
