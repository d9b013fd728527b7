package database

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ardanlabs/chasenode/foundation/blockchain/merkle"
	"github.com/ardanlabs/chasenode/foundation/blockchain/signature"
)

// ErrChainForked is returned from Validate if another node's chain is two or
// more blocks ahead of ours.
var ErrChainForked = errors.New("blockchain forked, start resync")

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64    `json:"number"`          // Ethereum: Block number in the chain.
	PrevBlockHash string    `json:"prev_block_hash"` // Bitcoin: Hash of the previous block in the chain.
	TimeStamp     uint64    `json:"timestamp"`       // Bitcoin: Time the block was mined.
	BeneficiaryID AccountID `json:"beneficiary"`     // Ethereum: The account who is receiving fees and tips.
	Difficulty    uint16    `json:"difficulty"`      // Ethereum: Number of 0's needed to solve the hash solution.
	MiningReward  uint64    `json:"mining_reward"`   // Ethereum: The reward for mining this block.
	TransRoot     string    `json:"trans_root"`      // Bitcoin/Ethereum: Merkle root hash of the transactions in this block.
	Nonce         uint64    `json:"nonce"`           // Bitcoin: Value identified to solve the hash solution.
}

// Hash returns the unique hash for the header. The genesis position has the
// zero hash.
func (bh BlockHeader) Hash() string {
	if bh.Number == 0 {
		return signature.ZeroHash
	}

	return signature.Hash(bh)
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  []BlockTx
}

// Hash returns the unique hash for the Block. Only the header is hashed so
// the chain can be checked with headers alone.
func (b Block) Hash() string {
	return b.Header.Hash()
}

// Validate takes a block and validates it to be included into the blockchain
// on top of the specified parent.
func (b Block) Validate(parent Header) error {

	// The node who sent this block has a chain that is two or more blocks ahead
	// of ours. This means there has been a fork and we are on the wrong side.
	nextNumber := parent.Number + 1
	if b.Header.Number >= (nextNumber + 2) {
		return ErrChainForked
	}

	if b.Header.Number != nextNumber {
		return fmt.Errorf("this block is not the next number, got %d, exp %d", b.Header.Number, nextNumber)
	}

	if b.Header.Difficulty < parent.Difficulty {
		return fmt.Errorf("block difficulty is less than parent block difficulty, parent %d, block %d", parent.Difficulty, b.Header.Difficulty)
	}

	hash := b.Hash()
	if !isHashSolved(b.Header.Difficulty, hash) {
		return fmt.Errorf("%s invalid block hash", hash)
	}

	if b.Header.PrevBlockHash != parent.Hash {
		return fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", b.Header.PrevBlockHash, parent.Hash)
	}

	if parent.TimeStamp > 0 {
		parentTime := time.UnixMilli(int64(parent.TimeStamp))
		blockTime := time.UnixMilli(int64(b.Header.TimeStamp))
		if blockTime.Before(parentTime) {
			return fmt.Errorf("block timestamp is before parent block, parent %s, block %s", parentTime, blockTime)
		}
	}

	root, err := merkle.RootHex(b.Trans)
	if err != nil {
		return err
	}

	if b.Header.TransRoot != root {
		return fmt.Errorf("merkle root does not match transactions, got %s, exp %s", root, b.Header.TransRoot)
	}

	return nil
}

// Solve does the work of mining to find a nonce that solves the hash of the
// block for its difficulty. It returns the number of attempts made.
func (b *Block) Solve(ctx context.Context) (uint64, error) {

	// Choose a random starting point for the nonce. After this, the nonce
	// will be incremented by 1 until a solution is found.
	nBig, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, err
	}
	b.Header.Nonce = nBig.Uint64()

	var attempts uint64
	for {
		attempts++

		if err := ctx.Err(); err != nil {
			return attempts, err
		}

		if isHashSolved(b.Header.Difficulty, b.Hash()) {
			return attempts, nil
		}

		b.Header.Nonce++
	}
}

// isHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of 0's after the 0x prefix.
func isHashSolved(difficulty uint16, hash string) bool {
	const match = "0x00000000000000000"

	if len(hash) != 66 {
		return false
	}

	if int(difficulty)+2 > len(match) {
		return false
	}

	return hash[:difficulty+2] == match[:difficulty+2]
}

// =============================================================================

// BlockData represents what is sent over the network and what the admin
// tooling prints.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []BlockTx   `json:"trans"`
}

// NewBlockData constructs the value to serialize.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Trans,
	}
}

// ToBlock converts BlockData into a Block.
func ToBlock(blockData BlockData) Block {
	return Block{
		Header: blockData.Header,
		Trans:  blockData.Trans,
	}
}

// =============================================================================

// HeaderState describes what a stored header represents.
type HeaderState uint8

// Set of header states.
const (
	StateConfirmed HeaderState = iota + 1
	StateCandidate
)

// String implements the fmt.Stringer interface for logging.
func (s HeaderState) String() string {
	switch s {
	case StateConfirmed:
		return "confirmed"
	case StateCandidate:
		return "candidate"
	}
	return "unknown"
}

// Header is the record stored for every confirmed block and every
// candidate. Transactions are held by link.
type Header struct {
	BlockHeader
	Hash  string      `json:"hash"`
	State HeaderState `json:"state"`
	Txs   []TxLink    `json:"txs"`
}

// genesisHeader is the header that sits below the first block.
func genesisHeader(difficulty uint16) Header {
	return Header{
		BlockHeader: BlockHeader{
			Difficulty: difficulty,
		},
		Hash:  signature.ZeroHash,
		State: StateConfirmed,
	}
}
