package types

import (
	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/crypto"
)

// MerkleRoot computes a binary Merkle root over leaves in order, duplicating
// the final leaf on an odd-width level (Bitcoin-style). An empty leaf set
// hashes to the zero hash, matching an empty tx list producing a predictable
// root rather than panicking.
func MerkleRoot(leaves []common.Hash) common.Hash {
	if len(leaves) == 0 {
		return common.Hash{}
	}
	level := make([]common.Hash, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]common.Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			next[i] = crypto.Keccak256Hash(level[2*i].Bytes(), level[2*i+1].Bytes())
		}
		level = next
	}
	return level[0]
}

// BlockTxMerkleRoot computes txMerkleRoot over an ordered list of user txs.
func BlockTxMerkleRoot(txs []*BlockTx) common.Hash {
	leaves := make([]common.Hash, len(txs))
	for i, tx := range txs {
		leaves[i] = tx.Hash()
	}
	return MerkleRoot(leaves)
}

// ValidatorTxMerkleRoot computes validatorMerkleRoot over an ordered list of validator txs.
func ValidatorTxMerkleRoot(txs []*ValidatorTx) common.Hash {
	leaves := make([]common.Hash, len(txs))
	for i, tx := range txs {
		leaves[i] = tx.Hash()
	}
	return MerkleRoot(leaves)
}
