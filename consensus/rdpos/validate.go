package rdpos

import (
	"bytes"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/core/types"
	"github.com/rdpos-labs/rdchain/crypto"
)

// ValidateBlock checks block's consensus-level fields against the random
// list derived from bestRandomSeed at the time block was produced (spec
// §4.9 "Validation" and the worked example at §8.2). It does not touch
// Storage or Ledger state; callers run it before ledger-level validation,
// mirroring the teacher's split between verifyHeader (cheap, structural)
// and the later state-processor checks (consensus/dpos/dpos.go Verify*).
func (r *RdPoS) ValidateBlock(block *types.Block) error {
	r.mu.RLock()
	randomList := r.randomList
	minValidators := r.minValidators
	r.mu.RUnlock()

	producer, err := block.RecoverProducer()
	if err != nil {
		return types.NewError(types.KindInvalidSignature, "rdpos: cannot recover producer: "+err.Error())
	}
	if producer != randomList[0] {
		return types.NewError(types.KindInvalidBlock, "rdpos: producer mismatch")
	}

	want := 2 * minValidators
	if len(block.ValidatorTxs) != want {
		return types.NewError(types.KindInvalidBlock, "rdpos: wrong validator tx count")
	}

	committee := randomList[1 : 1+minValidators]
	var seeds [][]byte
	for i := 0; i < minValidators; i++ {
		hashTx := block.ValidatorTxs[i]
		seedTx := block.ValidatorTxs[minValidators+i]
		slot := committee[i]

		if hashTx.From != slot || seedTx.From != slot {
			return types.NewError(types.KindInvalidBlock, "rdpos: validator tx signer does not match committee slot")
		}
		if hashTx.Height != block.Header.Height || seedTx.Height != block.Header.Height {
			return types.NewError(types.KindInvalidBlock, "rdpos: validator tx height does not match block height")
		}
		if hashTx.Selector() != types.SelectorRandomHash {
			return types.NewError(types.KindInvalidBlock, "rdpos: expected randomHash selector")
		}
		if seedTx.Selector() != types.SelectorRandomSeed {
			return types.NewError(types.KindInvalidBlock, "rdpos: expected randomSeed selector")
		}
		hashPayload := hashTx.Payload()
		seedPayload := seedTx.Payload()
		if !bytes.Equal(crypto.Keccak256(seedPayload[:]), hashPayload[:]) {
			return types.NewError(types.KindInvalidBlock, "rdpos: seed does not match committed hash")
		}
		seeds = append(seeds, seedPayload[:])
	}

	wantRandomness := crypto.Keccak256Hash(seeds...)
	if block.Header.BlockRandomness != wantRandomness {
		return types.NewError(types.KindInvalidBlock, "rdpos: blockRandomness mismatch")
	}
	return nil
}

// ValidatorTxOrder lays out the 2*minValidators validator txs passed in the
// canonical order the producer must assemble them in: all randomHash txs by
// ascending committee position, then all randomSeed txs in the same order
// (spec §4.9 "Each round").
func (r *RdPoS) ValidatorTxOrder(hashBySlot, seedBySlot map[common.Address]*types.ValidatorTx) ([]*types.ValidatorTx, error) {
	r.mu.RLock()
	committee := append([]common.Address(nil), r.randomList[1:1+r.minValidators]...)
	r.mu.RUnlock()

	out := make([]*types.ValidatorTx, 0, 2*len(committee))
	for _, slot := range committee {
		tx, ok := hashBySlot[slot]
		if !ok {
			return nil, types.NewError(types.KindInvalidBlock, "rdpos: missing randomHash for committee slot")
		}
		out = append(out, tx)
	}
	for _, slot := range committee {
		tx, ok := seedBySlot[slot]
		if !ok {
			return nil, types.NewError(types.KindInvalidBlock, "rdpos: missing randomSeed for committee slot")
		}
		out = append(out, tx)
	}
	return out, nil
}
