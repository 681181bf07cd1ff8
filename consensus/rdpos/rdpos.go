// Package rdpos implements the randomized, committee-based round-robin
// consensus engine described in spec §4.7/§4.9: block production rotates
// through a deterministic shuffle of the validator set, reseeded every
// block by a commit-reveal randomness beacon contributed by a committee.
//
// This mirrors the structure of the teacher's consensus/dpos package
// (Snapshot holding the current validator view, engine holding caches and
// the signing key) but replaces Clique-style in-turn/out-of-turn signer
// rotation with a seeded Fisher-Yates shuffle over the whole validator set.
package rdpos

import (
	"crypto/aes"
	"encoding/binary"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set"
	lru "github.com/hashicorp/golang-lru"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/core/types"
	"github.com/rdpos-labs/rdchain/log"
)

var logger = log.New("pkg", "rdpos")

// recentRandomLists bounds the LRU of derived shuffles, mirroring the
// teacher's inmemorySnapshots cache (consensus/dpos/dpos.go).
const recentRandomLists = 128

// RdPoS holds the validator set, the current random list, and the
// consensus-scoped randomness beacon state (spec §4.7 "State").
type RdPoS struct {
	mu sync.RWMutex

	validators    []common.Address // genesis-derived, constant membership
	minValidators int

	bestRandomSeed common.Hash
	randomList     []common.Address // randomList[0] = producer, [1..minValidators] = committee
	committeeSet   mapset.Set       // membership view over randomList[1..minValidators], rebuilt on reseed

	cache *lru.ARCCache // bestRandomSeed -> []common.Address, shared shuffle cache
}

// New builds an engine over validators (sorted ascending by address, like
// the teacher's Snapshot.Validators) seeded by genesisSeed.
func New(validators []common.Address, minValidators int, genesisSeed common.Hash) (*RdPoS, error) {
	if len(validators) < 2*minValidators {
		return nil, types.NewError(types.KindInvalidBlock, "rdpos: validator set smaller than 2*minValidators")
	}
	sorted := make([]common.Address, len(validators))
	copy(sorted, validators)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cmp(sorted[j]) < 0 })

	cache, _ := lru.NewARC(recentRandomLists)
	r := &RdPoS{
		validators:    sorted,
		minValidators: minValidators,
		cache:         cache,
	}
	r.reseed(genesisSeed)
	return r, nil
}

// shuffle derives the deterministic randomList for seed using a
// counter-mode AES-keyed PRNG (spec §4.9: "deterministic Fisher-Yates
// driven by a counter-mode PRNG keyed by the seed").
func shuffle(validators []common.Address, seed common.Hash) []common.Address {
	out := make([]common.Address, len(validators))
	copy(out, validators)

	block, err := aes.NewCipher(seed.Bytes())
	if err != nil {
		// seed is always 32 bytes -> AES-256; NewCipher cannot fail here.
		panic(err)
	}
	var counter uint64
	nextRand := func(bound uint64) uint64 {
		var ctrBlock [16]byte
		binary.BigEndian.PutUint64(ctrBlock[8:], counter)
		counter++
		var stream [16]byte
		block.Encrypt(stream[:], ctrBlock[:])
		v := binary.BigEndian.Uint64(stream[:8])
		return v % bound
	}
	for i := len(out) - 1; i > 0; i-- {
		j := nextRand(uint64(i) + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// reseed recomputes randomList from seed, consulting the shuffle cache first.
func (r *RdPoS) reseed(seed common.Hash) {
	if cached, ok := r.cache.Get(seed); ok {
		r.bestRandomSeed = seed
		r.randomList = cached.([]common.Address)
		r.committeeSet = committeeSetOf(r.randomList, r.minValidators)
		return
	}
	list := shuffle(r.validators, seed)
	r.cache.Add(seed, list)
	r.bestRandomSeed = seed
	r.randomList = list
	r.committeeSet = committeeSetOf(list, r.minValidators)
}

// committeeSetOf builds the membership set IsCommitteeMember consults;
// a mapset.Set gives O(1) lookups instead of scanning randomList on every
// validator-tx admission.
func committeeSetOf(randomList []common.Address, minValidators int) mapset.Set {
	set := mapset.NewSet()
	for _, v := range randomList[1 : 1+minValidators] {
		set.Add(v)
	}
	return set
}

// Advance updates bestRandomSeed and reshuffles after a block is accepted
// (spec §4.7 "Post-block": bestRandomSeed <- block.blockRandomness;
// randomList <- shuffle(...)).
func (r *RdPoS) Advance(blockRandomness common.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reseed(blockRandomness)
	logger.Info("advanced random list", "seed", r.bestRandomSeed, "producer", r.randomList[0])
}

// Producer returns randomList[0] for the current round.
func (r *RdPoS) Producer() common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.randomList[0]
}

// Committee returns randomList[1..minValidators], in order.
func (r *RdPoS) Committee() []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]common.Address, r.minValidators)
	copy(out, r.randomList[1:1+r.minValidators])
	return out
}

// IsCommitteeMember implements mempool.CommitteeView.
func (r *RdPoS) IsCommitteeMember(addr common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.committeeSet.Contains(addr)
}

// CommitteePosition returns the 1-based committee slot of addr, or 0 if
// addr is not in the current committee.
func (r *RdPoS) CommitteePosition(addr common.Address) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, v := range r.randomList[1 : 1+r.minValidators] {
		if v == addr {
			return i + 1
		}
	}
	return 0
}

// MinValidators returns the static committee size.
func (r *RdPoS) MinValidators() int { return r.minValidators }

// BestRandomSeed returns the beacon value the current randomList was
// derived from.
func (r *RdPoS) BestRandomSeed() common.Hash {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bestRandomSeed
}

// heightTracker is the narrow view rdPoS needs of Storage to answer
// mempool.CommitteeView.NextHeight without importing core/storage
// directly (spec §9: inject non-owning references through construction).
type heightTracker interface {
	Latest() *types.Block
}

// Tracking wraps RdPoS together with a Storage handle to implement
// mempool.CommitteeView.NextHeight.
type Tracking struct {
	*RdPoS
	storage heightTracker
}

// NewTracking pairs engine with storage for NextHeight queries.
func NewTracking(engine *RdPoS, storage heightTracker) *Tracking {
	return &Tracking{RdPoS: engine, storage: storage}
}

// NextHeight returns the height the chain is currently assembling.
func (t *Tracking) NextHeight() uint64 {
	latest := t.storage.Latest()
	if latest == nil {
		return 1
	}
	return latest.Header.Height + 1
}
