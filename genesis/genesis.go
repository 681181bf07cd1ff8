// Package genesis loads the initial chain state (spec §6 "Genesis inputs"),
// mirroring the teacher's params.ChainConfig / core.Genesis split: a static
// struct literal plus a SetupGenesisBlock-style import function, no
// file-format parsing (loading from disk is out of scope, spec §1).
package genesis

import (
	"crypto/ecdsa"

	"github.com/holiman/uint256"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/consensus/rdpos"
	"github.com/rdpos-labs/rdchain/core/ledger"
	"github.com/rdpos-labs/rdchain/core/types"
	"github.com/rdpos-labs/rdchain/crypto"
	"github.com/rdpos-labs/rdchain/params"
	"github.com/rdpos-labs/rdchain/tosdb"
)

// Balance pairs an address with the native balance it is minted at genesis.
type Balance struct {
	Address common.Address
	Amount  *uint256.Int
}

// Genesis is the full set of genesis inputs named in spec §6.
type Genesis struct {
	ChainID          uint64
	ChainOwner       common.Address
	GenesisBalances  []Balance
	Validators       []common.Address
	GenesisTimestamp uint64
	GenesisSignerKey *ecdsa.PrivateKey

	// Node-local wiring, carried on the struct rather than threaded as
	// separate SetupNode parameters (teacher's core.Genesis keeps node-local
	// config, e.g. NetworkId, alongside chain-wide fields the same way).
	WSPort            int
	HTTPPort          int
	DiscoveryNodes    []string
	ValidatorPrivKey  *ecdsa.PrivateKey // nil unless this node is a validator
}

// ChainConfig derives the static params.ChainConfig for this genesis.
func (g *Genesis) ChainConfig() *params.ChainConfig {
	return &params.ChainConfig{
		ChainID:       g.ChainID,
		ChainOwner:    g.ChainOwner,
		MinValidators: params.MinValidators,
	}
}

// Import mints every genesis balance into l, persists the validator set
// under rdPoS/i → address per spec §6's persisted-state layout, and builds
// the rdPoS engine seeded for height 1. It is the only path besides
// transfer-driven credits allowed to move native balance (spec §5 "admin
// credit paths").
func Import(g *Genesis, l *ledger.Ledger, db tosdb.KeyValueStore) (*rdpos.RdPoS, error) {
	for _, b := range g.GenesisBalances {
		l.Credit(b.Address, b.Amount)
	}

	var batch []tosdb.KV
	for i, addr := range g.Validators {
		batch = append(batch, tosdb.KV{Key: validatorIndexKey(uint64(i)), Value: append([]byte(nil), addr.Bytes()...)})
	}
	if len(batch) > 0 {
		if err := db.PutBatch(tosdb.PrefixRdPoS, batch); err != nil {
			return nil, types.NewError(types.KindIo, err.Error())
		}
	}

	return rdpos.New(g.Validators, params.MinValidators, genesisSeed(g))
}

func validatorIndexKey(i uint64) []byte {
	var b [8]byte
	for j := 0; j < 8; j++ {
		b[7-j] = byte(i >> (8 * j))
	}
	return b[:]
}

// LoadValidators reads back the rdPoS/i → address entries written by Import,
// in ascending index order, for node restart.
func LoadValidators(db tosdb.KeyValueStore) ([]common.Address, error) {
	keys, err := db.GetKeys(tosdb.PrefixRdPoS, nil, nil)
	if err != nil {
		return nil, err
	}
	out := make([]common.Address, len(keys))
	for _, k := range keys {
		i := beUint64(k)
		if i >= uint64(len(out)) {
			continue
		}
		raw, err := db.Get(tosdb.PrefixRdPoS, k)
		if err != nil {
			return nil, err
		}
		out[i] = common.BytesToAddress(raw)
	}
	return out, nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// genesisSeed derives the initial bestRandomSeed: the keccak-256 hash of the
// genesis timestamp and chain id, giving every node the same seed without
// requiring an out-of-band value (spec §4.2 randomList "keyed by the current
// bestRandomSeed"; genesis has no prior block to draw one from).
func genesisSeed(g *Genesis) common.Hash {
	var buf [16]byte
	putUint64(buf[0:8], g.ChainID)
	putUint64(buf[8:16], g.GenesisTimestamp)
	return crypto.Keccak256Hash(buf[:])
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * i))
	}
}
