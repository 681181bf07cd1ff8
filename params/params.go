// Package params holds the chain-wide constants and genesis-derived
// configuration: chain id, protocol contract addresses, gas accounting, and
// the rdPoS committee size.
package params

import "github.com/rdpos-labs/rdchain/common"

// Gas accounting. No fee market: gas price is effectively fixed and there is
// no EVM, so the only gas figures that matter are the flat intrinsic cost of
// a plain transfer and of a contract-dispatch call.
const (
	// IntrinsicGas is the flat cost of a plain transfer, reported by
	// estimateGas. State itself charges every transaction
	// gasLimit*maxFeePerGas rather than this figure.
	IntrinsicGas uint64 = 21000
	// ContractCallGas is the nominal extra cost of a contract-dispatch call.
	// State does not add it to the charge of a contract-targeted transaction.
	ContractCallGas uint64 = 21000
	// MinGasPrice is the gas price reported by the RPC surface (gasPrice,
	// feeHistory). The mempool does not enforce it as a floor.
	MinGasPrice uint64 = 1_000_000_000 // 1 gwei-equivalent
)

// MinValidators is the committee size per round: positions 1..MinValidators
// of randomList contribute commit-reveal randomness for the next block.
const MinValidators = 4

// RandomHashSelector and RandomSeedSelector identify the two recognized
// ValidatorTx payload kinds (§3 BlockTx/ValidatorTx).
var (
	RandomHashSelector = [4]byte{0xcf, 0xff, 0xe7, 0x46} // keccak256("randomHash")[:4]-style selector
	RandomSeedSelector = [4]byte{0x6f, 0xc5, 0xa2, 0xd6} // keccak256("randomSeed")[:4]-style selector
)

// Protocol contracts: statically addressed from genesis, never redeployed.
var (
	ContractManagerAddress = mustAddr("0x000000000000000000000000000000000000f000")
	RdPoSAddress            = mustAddr("0x000000000000000000000000000000000000f001")
)

func mustAddr(hex string) common.Address {
	addr, err := common.ParseAddress(hex)
	if err != nil {
		panic(err)
	}
	return addr
}

// ChainConfig is the static, per-genesis configuration of the network.
type ChainConfig struct {
	ChainID       uint64
	ChainOwner    common.Address
	MinValidators int
}

// DefaultMinValidators returns c.MinValidators if set, else the package default.
func (c *ChainConfig) DefaultMinValidators() int {
	if c == nil || c.MinValidators == 0 {
		return MinValidators
	}
	return c.MinValidators
}
