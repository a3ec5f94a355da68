package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const pairABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint112", "name": "reserve0", "type": "uint112"},
      {"indexed": false, "internalType": "uint112", "name": "reserve1", "type": "uint112"}
    ],
    "name": "Sync",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount0In", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount1In", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount0Out", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount1Out", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"}
    ],
    "name": "Swap",
    "type": "event"
  }
]`

const viewPairABIJSON = `[
  {
    "inputs": [{"internalType": "address[]", "name": "pairs", "type": "address[]"}],
    "name": "viewPair",
    "outputs": [{"internalType": "uint112[]", "name": "", "type": "uint112[]"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

type lazyABI struct {
	raw    string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.raw))
	})
	return l.parsed, l.err
}

var (
	pairABI     = &lazyABI{raw: pairABIJSON}
	viewPairABI = &lazyABI{raw: viewPairABIJSON}
)

// PairABI returns the parsed constant-product pair event ABI.
func PairABI() (abi.ABI, error) {
	return pairABI.get()
}

// ViewPairABI returns the parsed batch reserve reader ABI.
func ViewPairABI() (abi.ABI, error) {
	return viewPairABI.get()
}
