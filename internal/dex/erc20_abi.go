package dex

import "github.com/ethereum/go-ethereum/accounts/abi"

const erc20ABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

// Some older tokens return bytes32 for symbol and name.
const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20StringABI  = &lazyABI{raw: erc20ABIStringJSON}
	erc20Bytes32ABI = &lazyABI{raw: erc20ABIBytes32JSON}
)

func erc20ABIs() (abi.ABI, abi.ABI, error) {
	str, err := erc20StringABI.get()
	if err != nil {
		return abi.ABI{}, abi.ABI{}, err
	}
	b32, err := erc20Bytes32ABI.get()
	if err != nil {
		return abi.ABI{}, abi.ABI{}, err
	}
	return str, b32, nil
}
