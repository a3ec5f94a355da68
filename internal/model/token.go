package model

import "github.com/ethereum/go-ethereum/common"

// Token captures ERC20 metadata used for routing and display.
type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Decimals uint8          `json:"decimals"`
}
