package model

import "github.com/ethereum/go-ethereum/common"

// Pool is the immutable description of a two-token constant-product pool.
// Token0 is the pool's first token; reserve0 always refers to it.
type Pool struct {
	Address common.Address `json:"address"`
	Token0  common.Address `json:"token0"`
	Token1  common.Address `json:"token1"`
}

// Other returns the token of the pool that is not token, and whether token
// belongs to the pool at all.
func (p Pool) Other(token common.Address) (common.Address, bool) {
	switch token {
	case p.Token0:
		return p.Token1, true
	case p.Token1:
		return p.Token0, true
	default:
		return common.Address{}, false
	}
}

// Hop swaps through Pool, receiving Target.
type Hop struct {
	Target common.Address `json:"target"`
	Pool   common.Address `json:"pool"`
}

// Route is an ordered cycle of hops starting and ending at the base token.
type Route struct {
	ID   string `json:"id"`
	Hops []Hop  `json:"hops"`
}
