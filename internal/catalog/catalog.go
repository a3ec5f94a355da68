package catalog

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"arbScope/internal/amm"
	"arbScope/internal/model"
)

// Data is the raw catalog content as loaded from a store.
type Data struct {
	Tokens []model.Token
	Pools  []model.Pool
	Routes []model.Route
}

// Catalog is the immutable index of tokens, pools and routes.
// It is safe for concurrent readers once built.
type Catalog struct {
	base      common.Address
	tokens    map[common.Address]model.Token
	pools     map[common.Address]model.Pool
	routes    map[string]model.Route
	routeIDs  []string
	byPool    map[common.Address][]string
	poolOrder []common.Address
}

// Build validates data and indexes it. Any integrity violation aborts the build.
func Build(base common.Address, data Data) (*Catalog, error) {
	c := &Catalog{
		base:   base,
		tokens: make(map[common.Address]model.Token, len(data.Tokens)),
		pools:  make(map[common.Address]model.Pool, len(data.Pools)),
		routes: make(map[string]model.Route, len(data.Routes)),
		byPool: make(map[common.Address][]string),
	}

	for _, token := range data.Tokens {
		if _, dup := c.tokens[token.Address]; dup {
			return nil, integrity("token", token.Address.Hex(), "duplicate")
		}
		if token.Decimals > amm.MaxDecimals {
			return nil, integrity("token", token.Address.Hex(), "decimals %d exceed %d", token.Decimals, amm.MaxDecimals)
		}
		c.tokens[token.Address] = token
	}
	if _, ok := c.tokens[base]; !ok {
		return nil, integrity("token", base.Hex(), "base token not in catalog")
	}

	for _, pool := range data.Pools {
		ref := pool.Address.Hex()
		if _, dup := c.pools[pool.Address]; dup {
			return nil, integrity("pool", ref, "duplicate")
		}
		if pool.Token0 == pool.Token1 {
			return nil, integrity("pool", ref, "token0 equals token1")
		}
		if _, ok := c.tokens[pool.Token0]; !ok {
			return nil, integrity("pool", ref, "unknown token0 %s", pool.Token0.Hex())
		}
		if _, ok := c.tokens[pool.Token1]; !ok {
			return nil, integrity("pool", ref, "unknown token1 %s", pool.Token1.Hex())
		}
		c.pools[pool.Address] = pool
		c.poolOrder = append(c.poolOrder, pool.Address)
	}
	sort.Slice(c.poolOrder, func(i, j int) bool {
		return bytes.Compare(c.poolOrder[i][:], c.poolOrder[j][:]) < 0
	})

	for _, route := range data.Routes {
		if _, dup := c.routes[route.ID]; dup {
			return nil, integrity("route", route.ID, "duplicate")
		}
		if len(route.Hops) == 0 {
			return nil, integrity("route", route.ID, "no hops")
		}
		touched := make(map[common.Address]struct{}, len(route.Hops))
		for i, hop := range route.Hops {
			pool, ok := c.pools[hop.Pool]
			if !ok {
				return nil, integrity("route", route.ID, "hop %d: unknown pool %s", i, hop.Pool.Hex())
			}
			if _, ok := pool.Other(hop.Target); !ok {
				return nil, integrity("route", route.ID, "hop %d: target %s not in pool %s", i, hop.Target.Hex(), hop.Pool.Hex())
			}
			if _, seen := touched[hop.Pool]; !seen {
				touched[hop.Pool] = struct{}{}
				c.byPool[hop.Pool] = append(c.byPool[hop.Pool], route.ID)
			}
		}
		route.Hops = append([]model.Hop(nil), route.Hops...)
		c.routes[route.ID] = route
		c.routeIDs = append(c.routeIDs, route.ID)
	}

	return c, nil
}

// Base returns the base token address.
func (c *Catalog) Base() common.Address {
	return c.base
}

// BaseToken returns the base token metadata.
func (c *Catalog) BaseToken() model.Token {
	return c.tokens[c.base]
}

// TokenOf looks up token metadata.
func (c *Catalog) TokenOf(addr common.Address) (model.Token, bool) {
	token, ok := c.tokens[addr]
	return token, ok
}

// PoolOf looks up pool metadata.
func (c *Catalog) PoolOf(addr common.Address) (model.Pool, bool) {
	pool, ok := c.pools[addr]
	return pool, ok
}

// RouteOf looks up a route by id.
func (c *Catalog) RouteOf(id string) (model.Route, bool) {
	route, ok := c.routes[id]
	return route, ok
}

// RoutesTouching returns the ids of routes that use pool, each once, in catalog order.
// The returned slice must not be modified.
func (c *Catalog) RoutesTouching(pool common.Address) []string {
	return c.byPool[pool]
}

// RouteIDs returns all route ids in catalog order.
func (c *Catalog) RouteIDs() []string {
	return append([]string(nil), c.routeIDs...)
}

// PoolAddresses returns every pool address sorted by address bytes.
func (c *Catalog) PoolAddresses() []common.Address {
	return append([]common.Address(nil), c.poolOrder...)
}

// Stats reports catalog sizes.
type Stats struct {
	Tokens      int
	Pools       int
	Routes      int
	RoutedPools int
	UnusedPools int
}

// Stats returns catalog sizes.
func (c *Catalog) Stats() Stats {
	return Stats{
		Tokens:      len(c.tokens),
		Pools:       len(c.pools),
		Routes:      len(c.routes),
		RoutedPools: len(c.byPool),
		UnusedPools: len(c.pools) - len(c.byPool),
	}
}

// Lint reports route shapes that evaluate but are unlikely to be intended:
// a hop whose input is not the previous hop's output, or a route that does
// not end at the base token.
func (c *Catalog) Lint() []error {
	var findings []error
	for _, id := range c.routeIDs {
		route := c.routes[id]
		current := c.base
		for i, hop := range route.Hops {
			pool := c.pools[hop.Pool]
			in, _ := pool.Other(hop.Target)
			if in != current {
				findings = append(findings, fmt.Errorf("route %s hop %d: input %s does not follow %s", id, i, in.Hex(), current.Hex()))
			}
			current = hop.Target
		}
		if current != c.base {
			findings = append(findings, fmt.Errorf("route %s ends at %s, not base %s", id, current.Hex(), c.base.Hex()))
		}
	}
	return findings
}

// MissingTokens returns pool tokens that have no token record, in first-seen order.
func MissingTokens(data Data) []common.Address {
	known := make(map[common.Address]struct{}, len(data.Tokens))
	for _, token := range data.Tokens {
		known[token.Address] = struct{}{}
	}
	var missing []common.Address
	for _, pool := range data.Pools {
		for _, addr := range []common.Address{pool.Token0, pool.Token1} {
			if _, ok := known[addr]; ok {
				continue
			}
			known[addr] = struct{}{}
			missing = append(missing, addr)
		}
	}
	return missing
}
