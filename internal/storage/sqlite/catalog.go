package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"arbScope/internal/catalog"
	"arbScope/internal/model"
)

// Schema creates the catalog tables.
const Schema = `
CREATE TABLE IF NOT EXISTS TokenInfo (
	address  TEXT PRIMARY KEY,
	symbol   TEXT,
	name     TEXT,
	decimals INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS LPInfo (
	address        TEXT PRIMARY KEY,
	token1_address TEXT NOT NULL,
	token2_address TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS Route (
	id   INTEGER PRIMARY KEY,
	path TEXT NOT NULL
);
`

// Open opens the catalog database.
func Open(path string, readOnly bool) (*sql.DB, error) {
	dsn := "file:" + path
	if readOnly {
		dsn += "?mode=ro"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	return db, nil
}

// LoadCatalog reads tokens, pools and routes from the sqlite catalog at path.
// Rows that cannot be parsed are integrity errors.
func LoadCatalog(ctx context.Context, path string) (catalog.Data, error) {
	db, err := Open(path, true)
	if err != nil {
		return catalog.Data{}, err
	}
	defer db.Close()

	var data catalog.Data
	if data.Tokens, err = loadTokens(ctx, db); err != nil {
		return catalog.Data{}, err
	}
	if data.Pools, err = loadPools(ctx, db); err != nil {
		return catalog.Data{}, err
	}
	if data.Routes, err = loadRoutes(ctx, db); err != nil {
		return catalog.Data{}, err
	}
	return data, nil
}

func loadTokens(ctx context.Context, db *sql.DB) ([]model.Token, error) {
	rows, err := db.QueryContext(ctx, `SELECT address, symbol, name, decimals FROM TokenInfo`)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.Token
	for rows.Next() {
		var (
			address      string
			symbol, name sql.NullString
			decimals     int64
		)
		if err := rows.Scan(&address, &symbol, &name, &decimals); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		addr, err := model.ParseAddress(address)
		if err != nil {
			return nil, &catalog.IntegrityError{Kind: "token", Ref: address, Detail: err.Error()}
		}
		if decimals < 0 || decimals > 255 {
			return nil, &catalog.IntegrityError{Kind: "token", Ref: address, Detail: fmt.Sprintf("decimals %d out of range", decimals)}
		}
		tokens = append(tokens, model.Token{
			Address:  addr,
			Symbol:   symbol.String,
			Name:     name.String,
			Decimals: uint8(decimals),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return tokens, nil
}

func loadPools(ctx context.Context, db *sql.DB) ([]model.Pool, error) {
	rows, err := db.QueryContext(ctx, `SELECT address, token1_address, token2_address FROM LPInfo`)
	if err != nil {
		return nil, fmt.Errorf("query pools: %w", err)
	}
	defer rows.Close()

	var pools []model.Pool
	for rows.Next() {
		var address, token0, token1 string
		if err := rows.Scan(&address, &token0, &token1); err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		addrs, err := model.ParseAddresses([]string{address, token0, token1})
		if err != nil || len(addrs) != 3 {
			return nil, &catalog.IntegrityError{Kind: "pool", Ref: address, Detail: fmt.Sprintf("bad address: %v", err)}
		}
		pools = append(pools, model.Pool{Address: addrs[0], Token0: addrs[1], Token1: addrs[2]})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pools: %w", err)
	}
	return pools, nil
}

func loadRoutes(ctx context.Context, db *sql.DB) ([]model.Route, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, path FROM Route ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	var routes []model.Route
	for rows.Next() {
		var id, path string
		if err := rows.Scan(&id, &path); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		hops, err := ParsePath(path)
		if err != nil {
			return nil, &catalog.IntegrityError{Kind: "route", Ref: id, Detail: err.Error()}
		}
		routes = append(routes, model.Route{ID: id, Hops: hops})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate routes: %w", err)
	}
	return routes, nil
}

// ParsePath decodes a route path of the form [[target, [pool]], ...].
func ParsePath(path string) ([]model.Hop, error) {
	var entries [][]json.RawMessage
	if err := json.Unmarshal([]byte(path), &entries); err != nil {
		return nil, fmt.Errorf("decode path: %w", err)
	}

	hops := make([]model.Hop, 0, len(entries))
	for i, entry := range entries {
		if len(entry) < 2 {
			return nil, fmt.Errorf("hop %d: expected [target, [pool]]", i)
		}
		var target string
		if err := json.Unmarshal(entry[0], &target); err != nil {
			return nil, fmt.Errorf("hop %d target: %w", i, err)
		}
		var pools []string
		if err := json.Unmarshal(entry[1], &pools); err != nil {
			return nil, fmt.Errorf("hop %d pools: %w", i, err)
		}
		if len(pools) == 0 {
			return nil, fmt.Errorf("hop %d: no pool", i)
		}

		targetAddr, err := model.ParseAddress(target)
		if err != nil {
			return nil, fmt.Errorf("hop %d target: %w", i, err)
		}
		poolAddr, err := model.ParseAddress(pools[0])
		if err != nil {
			return nil, fmt.Errorf("hop %d pool: %w", i, err)
		}
		hops = append(hops, model.Hop{Target: targetAddr, Pool: poolAddr})
	}
	return hops, nil
}
