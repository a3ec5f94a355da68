package model

// ReplayRecord is one line of a reserve-update replay file.
type ReplayRecord struct {
	Pool        string `json:"pool"`
	Reserve0    string `json:"reserve0"`
	Reserve1    string `json:"reserve1"`
	BlockNumber uint64 `json:"block_number,omitempty"`
}
