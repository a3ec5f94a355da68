package model

// Report is the persisted record of one route evaluation.
type Report struct {
	RouteID     string      `json:"route_id"`
	Outcome     string      `json:"outcome"`
	Path        string      `json:"path"`
	TriggerPool string      `json:"trigger_pool"`
	BlockNumber uint64      `json:"block_number,omitempty"`
	StartAmount string      `json:"start_amount"`
	FinalAmount string      `json:"final_amount"`
	Profit      string      `json:"profit"`
	ProfitRaw   string      `json:"profit_raw"`
	Hops        []HopReport `json:"hops,omitempty"`
	Error       string      `json:"error,omitempty"`
	DetectedAt  string      `json:"detected_at"`
}

// HopReport is the per-hop part of a Report.
type HopReport struct {
	Pool           string `json:"pool"`
	Symbol         string `json:"symbol"`
	AmountOut      string `json:"amount_out"`
	TargetIsToken0 bool   `json:"target_is_token0"`
	NotReady       bool   `json:"not_ready,omitempty"`
	Trace          string `json:"trace"`
}
