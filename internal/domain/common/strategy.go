package common

// Action is a trade recommendation attached to an asset.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	}
	return false
}

// ParsedRow is one (asset, percentage, action) triple extracted from an
// imported strategy document. Action is empty when the document carries no
// recommendation for the row.
type ParsedRow struct {
	Asset      string  `json:"asset"`
	Percentage float64 `json:"percentage"`
	Action     Action  `json:"action,omitempty"`
}
