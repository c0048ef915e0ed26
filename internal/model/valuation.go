package model

// ValuationResult is the output of one DCF evaluation. EquityValue equals
// EnterpriseValue minus net debt when net debt is known, otherwise it
// equals EnterpriseValue. FairValuePerShare is nil whenever shares
// outstanding is unknown or non-positive.
type ValuationResult struct {
	EnterpriseValue   float64  `json:"enterprise_value"`
	EquityValue       float64  `json:"equity_value"`
	FairValuePerShare *float64 `json:"fair_value_per_share,omitempty"`
}

// ValueRange is the sensitivity interval from the assumption grid.
type ValueRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}
