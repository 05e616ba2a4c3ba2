package model

import "time"

// ValuationSnapshot holds valuation ratios for one security.
// Every field is independently optional; nil means no origin supplied it.
type ValuationSnapshot struct {
	DisplayName      *string
	PERatio          *float64
	PBRatio          *float64
	DividendYieldPct *float64
}

// ProfitabilitySnapshot holds profitability metrics for one security.
// Same optionality contract as ValuationSnapshot.
type ProfitabilitySnapshot struct {
	GrossMarginPct     *float64
	OperatingMarginPct *float64
	NetMarginPct       *float64
	ReturnOnEquityPct  *float64
	ReturnOnAssetsPct  *float64
	EPS                *float64
	BookValuePerShare  *float64
}

// InstitutionalFlow holds the three institutional net positions (in board
// lots) for the most recent trading session. The record is all-or-nothing:
// an origin either supplies all three legs or none.
type InstitutionalFlow struct {
	ForeignNetLots int64
	TrustNetLots   int64
	DealerNetLots  int64
}

// OwnershipConcentration compares the two most recent share-distribution
// disclosure periods. It requires at least two periods of raw data to exist.
type OwnershipConcentration struct {
	AsOfDate             time.Time
	LargeHolderPct       float64
	LargeHolderPctChange float64
	TotalHolders         int
	TotalHoldersChange   int
}
