package models

import "time"

// DataPoint is one scorable unit (an invoice line, a transaction) supplied
// per detection call. Features must have the same length across a batch.
type DataPoint struct {
	ID       string                 `json:"id"`
	Features []float64              `json:"features"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// AnomalyType tags the detector path that produced a result. The set is
// closed so consumers can match exhaustively.
type AnomalyType string

const (
	AnomalyPriceOutlier       AnomalyType = "price_outlier"
	AnomalyQuantityOutlier    AnomalyType = "quantity_outlier"
	AnomalyStatisticalOutlier AnomalyType = "statistical_outlier"
	AnomalySharedBankAccount  AnomalyType = "shared_bank_account"
	AnomalyCircularPayment    AnomalyType = "circular_payment"
	AnomalyUnusualVendorPair  AnomalyType = "unusual_vendor_relationship"
)

// AnomalyResult is produced 1:1 with input DataPoints by the outlier scorer,
// or keyed by transaction for the graph analyzer.
type AnomalyResult struct {
	PointID     string      `json:"point_id"`
	IsAnomaly   bool        `json:"is_anomaly"`
	Score       float64     `json:"score"` // 0-1
	AnomalyType AnomalyType `json:"anomaly_type,omitempty"`
	Details     string      `json:"details,omitempty"`
}

// TransactionNode is one payment record used by the graph analyzer.
// TargetVendorID is set only when the transaction is an inter-vendor
// transfer; BankAccount is the settlement account when known.
type TransactionNode struct {
	ID             string    `json:"id"`
	VendorID       string    `json:"vendor_id"`
	Amount         float64   `json:"amount"`
	BankAccount    string    `json:"bank_account,omitempty"`
	TargetVendorID string    `json:"target_vendor_id,omitempty"`
	Date           time.Time `json:"date"`
}
