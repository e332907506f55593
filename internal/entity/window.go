package entity

import (
	"fmt"
	"time"
)

// Status is the reconciliation label of a window. It is assigned exactly
// once per build and never transitions afterwards.
type Status string

const (
	// StatusProposed means no replay has been attempted.
	StatusProposed Status = "Proposed"
	// StatusFinalized means a replay summary exists and matches the
	// window's committed fields exactly.
	StatusFinalized Status = "Finalized"
	// StatusDisputed means a replay was attempted but either produced
	// no summary or a summary that differs from the committed fields.
	StatusDisputed Status = "Disputed"
)

// Window is one billing record for a (day, owner) pair.
type Window struct {
	Owner         string    `json:"owner"`
	ServiceID     string    `json:"service_id"`
	WindowID      string    `json:"window_id"`
	FromTS        time.Time `json:"from_ts"`
	ToTS          time.Time `json:"to_ts"`
	GrossSpent    int64     `json:"gross_spent"`
	OperatorShare int64     `json:"operator_share"`
	ProtocolFee   int64     `json:"protocol_fee"`
	ReserveLocked int64     `json:"reserve_locked"`
	TopNShare     float64   `json:"top_n_share"`
	OperatorCount int       `json:"operator_count"`
	FromTxID      int64     `json:"from_tx_id"`
	ToTxID        int64     `json:"to_tx_id"`
	EvidenceHash  string    `json:"evidence_hash"`
	Status        Status    `json:"status"`

	ReplaySummary *ReplaySummary `json:"replay_summary"`
	ReplayHash    *string        `json:"replay_hash"`

	// TxCount is the number of source records folded into the window.
	// It is carried for range assignment and replay comparison but not
	// emitted; to_tx_id - from_tx_id restates it.
	TxCount int64 `json:"-"`
}

// Summary restates the window's committed billing fields in replay form.
func (w Window) Summary() ReplaySummary {
	return ReplaySummary{
		FromTxID:      w.FromTxID,
		ToTxID:        w.ToTxID,
		TxCount:       w.TxCount,
		GrossSpent:    w.GrossSpent,
		OperatorShare: w.OperatorShare,
		ProtocolFee:   w.ProtocolFee,
		ReserveLocked: w.ReserveLocked,
	}
}

// EvidencePayload is the canonical tuple committed by the evidence hash.
func (w Window) EvidencePayload() string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%d",
		w.Owner, w.ServiceID, w.WindowID, w.FromTxID, w.ToTxID, w.GrossSpent)
}

// ReplaySummary is an independently stated recomputation of a window's
// billing fields, compared field for field during reconciliation.
type ReplaySummary struct {
	FromTxID      int64 `json:"from_tx_id"`
	ToTxID        int64 `json:"to_tx_id"`
	TxCount       int64 `json:"tx_count"`
	GrossSpent    int64 `json:"gross_spent"`
	OperatorShare int64 `json:"operator_share"`
	ProtocolFee   int64 `json:"protocol_fee"`
	ReserveLocked int64 `json:"reserve_locked"`
}

// Canonical serializes the summary with keys in alphabetical order and
// no whitespace, the form the replay hash is computed over.
func (s ReplaySummary) Canonical() string {
	return fmt.Sprintf(
		`{"from_tx_id":%d,"gross_spent":%d,"operator_share":%d,"protocol_fee":%d,"reserve_locked":%d,"to_tx_id":%d,"tx_count":%d}`,
		s.FromTxID, s.GrossSpent, s.OperatorShare, s.ProtocolFee, s.ReserveLocked, s.ToTxID, s.TxCount)
}
