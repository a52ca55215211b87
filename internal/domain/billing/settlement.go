// internal/domain/billing/settlement.go
package billing

// EventTypeChargeSucceeded is the only event type aggregated into gross volume.
const EventTypeChargeSucceeded = "charge.succeeded"

// SettlementEvent is a succeeded charge as seen in the remote event stream.
type SettlementEvent struct {
	EventID       string
	ChargeID      string
	Amount        int64 // minor units, charge currency
	Currency      string
	SettlementRef string // balance transaction id, empty when missing
	Created       int64
}

// SettlementDetail is the amount actually credited to the account.
type SettlementDetail struct {
	Amount   int64 // minor units, settlement currency
	Currency string
}
