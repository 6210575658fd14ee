package domain

// BuyOrder is one queued buy, keyed by its sequence number. A buy is
// either fully settled in one processing step or left queued; no partial
// state is persisted.
type BuyOrder struct {
	// autoIncrement disabled: slot zero is a valid sequence number.
	Seq          uint64 `gorm:"primaryKey;autoIncrement:false" json:"seq"`
	Buyer        string `gorm:"index" json:"buyer"`
	QuoteAmount  uint64 `json:"quote_amount"`
	ExpectedBase uint64 `json:"expected_base"` // advisory estimate, never used for settlement
	CreatedAt    int64  `json:"created_at"`
	Processed    bool   `json:"processed"`
}

// SellOrder is one queued sell, keyed by its sequence number. Partial
// fills reduce RemainingBase; the locked price never changes after
// creation, so the seller bears curve drift while queued.
type SellOrder struct {
	Seq           uint64 `gorm:"primaryKey;autoIncrement:false" json:"seq"`
	Seller        string `gorm:"index" json:"seller"`
	TotalBase     uint64 `json:"total_base"`
	RemainingBase uint64 `json:"remaining_base"`
	LockedPrice   uint64 `json:"locked_price"`
	CreatedAt     int64  `json:"created_at"`
	Processed     bool   `json:"processed"` // true iff RemainingBase == 0
}

// IsOpen checks if the sell order still has tokens to settle.
func (o *SellOrder) IsOpen() bool {
	return !o.Processed && o.RemainingBase > 0
}

// Fill reduces the remaining amount, marking the order processed when it
// reaches zero. The amount must not exceed RemainingBase.
func (o *SellOrder) Fill(base uint64) {
	o.RemainingBase -= base
	if o.RemainingBase == 0 {
		o.Processed = true
	}
}
