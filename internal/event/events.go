package event

// Event is the common interface of everything the engine emits. Events
// are journaled before the operation that produced them replies, then
// fanned out to subscribers.
type Event interface {
	GetType() string
	GetSeq() uint64
	GetTs() int64
}

// BaseEvent carries the fields shared by all events.
type BaseEvent struct {
	Seq uint64 `json:"seq"`
	Ts  int64  `json:"ts"`
}

func (e *BaseEvent) GetSeq() uint64 { return e.Seq }
func (e *BaseEvent) GetTs() int64   { return e.Ts }

// Event type tags, stable identifiers used in the journal and on the wire.
const (
	TypeAtomicBuy       = "atomic_buy"
	TypeBuyQueued       = "buy_queued"
	TypeBuyProcessed    = "buy_processed"
	TypeSellQueued      = "sell_queued"
	TypeSellProcessed   = "sell_processed"
	TypeDailyBoost      = "daily_boost"
	TypeEmergencyRefund = "emergency_refund"
	TypeQueueSkip       = "queue_skip"
)

// How a sell order was settled.
const (
	ProcessingQueueMatch     uint8 = 1 // filled against a queued buy
	ProcessingReserveSettled uint8 = 2 // filled against the reserves
)

// AtomicBuyEvent records a direct curve buy.
type AtomicBuyEvent struct {
	BaseEvent
	Buyer        string `json:"buyer"`
	QuoteAmount  uint64 `json:"quote_amount"`
	BaseReceived uint64 `json:"base_received"`
	NewPrice     uint64 `json:"new_price"`
}

func (e *AtomicBuyEvent) GetType() string { return TypeAtomicBuy }

// BuyQueueEvent records a buy entering the queue.
type BuyQueueEvent struct {
	BaseEvent
	Buyer         string `json:"buyer"`
	QuoteAmount   uint64 `json:"quote_amount"`
	EstimatedBase uint64 `json:"estimated_base"` // advisory only
	QueuePosition uint64 `json:"queue_position"`
}

func (e *BuyQueueEvent) GetType() string { return TypeBuyQueued }

// BuyProcessedEvent records a drained buy order. QueueQuote and
// ReserveQuote sum to QuoteAmount.
type BuyProcessedEvent struct {
	BaseEvent
	Buyer        string `json:"buyer"`
	QuoteAmount  uint64 `json:"quote_amount"`
	BaseTokens   uint64 `json:"base_tokens"`
	QueueQuote   uint64 `json:"queue_quote"`   // settled against the sell queue
	ReserveQuote uint64 `json:"reserve_quote"` // settled against the curve
}

func (e *BuyProcessedEvent) GetType() string { return TypeBuyProcessed }

// SellQueueEvent records a sell entering the queue with its locked price.
type SellQueueEvent struct {
	BaseEvent
	Seller        string `json:"seller"`
	BaseAmount    uint64 `json:"base_amount"`
	LockedPrice   uint64 `json:"locked_price"`
	QueuePosition uint64 `json:"queue_position"`
}

func (e *SellQueueEvent) GetType() string { return TypeSellQueued }

// SellProcessedEvent records a full or partial sell settlement.
type SellProcessedEvent struct {
	BaseEvent
	Seller         string `json:"seller"`
	BaseAmount     uint64 `json:"base_amount"`
	QuoteAmount    uint64 `json:"quote_amount"`
	LockedPrice    uint64 `json:"locked_price"`
	ProcessingType uint8  `json:"processing_type"`
}

func (e *SellProcessedEvent) GetType() string { return TypeSellProcessed }

// DailyBoostEvent records a price-floor application.
type DailyBoostEvent struct {
	BaseEvent
	OrganicPrice uint64 `json:"organic_price"`
	MinimumPrice uint64 `json:"minimum_price"`
	FinalPrice   uint64 `json:"final_price"`
	DaysPassed   int64  `json:"days_passed"`
	BoostAmount  uint64 `json:"boost_amount"`
}

func (e *DailyBoostEvent) GetType() string { return TypeDailyBoost }

// EmergencyRefundEvent records escrow released back to a buyer.
type EmergencyRefundEvent struct {
	BaseEvent
	Buyer       string `json:"buyer"`
	QuoteAmount uint64 `json:"quote_amount"`
	TimeElapsed int64  `json:"time_elapsed"`
}

func (e *EmergencyRefundEvent) GetType() string { return TypeEmergencyRefund }

// QueueSkipEvent is the audited record of an administrative cursor move.
type QueueSkipEvent struct {
	BaseEvent
	Queue   string `json:"queue"`  // "buy" or "sell"
	Cursor  string `json:"cursor"` // "head" or "tail"
	From    uint64 `json:"from"`
	To      uint64 `json:"to"`
	Skipped uint64 `json:"skipped"`
}

func (e *QueueSkipEvent) GetType() string { return TypeQueueSkip }
