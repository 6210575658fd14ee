package domain

// Asset tags the two sides of the pair on the ledger.
type Asset string

const (
	AssetQuote Asset = "QUOTE"
	AssetBase  Asset = "BASE"
)

// Well-known system accounts. User accounts are opaque address strings.
const (
	// AccountTreasury accumulates quote paid into the curve.
	AccountTreasury = "treasury"
	// AccountReserve holds the base tokens distributable from the curve.
	AccountReserve = "reserve"
	// AccountCustody escrows user assets between enqueue and settlement.
	AccountCustody = "custody"
	// AccountSink receives base removed from effective circulation.
	AccountSink = "sink"
)

// Clock supplies unix-epoch seconds. Injected so tests control boost cadence.
type Clock interface {
	Now() int64
}

// Tx is the transactional view an engine operation works against. All
// mutations made through a Tx commit together or not at all.
type Tx interface {
	// Curve loads the singleton curve row; ErrCurveNotFound if absent.
	Curve() (*Curve, error)
	// CreateCurve inserts the singleton; ErrCurveExists on a second call.
	CreateCurve(c *Curve) error
	SaveCurve(c *Curve) error

	// CreateBuyOrder inserts at its sequence number; ErrSlotOccupied if taken.
	CreateBuyOrder(o *BuyOrder) error
	// CreateSellOrder inserts at its sequence number; ErrSlotOccupied if taken.
	CreateSellOrder(o *SellOrder) error
	BuyOrder(seq uint64) (*BuyOrder, error)
	SellOrder(seq uint64) (*SellOrder, error)
	SaveBuyOrder(o *BuyOrder) error
	SaveSellOrder(o *SellOrder) error

	// Transfer moves amount of asset between accounts, failing with
	// ErrInsufficientFunds when the source cannot cover it.
	Transfer(from, to string, asset Asset, amount uint64) error
	// Balance returns an account's current holding of asset.
	Balance(account string, asset Asset) (uint64, error)
	// Deposit credits an account from outside the pair economy. Used by
	// initialization and the custody on-ramp, never by engine settlement.
	Deposit(account string, asset Asset, amount uint64) error

	// AppendEvent journals an emitted event before the operation replies.
	AppendEvent(seq uint64, typ string, ts int64, payload []byte) error
}

// Store owns the persistent state and provides atomic commit.
type Store interface {
	// Atomic runs fn inside one transaction; any error rolls everything back.
	Atomic(fn func(tx Tx) error) error
	// LoadCurve is the read-only snapshot used by queries and the keeper.
	LoadCurve() (*Curve, error)
}
