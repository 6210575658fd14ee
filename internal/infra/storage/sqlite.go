package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"everdex/internal/domain"
	"everdex/pkg/safe"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage is the canonical persistent state: the curve row, the order
// slots, the ledger accounts and the event journal, all in one SQLite
// file so a single transaction covers an entire engine operation.
type Storage struct {
	db *gorm.DB
}

// Account is one ledger balance, keyed by (name, asset).
type Account struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"uniqueIndex:idx_name_asset"`
	Asset   string `gorm:"uniqueIndex:idx_name_asset"`
	Balance uint64
}

// JournalEntry is one persisted event. Events are journaled inside the
// same transaction as the state change they describe.
type JournalEntry struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	Seq     uint64 `gorm:"index"`
	Type    string `gorm:"index"`
	Ts      int64
	Payload []byte
}

// NewStorage creates a SQLite storage instance at the given path.
// An empty path resolves to the OS-specific default location.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		var err error
		path, err = getDefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	// Ensure directory exists
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(
		&domain.Curve{},
		&domain.BuyOrder{},
		&domain.SellOrder{},
		&Account{},
		&JournalEntry{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDefaultDBPath resolves the database file path based on OS
func getDefaultDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "EverDex", "data", "everdex.db"), nil
}

// Atomic runs fn inside a single transaction. Any error rolls back every
// curve, order, ledger and journal mutation made through the Tx.
func (s *Storage) Atomic(fn func(tx domain.Tx) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&sqlTx{db: tx})
	})
}

// LoadCurve returns a read-only snapshot of the curve singleton.
func (s *Storage) LoadCurve() (*domain.Curve, error) {
	var c domain.Curve
	err := s.db.First(&c, domain.CurveID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCurveNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Balance returns an account's holding outside of any transaction.
func (s *Storage) Balance(account string, asset domain.Asset) (uint64, error) {
	return balanceIn(s.db, account, asset)
}

// RecentEvents returns the newest journal entries, most recent first.
func (s *Storage) RecentEvents(limit int) ([]JournalEntry, error) {
	var entries []JournalEntry
	err := s.db.Order("id desc").Limit(limit).Find(&entries).Error
	return entries, err
}

// ======================================================================================
// Transactional view
// ======================================================================================

type sqlTx struct {
	db *gorm.DB
}

func (t *sqlTx) Curve() (*domain.Curve, error) {
	var c domain.Curve
	err := t.db.First(&c, domain.CurveID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCurveNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *sqlTx) CreateCurve(c *domain.Curve) error {
	c.ID = domain.CurveID
	err := t.db.Create(c).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrCurveExists
	}
	return err
}

func (t *sqlTx) SaveCurve(c *domain.Curve) error {
	return t.db.Save(c).Error
}

func (t *sqlTx) CreateBuyOrder(o *domain.BuyOrder) error {
	var count int64
	if err := t.db.Model(&domain.BuyOrder{}).Where("seq = ?", o.Seq).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrSlotOccupied
	}
	err := t.db.Create(o).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrSlotOccupied
	}
	return err
}

func (t *sqlTx) CreateSellOrder(o *domain.SellOrder) error {
	var count int64
	if err := t.db.Model(&domain.SellOrder{}).Where("seq = ?", o.Seq).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrSlotOccupied
	}
	err := t.db.Create(o).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrSlotOccupied
	}
	return err
}

func (t *sqlTx) BuyOrder(seq uint64) (*domain.BuyOrder, error) {
	var o domain.BuyOrder
	err := t.db.First(&o, "seq = ?", seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (t *sqlTx) SellOrder(seq uint64) (*domain.SellOrder, error) {
	var o domain.SellOrder
	err := t.db.First(&o, "seq = ?", seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// The save methods issue explicit updates keyed on seq. gorm's Save
// would treat the zero-valued key of the first queue slot as a new
// record and INSERT into an occupied slot.
func (t *sqlTx) SaveBuyOrder(o *domain.BuyOrder) error {
	return t.db.Model(&domain.BuyOrder{}).Where("seq = ?", o.Seq).Select("*").Updates(o).Error
}

func (t *sqlTx) SaveSellOrder(o *domain.SellOrder) error {
	return t.db.Model(&domain.SellOrder{}).Where("seq = ?", o.Seq).Select("*").Updates(o).Error
}

// ======================================================================================
// Ledger
// ======================================================================================

func (t *sqlTx) Transfer(from, to string, asset domain.Asset, amount uint64) error {
	if amount == 0 {
		// Zero transfers are a no-op; the clamp in queue processing can
		// legitimately reduce a transfer to nothing.
		return nil
	}

	var src Account
	err := t.db.First(&src, "name = ? AND asset = ?", from, string(asset)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s has no %s", domain.ErrInsufficientFunds, from, asset)
	}
	if err != nil {
		return err
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: %s has %d %s, needs %d",
			domain.ErrInsufficientFunds, from, src.Balance, asset, amount)
	}

	src.Balance -= amount
	if err := t.db.Save(&src).Error; err != nil {
		return err
	}
	return t.credit(to, asset, amount)
}

func (t *sqlTx) Balance(account string, asset domain.Asset) (uint64, error) {
	return balanceIn(t.db, account, asset)
}

func (t *sqlTx) Deposit(account string, asset domain.Asset, amount uint64) error {
	return t.credit(account, asset, amount)
}

func (t *sqlTx) credit(account string, asset domain.Asset, amount uint64) error {
	var dst Account
	err := t.db.First(&dst, "name = ? AND asset = ?", account, string(asset)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return t.db.Create(&Account{Name: account, Asset: string(asset), Balance: amount}).Error
	}
	if err != nil {
		return err
	}
	sum, err := safe.Add(dst.Balance, amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", account, err)
	}
	dst.Balance = sum
	return t.db.Save(&dst).Error
}

func balanceIn(db *gorm.DB, account string, asset domain.Asset) (uint64, error) {
	var acc Account
	err := db.First(&acc, "name = ? AND asset = ?", account, string(asset)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil // Unknown account simply holds nothing
	}
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// ======================================================================================
// Journal
// ======================================================================================

func (t *sqlTx) AppendEvent(seq uint64, typ string, ts int64, payload []byte) error {
	return t.db.Create(&JournalEntry{Seq: seq, Type: typ, Ts: ts, Payload: payload}).Error
}
