package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"etf_basket/internal/domain"
	"etf_basket/internal/strategy"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage persists strategy state, ledgers, orders and fills in SQLite.
type Storage struct {
	db *gorm.DB
}

// SavedState is what a strategy needs to resume after a restart.
type SavedState struct {
	Lifecycle       string
	TargetBasketPos decimal.Decimal
	Positions       map[string]decimal.Decimal
}

// NewStorage creates a new SQLite storage instance at path.
// An empty path resolves to the user config directory.
func NewStorage(path string) (*Storage, error) {
	return Open(DriverSQLite, path)
}

// Open connects with the named driver. dsn is a file path for sqlite and
// a connection string for postgres.
func Open(driver, dsn string) (*Storage, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialector.Name() == DriverSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", DriverSQLite:
		if dsn == "" {
			var err error
			dsn, err = defaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("failed to resolve DB path: %w", err)
			}
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
		// Pure Go SQLite
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		if dsn == "" {
			return nil, errors.New("postgres requires a dsn")
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.StrategyRecord{},
		&domain.PositionRecord{},
		&domain.OrderRecord{},
		&domain.TradeRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func defaultDBPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "EtfBasket", "data", "basket.db"), nil
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Strategy State
// ======================================================================================

// SaveState writes the strategy row and its ledger in one transaction.
func (s *Storage) SaveState(ctx context.Context, st strategy.State) error {
	now := time.Now()
	rec := domain.StrategyRecord{
		Name:            st.Name,
		BasketSymbol:    st.BasketSymbol,
		Lifecycle:       st.Lifecycle.String(),
		TradeBasket:     st.TradeBasket,
		TargetBasketPos: st.TargetBasketPos.String(),
		EtfPos:          st.EtfPos.String(),
		UpdatedAt:       now,
	}
	if st.BasketPosDefined {
		rec.BasketPos = st.BasketPos.String()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}
		for sym, qty := range st.Positions {
			pos := domain.PositionRecord{
				Strategy:  st.Name,
				Symbol:    sym,
				Quantity:  qty.String(),
				UpdatedAt: now,
			}
			if err := tx.Save(&pos).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadState returns the persisted state of a strategy, or nil when the
// strategy was never saved.
func (s *Storage) LoadState(ctx context.Context, name string) (*SavedState, error) {
	db := s.db.WithContext(ctx)

	var rec domain.StrategyRecord
	err := db.First(&rec, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}

	target, err := decimal.NewFromString(rec.TargetBasketPos)
	if err != nil {
		return nil, fmt.Errorf("corrupt target for %s: %w", name, err)
	}

	var rows []domain.PositionRecord
	if err := db.Where("strategy = ?", name).Find(&rows).Error; err != nil {
		return nil, err
	}

	positions := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		qty, err := decimal.NewFromString(row.Quantity)
		if err != nil {
			return nil, fmt.Errorf("corrupt position %s/%s: %w", name, row.Symbol, err)
		}
		positions[row.Symbol] = qty
	}

	return &SavedState{
		Lifecycle:       rec.Lifecycle,
		TargetBasketPos: target,
		Positions:       positions,
	}, nil
}

// ======================================================================================
// Orders & Trades
// ======================================================================================

// SaveOrder records a dispatched order, updating its status if it exists.
func (s *Storage) SaveOrder(ctx context.Context, order domain.Order) error {
	rec := domain.OrderRecord{
		ID:        order.ID,
		Strategy:  order.Strategy,
		Symbol:    order.Intent.Symbol,
		Direction: string(order.Intent.Direction),
		Offset:    string(order.Intent.Offset),
		Type:      string(order.Intent.Type),
		Price:     order.Intent.Price.String(),
		Volume:    order.Intent.Volume.String(),
		Status:    order.Status,
		CreatedAt: order.CreatedAt,
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

// SaveTrade records a fill and reports whether it was new. A replayed fill
// with a known trade id is not written and returns false.
func (s *Storage) SaveTrade(ctx context.Context, strategyName string, trade domain.Trade) (bool, error) {
	rec := domain.TradeRecord{
		TradeID:   trade.TradeID,
		OrderID:   trade.OrderID,
		Strategy:  strategyName,
		Symbol:    trade.Symbol,
		Direction: string(trade.Direction),
		Offset:    string(trade.Offset),
		Price:     trade.Price.String(),
		Volume:    trade.Volume.String(),
		Time:      trade.Time,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListOrders returns the orders of a strategy, oldest first.
func (s *Storage) ListOrders(ctx context.Context, strategyName string) ([]domain.OrderRecord, error) {
	var orders []domain.OrderRecord
	err := s.db.WithContext(ctx).
		Where("strategy = ?", strategyName).
		Order("created_at asc").
		Find(&orders).Error
	return orders, err
}

// ListTrades returns the fills of a strategy, oldest first.
func (s *Storage) ListTrades(ctx context.Context, strategyName string) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	err := s.db.WithContext(ctx).
		Where("strategy = ?", strategyName).
		Order("time asc").
		Find(&trades).Error
	return trades, err
}
