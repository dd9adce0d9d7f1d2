package risk

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"curve-trader/internal/store"
)

// DailyTracker 按 UTC 日维护累计买入金额。
type DailyTracker struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDailyTracker 创建日度额度跟踪器并初始化表结构。
func NewDailyTracker(ctx context.Context, st *store.Store, logger *zap.Logger) (*DailyTracker, error) {
	if st == nil || st.DB() == nil {
		return nil, errors.New("risk: 数据库实例不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	err := st.Migrate(ctx, "risk",
		`CREATE TABLE IF NOT EXISTS risk_daily_spend (
			trading_date TEXT PRIMARY KEY,
			spent TEXT NOT NULL,
			trades INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS risk_activity_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			occurred_at TEXT NOT NULL,
			event_type TEXT NOT NULL,
			message TEXT NOT NULL,
			trade_id TEXT,
			trading_date TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_risk_activity_date ON risk_activity_log(trading_date);`,
	)
	if err != nil {
		return nil, err
	}
	return &DailyTracker{db: st.DB(), logger: logger}, nil
}

// Status 返回 ts 所在交易日的累计买入。
func (t *DailyTracker) Status(ctx context.Context, ts time.Time) (DailyStatus, error) {
	tradingDate := tradingDay(ts)
	spent, trades, err := querySpend(ctx, t.db, tradingDate)
	if err != nil {
		return DailyStatus{}, err
	}
	return DailyStatus{TradingDate: tradingDate, Spent: spent, Trades: trades}, nil
}

// Add 在事务中累加当日买入金额，返回更新后的状态。
func (t *DailyTracker) Add(ctx context.Context, ts time.Time, tradeID string, amount *big.Int) (result DailyStatus, err error) {
	if amount == nil || amount.Sign() < 0 {
		return DailyStatus{}, errors.New("risk: 累计金额必须为非负数")
	}

	tradingDate := tradingDay(ts)
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("risk: 开启事务失败: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	spent, trades, err := querySpend(ctx, tx, tradingDate)
	if err != nil {
		return result, err
	}
	spent.Add(spent, amount)
	trades++

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO risk_daily_spend (trading_date, spent, trades, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(trading_date) DO UPDATE SET spent = excluded.spent, trades = excluded.trades, updated_at = excluded.updated_at`,
		tradingDate, spent.String(), trades, now,
	); err != nil {
		return result, fmt.Errorf("risk: 更新日度买入额失败: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO risk_activity_log (occurred_at, event_type, message, trade_id, trading_date) VALUES (?, ?, ?, ?, ?)`,
		now, "spend", fmt.Sprintf("累计买入 %s lamports", amount), tradeID, tradingDate,
	); err != nil {
		return result, fmt.Errorf("risk: 记录风控事件失败: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return result, fmt.Errorf("risk: 提交事务失败: %w", err)
	}

	return DailyStatus{TradingDate: tradingDate, Spent: spent, Trades: trades}, nil
}

// LogEvent 记录风控事件。
func (t *DailyTracker) LogEvent(ctx context.Context, eventType, message, tradeID string) error {
	if eventType == "" {
		return errors.New("risk: eventType 不能为空")
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO risk_activity_log (occurred_at, event_type, message, trade_id, trading_date) VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), eventType, message, tradeID, tradingDay(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("risk: 写入风险事件日志失败: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func querySpend(ctx context.Context, q queryer, tradingDate string) (*big.Int, int, error) {
	var (
		raw    string
		trades int
	)
	row := q.QueryRowContext(ctx, `SELECT spent, trades FROM risk_daily_spend WHERE trading_date = ?`, tradingDate)
	switch err := row.Scan(&raw, &trades); {
	case errors.Is(err, sql.ErrNoRows):
		return new(big.Int), 0, nil
	case err != nil:
		return nil, 0, fmt.Errorf("risk: 查询日度买入额失败: %w", err)
	}

	spent, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, 0, fmt.Errorf("risk: 日度买入额格式无效 %q", raw)
	}
	return spent, trades, nil
}

func tradingDay(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}
