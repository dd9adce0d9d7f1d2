package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"curve-trader/internal/store"
)

// Service 负责持久化价格观测与交易事件。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化监控服务，创建所需表结构。
func NewService(ctx context.Context, st *store.Store, logger *zap.Logger) (*Service, error) {
	if st == nil {
		return nil, errors.New("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	err := st.Migrate(ctx, "monitor",
		`CREATE TABLE IF NOT EXISTS monitor_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_monitor_events_type ON monitor_events(event_type);`,
		`CREATE TABLE IF NOT EXISTS price_observations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mint TEXT NOT NULL,
			spot_price TEXT NOT NULL,
			market_cap TEXT NOT NULL,
			payload TEXT NOT NULL,
			observed_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_price_observations_mint ON price_observations(mint, id);`,
	)
	if err != nil {
		return nil, err
	}

	return &Service{db: st.DB(), logger: logger}, nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO monitor_events (event_type, payload, created_at) VALUES (?, ?, ?)`,
		string(event.Type), string(payload), event.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}
	return nil
}

// RecordObservation 记录一次价格观测，失败只记日志。
func (s *Service) RecordObservation(ctx context.Context, obs Observation) {
	if err := s.SaveObservation(ctx, obs); err != nil {
		s.logger.Warn("记录价格观测失败", zap.String("mint", obs.Mint), zap.Error(err))
	}
}

// SaveObservation 写入价格观测。
func (s *Service) SaveObservation(ctx context.Context, obs Observation) error {
	if obs.Mint == "" {
		return errors.New("monitor: mint 不能为空")
	}
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("monitor: 序列化观测失败: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO price_observations (mint, spot_price, market_cap, payload, observed_at) VALUES (?, ?, ?, ?, ?)`,
		obs.Mint, obs.SpotPrice, obs.MarketCap, string(payload), obs.ObservedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入观测失败: %w", err)
	}
	return nil
}

// RecordTrade 记录交易结果摘要。
func (s *Service) RecordTrade(ctx context.Context, summary TradeSummary) {
	if err := s.Record(ctx, Event{Type: EventTrade, Timestamp: time.Now().UTC(), Payload: summary}); err != nil {
		s.logger.Warn("记录交易事件失败", zap.String("trade_id", summary.TradeID), zap.Error(err))
	}
}

// RecordError 记录异常。
func (s *Service) RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{}) {
	payload := ErrorPayload{Message: msg, Context: ctxMap}
	if err != nil {
		payload.Error = err.Error()
	}
	if recErr := s.Record(ctx, Event{Type: EventError, Timestamp: time.Now().UTC(), Payload: payload}); recErr != nil {
		s.logger.Warn("记录异常事件失败", zap.Error(recErr))
	}
}

// ListObservations 返回 mint 最近的价格观测，按时间升序排列。
func (s *Service) ListObservations(ctx context.Context, mint string, limit int) ([]Observation, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM (
			SELECT id, payload FROM price_observations WHERE mint = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		mint, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询观测失败: %w", err)
	}
	defer rows.Close()

	observations := make([]Observation, 0, limit)
	for rows.Next() {
		var payload string
		if scanErr := rows.Scan(&payload); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析观测失败: %w", scanErr)
		}
		var obs Observation
		if jsonErr := json.Unmarshal([]byte(payload), &obs); jsonErr != nil {
			return nil, fmt.Errorf("monitor: 解析观测失败: %w", jsonErr)
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取观测失败: %w", err)
	}
	return observations, nil
}

// ListEvents 按类型检索最近事件。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT event_type, payload, created_at FROM monitor_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&typ, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr != nil {
			ts = time.Time{}
		}

		events = append(events, Event{
			Type:      EventType(typ),
			Timestamp: ts,
			Payload:   json.RawMessage(payload),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}
	return events, nil
}
