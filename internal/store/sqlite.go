package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"curve-trader/internal/config"
)

// Store 封装 SQLite 连接，保存价格观测、交易摘要与日度额度。
type Store struct {
	db *sql.DB
}

// NewSQLite 根据配置初始化 SQLite 存储。
func NewSQLite(cfg config.DatabaseConfig) (*Store, error) {
	dsn := cfg.Path
	if cfg.InMemory {
		dsn = ":memory:"
	} else if err := ensureDir(filepath.Dir(cfg.Path)); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", dsn))
	if err != nil {
		return nil, fmt.Errorf("store: 打开 SQLite 数据库失败: %w", err)
	}

	// 内存库每个连接相互独立，只能保留单连接。
	if cfg.InMemory {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	} else {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

		if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("store: 设置 WAL 模式失败: %w", err)
		}
		if _, err := conn.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("store: 设置同步级别失败: %w", err)
		}
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("store: 连接 SQLite 失败: %w", err)
	}

	return &Store{db: conn}, nil
}

// NewMemory 创建内存数据库，供模拟与测试使用。
func NewMemory() (*Store, error) {
	return NewSQLite(config.DatabaseConfig{InMemory: true})
}

// DB 返回底层 *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate 在单个事务中依次执行建表语句。
func (s *Store) Migrate(ctx context.Context, owner string, statements ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: 开启建表事务失败: %w", owner, err)
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: 初始化表结构失败: %w", owner, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: 提交建表事务失败: %w", owner, err)
	}
	return nil
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("store: 创建目录 %q 失败: %w", path, err)
	}
	return nil
}
