package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	RPC       RPCConfig       `mapstructure:"rpc"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Curve     CurveConfig     `mapstructure:"curve"`
	Trade     TradeConfig     `mapstructure:"trade"`
	Signer    SignerConfig    `mapstructure:"signer"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// RPCConfig 描述链上节点连接。
type RPCConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	Commitment string `mapstructure:"commitment"`
}

// RelayConfig 描述交易中继与重试策略。
type RelayConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	Backoff        time.Duration `mapstructure:"backoff"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	Deadline       time.Duration `mapstructure:"deadline"`
	TipAccounts    []string      `mapstructure:"tip_accounts"`
	TipAmount      string        `mapstructure:"tip_amount"`
}

// CurveConfig 描述联合曲线程序参数。
type CurveConfig struct {
	ProgramID     string `mapstructure:"program_id"`
	TokenDecimals int32  `mapstructure:"token_decimals"`
	QuoteDecimals int32  `mapstructure:"quote_decimals"`
	// AMMProgramID 为曲线完成后迁入的常数乘积池程序，为空时不查询池子。
	AMMProgramID string `mapstructure:"amm_program_id"`
}

// TradeConfig 控制下单默认值与限额。
type TradeConfig struct {
	WalletAddress   string `mapstructure:"wallet_address"`
	SlippageBps     int    `mapstructure:"slippage_bps"`
	BuyAmount       string `mapstructure:"buy_amount"`
	SellPercent     int    `mapstructure:"sell_percent"`
	Simulation      bool   `mapstructure:"simulation"`
	MaxBuyAmount    string `mapstructure:"max_buy_amount"`
	DailySpendLimit string `mapstructure:"daily_spend_limit"`
}

// SignerConfig 描述外部签名程序。
type SignerConfig struct {
	Command string        `mapstructure:"command"`
	Args    []string      `mapstructure:"args"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ExchangeConfig 描述报价资产美元价格来源。
type ExchangeConfig struct {
	Enabled    bool        `mapstructure:"enabled"`
	Name       string      `mapstructure:"name"`
	Market     string      `mapstructure:"market"`
	UseSandbox bool        `mapstructure:"use_sandbox"`
	Retry      RetryConfig `mapstructure:"retry"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// SchedulerConfig 控制 watch 循环。
type SchedulerConfig struct {
	LoopInterval time.Duration `mapstructure:"loop_interval"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.RPC.Endpoint == "" {
		err = multierr.Append(err, errors.New("rpc.endpoint 不能为空"))
	}
	switch strings.ToLower(c.RPC.Commitment) {
	case "processed", "confirmed", "finalized":
	default:
		err = multierr.Append(err, fmt.Errorf("rpc.commitment 无效: %q", c.RPC.Commitment))
	}
	if c.Relay.Endpoint == "" {
		err = multierr.Append(err, errors.New("relay.endpoint 不能为空"))
	}
	if c.Relay.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("relay.max_attempts 必须大于0"))
	}
	if c.Relay.Backoff < 0 {
		err = multierr.Append(err, errors.New("relay.backoff 不能为负"))
	}
	if c.Relay.AttemptTimeout <= 0 {
		err = multierr.Append(err, errors.New("relay.attempt_timeout 必须大于0"))
	}
	if c.Relay.Deadline < 0 {
		err = multierr.Append(err, errors.New("relay.deadline 不能为负"))
	}
	if len(c.Relay.TipAccounts) == 0 {
		err = multierr.Append(err, errors.New("relay.tip_accounts 至少包含一个地址"))
	}
	if c.Relay.TipAmount == "" {
		err = multierr.Append(err, errors.New("relay.tip_amount 不能为空"))
	}
	if c.Curve.ProgramID == "" {
		err = multierr.Append(err, errors.New("curve.program_id 不能为空"))
	}
	if c.Curve.TokenDecimals < 0 || c.Curve.TokenDecimals > 18 {
		err = multierr.Append(err, errors.New("curve.token_decimals 应位于[0,18]"))
	}
	if c.Curve.QuoteDecimals < 0 || c.Curve.QuoteDecimals > 18 {
		err = multierr.Append(err, errors.New("curve.quote_decimals 应位于[0,18]"))
	}
	if c.Trade.SlippageBps < 0 || c.Trade.SlippageBps > 10000 {
		err = multierr.Append(err, errors.New("trade.slippage_bps 应位于[0,10000]"))
	}
	if c.Trade.SellPercent < 0 || c.Trade.SellPercent > 100 {
		err = multierr.Append(err, errors.New("trade.sell_percent 应位于[0,100]"))
	}
	if !c.Trade.Simulation && c.Signer.Command == "" {
		err = multierr.Append(err, errors.New("非模拟模式需要配置 signer.command"))
	}
	if c.Signer.Timeout <= 0 {
		err = multierr.Append(err, errors.New("signer.timeout 必须大于0"))
	}
	if c.Exchange.Enabled {
		if c.Exchange.Name == "" {
			err = multierr.Append(err, errors.New("exchange.name 不能为空"))
		}
		if c.Exchange.Market == "" {
			err = multierr.Append(err, errors.New("exchange.market 不能为空"))
		}
		if c.Exchange.Retry.MaxAttempts <= 0 {
			err = multierr.Append(err, errors.New("exchange.retry.max_attempts 必须大于0"))
		}
		if c.Exchange.Retry.MinDelay <= 0 || c.Exchange.Retry.MaxDelay <= 0 {
			err = multierr.Append(err, errors.New("exchange.retry.delay 必须为正"))
		}
		if c.Exchange.Retry.MinDelay > c.Exchange.Retry.MaxDelay {
			err = multierr.Append(err, errors.New("exchange.retry.min_delay 不能大于 max_delay"))
		}
	}
	if c.Scheduler.LoopInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.loop_interval 必须大于0"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
