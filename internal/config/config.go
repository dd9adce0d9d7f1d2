package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"curve-trader/internal/relay"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "curve"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("rpc.endpoint", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc.commitment", "confirmed")

	v.SetDefault("relay.endpoint", "https://mainnet.block-engine.jito.wtf/api/v1/transactions")
	v.SetDefault("relay.max_attempts", 3)
	v.SetDefault("relay.backoff", "1s")
	v.SetDefault("relay.attempt_timeout", "10s")
	v.SetDefault("relay.deadline", "30s")
	v.SetDefault("relay.tip_accounts", relay.DefaultTipAccounts)
	v.SetDefault("relay.tip_amount", "0.0001")

	v.SetDefault("curve.program_id", "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	v.SetDefault("curve.token_decimals", 6)
	v.SetDefault("curve.quote_decimals", 9)
	v.SetDefault("curve.amm_program_id", "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")

	v.SetDefault("trade.wallet_address", "")
	v.SetDefault("trade.slippage_bps", 500)
	v.SetDefault("trade.buy_amount", "0.1")
	v.SetDefault("trade.sell_percent", 100)
	v.SetDefault("trade.simulation", true)
	v.SetDefault("trade.max_buy_amount", "")
	v.SetDefault("trade.daily_spend_limit", "")

	v.SetDefault("signer.command", "")
	v.SetDefault("signer.args", []string{})
	v.SetDefault("signer.timeout", "15s")

	v.SetDefault("exchange.enabled", false)
	v.SetDefault("exchange.name", "binanceusdm")
	v.SetDefault("exchange.market", "SOL/USDT:USDT")
	v.SetDefault("exchange.use_sandbox", false)
	v.SetDefault("exchange.retry.max_attempts", 3)
	v.SetDefault("exchange.retry.min_delay", "500ms")
	v.SetDefault("exchange.retry.max_delay", "5s")

	v.SetDefault("scheduler.loop_interval", "30s")

	v.SetDefault("database.path", "data/curve_trader.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stderr"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
