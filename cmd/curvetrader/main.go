package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"curve-trader/internal/app"
	"curve-trader/internal/config"
	"curve-trader/internal/log"
	"curve-trader/internal/store"
)

const usage = `用法: curvetrader [-config path] <command> [args]

命令:
  price <mint>              读取曲线储备并输出现价与市值
  buy <mint> [amount]       以 amount SOL 买入（默认 trade.buy_amount）
  sell <mint> [percent]     卖出持仓的 percent%（默认 trade.sell_percent）
  position <mint>           输出钱包持仓及估值
  submit <base58-tx>        通过中继提交已签名交易
  history <mint> [limit]    输出最近的价格观测与均线
  watch <mint>...           按 scheduler.loop_interval 持续记录价格观测
`

// minArgs 为各命令所需的最少参数个数（含命令本身）。
var minArgs = map[string]int{
	"price":    2,
	"buy":      2,
	"sell":     2,
	"position": 2,
	"submit":   2,
	"history":  2,
	"watch":    2,
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	need, ok := minArgs[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "未知命令: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
	if len(args) < need {
		fmt.Fprintf(os.Stderr, "命令 %s 缺少参数\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		logger.Error("初始化数据库失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	traderApp, err := app.New(ctx, cfg, logger, sqliteStore)
	if err != nil {
		logger.Error("初始化系统失败", zap.Error(err))
		os.Exit(1)
	}

	if args[0] == "watch" {
		if err := traderApp.Watch(ctx, args[1:], 0); err != nil {
			logger.Error("监听异常", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("系统已安全退出")
		return
	}

	result := dispatch(ctx, traderApp, args)
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("序列化结果失败", zap.Error(err))
		return
	}
	fmt.Println(string(out))
}

func dispatch(ctx context.Context, a *app.App, args []string) interface{} {
	switch args[0] {
	case "price":
		return a.Price(ctx, args[1])
	case "buy":
		return a.Buy(ctx, args[1], optional(args, 2))
	case "sell":
		return a.Sell(ctx, args[1], optional(args, 2))
	case "position":
		return a.Position(ctx, args[1])
	case "submit":
		return a.Submit(ctx, args[1])
	case "history":
		limit := 0
		if s := optional(args, 2); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return app.HistoryResult{Result: app.Result{Error: fmt.Sprintf("limit 无效: %q", s)}}
			}
			limit = n
		}
		return a.History(ctx, args[1], limit)
	default:
		return app.Result{Error: "未知命令"}
	}
}

func optional(args []string, idx int) string {
	if len(args) > idx {
		return args[idx]
	}
	return ""
}
