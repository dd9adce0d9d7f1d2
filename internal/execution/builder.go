package execution

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"curve-trader/internal/config"
)

// ErrSignerFailed 表示外部签名程序执行失败或输出无效。
var ErrSignerFailed = errors.New("execution: signer failed")

// signRequest 为写入签名程序标准输入的计划描述，数量均为最小单位的十进制字符串。
type signRequest struct {
	TradeID      string `json:"trade_id"`
	Mint         string `json:"mint"`
	Owner        string `json:"owner"`
	Side         string `json:"side"`
	Venue        string `json:"venue"`
	AmountIn     string `json:"amount_in"`
	AmountOut    string `json:"amount_out"`
	LimitAmount  string `json:"limit_amount"`
	SlippageBps  int    `json:"slippage_bps"`
	TipAccount   string `json:"tip_account"`
	TipLamports  string `json:"tip_lamports"`
	BondingCurve string `json:"bonding_curve,omitempty"`
	Pool         string `json:"pool,omitempty"`
}

// signResponse 为签名程序标准输出的约定格式。
type signResponse struct {
	Transaction string `json:"transaction"`
	Encoding    string `json:"encoding"`
}

// CommandBuilder 调用外部签名程序生成已签名交易，私钥不进入本进程。
type CommandBuilder struct {
	command string
	args    []string
	timeout time.Duration
	curveOf func(ExecutionPlan) string
	logger  *zap.Logger
}

// NewCommandBuilder 根据签名配置创建 CommandBuilder。
func NewCommandBuilder(cfg config.SignerConfig, logger *zap.Logger) (*CommandBuilder, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("execution: signer.command 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandBuilder{
		command: cfg.Command,
		args:    append([]string(nil), cfg.Args...),
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// WithBondingCurve 设置计划中联合曲线账户地址的推导方式。
func (b *CommandBuilder) WithBondingCurve(fn func(ExecutionPlan) string) *CommandBuilder {
	b.curveOf = fn
	return b
}

// Build 将计划以 JSON 写入签名程序，读取其输出的已签名交易。
func (b *CommandBuilder) Build(ctx context.Context, plan ExecutionPlan) ([]byte, error) {
	req := signRequest{
		TradeID:     plan.TradeID,
		Mint:        plan.Mint.String(),
		Owner:       plan.Owner.String(),
		Side:        string(plan.Side),
		Venue:       string(plan.Venue),
		AmountIn:    plan.Quote.AmountIn.String(),
		AmountOut:   plan.Quote.AmountOut.String(),
		LimitAmount: plan.Quote.LimitAmount.String(),
		SlippageBps: plan.Quote.SlippageBps,
		TipAccount:  plan.TipAccount.String(),
		TipLamports: plan.TipLamports.String(),
	}
	if plan.Venue == "" {
		req.Venue = string(VenueBondingCurve)
	}
	if plan.Pool != nil {
		req.Pool = plan.Pool.Pool
	} else if b.curveOf != nil {
		req.BondingCurve = b.curveOf(plan)
	}

	input, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("execution: 序列化签名请求失败: %w", err)
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, b.command, b.args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		b.logger.Warn("签名程序执行失败",
			zap.String("trade_id", plan.TradeID),
			zap.String("stderr", strings.TrimSpace(stderr.String())),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrSignerFailed, err)
	}

	payload, err := decodeSignResponse(stdout.Bytes())
	if err != nil {
		return nil, err
	}

	b.logger.Debug("签名完成",
		zap.String("trade_id", plan.TradeID),
		zap.Int("bytes", len(payload)),
		zap.Duration("latency", time.Since(start)),
	)
	return payload, nil
}

func decodeSignResponse(raw []byte) ([]byte, error) {
	var resp signResponse
	if err := json.Unmarshal(bytes.TrimSpace(raw), &resp); err != nil {
		return nil, fmt.Errorf("%w: 输出不是有效 JSON: %v", ErrSignerFailed, err)
	}
	if resp.Transaction == "" {
		return nil, fmt.Errorf("%w: 输出缺少 transaction", ErrSignerFailed)
	}

	var (
		payload []byte
		err     error
	)
	switch strings.ToLower(resp.Encoding) {
	case "", "base58":
		payload, err = base58.Decode(resp.Transaction)
	case "base64":
		payload, err = base64.StdEncoding.DecodeString(resp.Transaction)
	default:
		return nil, fmt.Errorf("%w: 不支持的编码 %q", ErrSignerFailed, resp.Encoding)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: 解码交易失败: %v", ErrSignerFailed, err)
	}
	return payload, nil
}
