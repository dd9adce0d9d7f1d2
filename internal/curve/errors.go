package curve

import "errors"

var (
	// ErrCurveComplete 表示曲线已完成，任何定价请求都不可重试。
	ErrCurveComplete = errors.New("curve: bonding curve is complete")
	// ErrInvalidSlippage 表示滑点基点超出 [0,10000] 或计算出的边界为负。
	ErrInvalidSlippage = errors.New("curve: invalid slippage basis points")
	// ErrInvalidFee 表示手续费基点超出 [0,10000]。
	ErrInvalidFee = errors.New("curve: invalid fee basis points")
	// ErrNegativeAmount 表示输入金额为负。
	ErrNegativeAmount = errors.New("curve: negative amount")
	// ErrNotFound 表示无法找到指定标识的储备状态。
	ErrNotFound = errors.New("curve: reserve state not found")
	// ErrPoolNotFound 表示已迁移代币找不到对应的 AMM 池。
	ErrPoolNotFound = errors.New("curve: amm pool not found")
	// ErrEmptyPool 表示池子任一侧储备为 0，无法报价。
	ErrEmptyPool = errors.New("curve: amm pool has no liquidity")
)
