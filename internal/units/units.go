// Package units 在展示边界上完成最小单位整数与十进制数之间的换算。
// 定价核心只接受整数，这里是唯一允许出现小数的地方。
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// TokenDecimals 为曲线代币精度。
	TokenDecimals int32 = 6
	// QuoteDecimals 为 SOL 精度（lamports）。
	QuoteDecimals int32 = 9
)

var (
	// ErrInvalidAmount 表示无法解析的数量字符串。
	ErrInvalidAmount = errors.New("units: invalid amount")
	// ErrTooPrecise 表示输入小数位超过资产精度。
	ErrTooPrecise = errors.New("units: amount exceeds asset precision")
)

// ToDecimal 将最小单位整数转换为十进制数。
func ToDecimal(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}

// Format 以固定小数位输出数量。
func Format(amount *big.Int, decimals int32) string {
	return ToDecimal(amount, decimals).StringFixed(decimals)
}

// Parse 将十进制字符串解析为最小单位整数。
func Parse(s string, decimals int32) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative %q", ErrInvalidAmount, s)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q", ErrTooPrecise, s)
	}
	return scaled.BigInt(), nil
}

// SpotPrice 返回单个代币对应的 SOL 价格（virtualQuote / virtualBase，按精度换算）。
func SpotPrice(virtualBase, virtualQuote *big.Int, baseDecimals, quoteDecimals int32) decimal.Decimal {
	if virtualBase == nil || virtualBase.Sign() == 0 {
		return decimal.Zero
	}
	base := ToDecimal(virtualBase, baseDecimals)
	quote := ToDecimal(virtualQuote, quoteDecimals)
	return quote.DivRound(base, baseDecimals+quoteDecimals)
}

// Percent 返回 amount 的 percent%（向下取整）。
func Percent(amount *big.Int, percent int) (*big.Int, error) {
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("%w: percent %d", ErrInvalidAmount, percent)
	}
	if amount == nil {
		return new(big.Int), nil
	}
	out := new(big.Int).Mul(amount, big.NewInt(int64(percent)))
	return out.Quo(out, big.NewInt(100)), nil
}
