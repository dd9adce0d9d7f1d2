package relay

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/gagliardetto/solana-go"
)

// DefaultTipAccounts 为中继公开的小费收款地址。
var DefaultTipAccounts = []string{
	"ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49",
	"DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL",
	"Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY",
	"ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt",
	"HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe",
	"DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh",
	"3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT",
	"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5",
}

// TipSelector 返回本次交易使用的小费收款地址。
type TipSelector func() solana.PublicKey

// TipAccounts 为构造时确定的只读地址表。
type TipAccounts struct {
	keys []solana.PublicKey
}

// NewTipAccounts 解析 base58 地址列表。
func NewTipAccounts(addresses []string) (TipAccounts, error) {
	if len(addresses) == 0 {
		return TipAccounts{}, errors.New("relay: 小费地址列表不能为空")
	}
	keys := make([]solana.PublicKey, 0, len(addresses))
	for _, addr := range addresses {
		key, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return TipAccounts{}, fmt.Errorf("relay: 解析小费地址 %q 失败: %w", addr, err)
		}
		keys = append(keys, key)
	}
	return TipAccounts{keys: keys}, nil
}

// Len 返回地址数量。
func (t TipAccounts) Len() int {
	return len(t.keys)
}

// Contains 判断地址是否在表内。
func (t TipAccounts) Contains(key solana.PublicKey) bool {
	for _, k := range t.keys {
		if k.Equals(key) {
			return true
		}
	}
	return false
}

// Random 均匀随机选取一个地址，每次调用重新抽取。
func (t TipAccounts) Random() solana.PublicKey {
	if len(t.keys) == 0 {
		return solana.PublicKey{}
	}
	return t.keys[rand.IntN(len(t.keys))]
}

// Selector 返回基于 Random 的 TipSelector。
func (t TipAccounts) Selector() TipSelector {
	return t.Random
}

// FixedTip 返回总是选择同一地址的 TipSelector。
func FixedTip(key solana.PublicKey) TipSelector {
	return func() solana.PublicKey { return key }
}
