package app

import "curve-trader/internal/position"

// Result 为每个命令的公共结果字段。失败时 Success 为 false，Error 为原因。
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (r *Result) fail(err error) {
	r.Success = false
	r.Error = err.Error()
}

// PriceResult 为 price 命令输出。金额均为十进制字符串。
type PriceResult struct {
	Result
	Mint             string `json:"mint,omitempty"`
	Complete         bool   `json:"complete"`
	Venue            string `json:"venue,omitempty"`
	Pool             string `json:"pool,omitempty"`
	PoolBase         string `json:"pool_base,omitempty"`
	PoolQuote        string `json:"pool_quote,omitempty"`
	VirtualBase      string `json:"virtual_base,omitempty"`
	VirtualQuote     string `json:"virtual_quote,omitempty"`
	RealBase         string `json:"real_base,omitempty"`
	RealQuote        string `json:"real_quote,omitempty"`
	SpotPrice        string `json:"spot_price,omitempty"`
	BuyAmount        string `json:"buy_amount,omitempty"`
	BuyTokens        string `json:"buy_tokens,omitempty"`
	MarketCap        string `json:"market_cap,omitempty"`
	FinalMarketCap   string `json:"final_market_cap,omitempty"`
	FeeBasisPoints   int    `json:"fee_basis_points"`
	QuoteUSDPrice    string `json:"quote_usd_price,omitempty"`
	MarketCapUSD     string `json:"market_cap_usd,omitempty"`
	InitialBuyTokens string `json:"initial_buy_tokens,omitempty"`
}

// TradeResult 为 buy / sell 命令输出。
type TradeResult struct {
	Result
	TradeID     string `json:"trade_id,omitempty"`
	Mint        string `json:"mint,omitempty"`
	Side        string `json:"side,omitempty"`
	Venue       string `json:"venue,omitempty"`
	AmountIn    string `json:"amount_in,omitempty"`
	AmountOut   string `json:"amount_out,omitempty"`
	LimitAmount string `json:"limit_amount,omitempty"`
	TipAccount  string `json:"tip_account,omitempty"`
	Status      string `json:"status,omitempty"`
	Attempts    int    `json:"attempts"`
	Signature   string `json:"signature,omitempty"`
	Simulated   bool   `json:"simulated"`
}

// PositionResult 为 position 命令输出。
type PositionResult struct {
	Result
	*position.Summary
}

// SubmitResult 为 submit 命令输出。
type SubmitResult struct {
	Result
	Status      string `json:"status,omitempty"`
	PayloadHash string `json:"payload_hash,omitempty"`
	Attempts    int    `json:"attempts"`
	Signature   string `json:"signature,omitempty"`
}

// HistoryResult 为 history 命令输出。
type HistoryResult struct {
	Result
	Mint         string         `json:"mint,omitempty"`
	Observations []HistoryPoint `json:"observations,omitempty"`
	Count        int            `json:"count"`
	Period       int            `json:"period,omitempty"`
	SMA          string         `json:"sma,omitempty"`
	EMA          string         `json:"ema,omitempty"`
	RSI          string         `json:"rsi,omitempty"`
	Change       string         `json:"change,omitempty"`
}

// HistoryPoint 为一条历史观测。
type HistoryPoint struct {
	ObservedAt string `json:"observed_at"`
	SpotPrice  string `json:"spot_price"`
	MarketCap  string `json:"market_cap"`
}
