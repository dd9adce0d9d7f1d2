package relay

import (
	"context"
	"time"
)

const (
	// DefaultMaxAttempts 为默认的提交次数上限。
	DefaultMaxAttempts = 3
	// DefaultBackoff 为两次提交之间的固定等待时间。
	DefaultBackoff = time.Second
	// DefaultAttemptTimeout 为单次提交的超时时间。
	DefaultAttemptTimeout = 10 * time.Second
)

// Status 表示一次提交的最终状态。
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusExhausted Status = "exhausted"
)

// AttemptOutcome 表示单次网络往返的结果。
type AttemptOutcome string

const (
	AttemptAccepted  AttemptOutcome = "accepted"
	AttemptRejected  AttemptOutcome = "rejected"
	AttemptTransient AttemptOutcome = "transient-error"
)

// Rejection 为中继返回的结构化拒绝原因。
type Rejection struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response 为中继的结构化响应，Rejection 非空表示被拒绝。
type Response struct {
	Result    string
	Rejection *Rejection
}

// Client 向中继端点投递不透明的已签名数据。
//
// 返回 error 表示传输层失败（超时、连接中断、无法解析的响应），视为可重试。
type Client interface {
	Post(ctx context.Context, endpoint string, payload []byte) (Response, error)
}

// Policy 控制提交重试行为。
type Policy struct {
	MaxAttempts    int
	Backoff        time.Duration
	AttemptTimeout time.Duration
}

// DefaultPolicy 返回默认提交策略。
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    DefaultMaxAttempts,
		Backoff:        DefaultBackoff,
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

func (p Policy) normalize() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = DefaultAttemptTimeout
	}
	return p
}

// Attempt 记录一次提交尝试。
type Attempt struct {
	Sequence    int            `json:"sequence"`
	PayloadHash string         `json:"payload_hash"`
	Outcome     AttemptOutcome `json:"outcome"`
	Duration    time.Duration  `json:"duration"`
	Detail      string         `json:"detail,omitempty"`
}

// Outcome 为一次提交的最终结果。
type Outcome struct {
	Status      Status     `json:"status"`
	PayloadHash string     `json:"payload_hash"`
	Result      string     `json:"result,omitempty"`
	Rejection   *Rejection `json:"rejection,omitempty"`
	Attempts    []Attempt  `json:"attempts"`
}
