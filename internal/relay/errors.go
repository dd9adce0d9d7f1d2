package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient 表示中继不可达或超时，按策略重试。
	ErrTransient = errors.New("relay: transient submission failure")
	// ErrPermanent 表示中继明确拒绝了交易，不会重试。
	ErrPermanent = errors.New("relay: payload rejected")
)

// SubmissionError 携带最终状态、尝试次数和最后一次底层错误。
type SubmissionError struct {
	Status   Status
	Attempts int
	Err      error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("relay: 提交%s，共尝试 %d 次: %v", statusLabel(e.Status), e.Attempts, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// RejectionError 将结构化拒绝包装为 ErrPermanent。
type RejectionError struct {
	Rejection Rejection
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("relay rejected payload: code=%d message=%s", e.Rejection.Code, e.Rejection.Message)
}

func (e *RejectionError) Unwrap() error {
	return ErrPermanent
}

// IsRetryable 判断错误是否为可重试的传输错误。
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) && !errors.Is(err, ErrPermanent)
}

func statusLabel(status Status) string {
	switch status {
	case StatusRejected:
		return "被拒绝"
	case StatusExhausted:
		return "重试耗尽"
	case StatusAccepted:
		return "成功"
	default:
		return "未完成"
	}
}
