package relay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var errDeadlineTooClose = errors.New("relay: deadline exceeded before next attempt")

// Submitter 将同一份已签名数据投递到中继，在有限次数内重试传输错误。
//
// 状态机: Pending → Accepted | Rejected | Exhausted。同一时刻只有一次请求在途，
// 每次重试发送完全相同的字节；不做本地持久化。
type Submitter struct {
	client   Client
	endpoint string
	logger   *zap.Logger
	now      func() time.Time
}

// NewSubmitter 创建提交器。
func NewSubmitter(client Client, endpoint string, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{
		client:   client,
		endpoint: endpoint,
		logger:   logger,
		now:      time.Now,
	}
}

// Endpoint 返回中继地址。
func (s *Submitter) Endpoint() string {
	return s.endpoint
}

// Submit 提交 payload 并返回最终结果；仅在 StatusAccepted 时 error 为 nil。
//
// ctx 的截止时间约束整个提交过程：若等待下一次尝试会越过截止时间，立即以 Exhausted 结束。
func (s *Submitter) Submit(ctx context.Context, payload []byte, policy Policy) (Outcome, error) {
	policy = policy.normalize()

	hash := PayloadHash(payload)
	outcome := Outcome{
		Status:      StatusPending,
		PayloadHash: hash,
		Attempts:    make([]Attempt, 0, policy.MaxAttempts),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		outcome.Status = StatusExhausted
		return outcome, &SubmissionError{
			Status:   StatusExhausted,
			Attempts: 0,
			Err:      fmt.Errorf("%w: %w", ErrTransient, ctxErr),
		}
	}

	var lastErr error
	for seq := 0; seq < policy.MaxAttempts; seq++ {
		if seq > 0 {
			if waitErr := s.wait(ctx, policy.Backoff); waitErr != nil {
				s.logger.Warn("等待重试时到达截止时间，停止提交",
					zap.String("payload_hash", hash),
					zap.Int("attempts", seq),
					zap.Error(waitErr),
				)
				outcome.Status = StatusExhausted
				return outcome, &SubmissionError{
					Status:   StatusExhausted,
					Attempts: seq,
					Err:      fmt.Errorf("%w: %w", ErrTransient, errors.Join(lastErr, waitErr)),
				}
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
		start := s.now()
		resp, err := s.client.Post(attemptCtx, s.endpoint, payload)
		duration := s.now().Sub(start)
		cancel()

		attempt := Attempt{
			Sequence:    seq,
			PayloadHash: hash,
			Duration:    duration,
		}

		switch {
		case err != nil:
			attempt.Outcome = AttemptTransient
			attempt.Detail = err.Error()
			outcome.Attempts = append(outcome.Attempts, attempt)
			lastErr = err

			s.logger.Warn("中继提交失败，等待重试",
				zap.String("endpoint", s.endpoint),
				zap.String("payload_hash", hash),
				zap.Int("attempt", seq+1),
				zap.Int("max_attempts", policy.MaxAttempts),
				zap.Duration("latency", duration),
				zap.Duration("wait", policy.Backoff),
				zap.Error(err),
			)
			continue

		case resp.Rejection != nil:
			rejection := *resp.Rejection
			attempt.Outcome = AttemptRejected
			attempt.Detail = rejection.Message
			outcome.Attempts = append(outcome.Attempts, attempt)
			outcome.Status = StatusRejected
			outcome.Rejection = &rejection

			s.logger.Error("中继拒绝交易",
				zap.String("endpoint", s.endpoint),
				zap.String("payload_hash", hash),
				zap.Int("attempts", seq+1),
				zap.Int("code", rejection.Code),
				zap.String("message", rejection.Message),
			)
			return outcome, &SubmissionError{
				Status:   StatusRejected,
				Attempts: seq + 1,
				Err:      &RejectionError{Rejection: rejection},
			}

		default:
			attempt.Outcome = AttemptAccepted
			outcome.Attempts = append(outcome.Attempts, attempt)
			outcome.Status = StatusAccepted
			outcome.Result = resp.Result

			if seq > 0 {
				s.logger.Info("中继提交重试后成功",
					zap.String("payload_hash", hash),
					zap.Int("attempts", seq+1),
					zap.Duration("latency", duration),
				)
			}
			return outcome, nil
		}
	}

	s.logger.Error("中继提交重试耗尽",
		zap.String("endpoint", s.endpoint),
		zap.String("payload_hash", hash),
		zap.Int("attempts", policy.MaxAttempts),
		zap.Error(lastErr),
	)
	outcome.Status = StatusExhausted
	return outcome, &SubmissionError{
		Status:   StatusExhausted,
		Attempts: policy.MaxAttempts,
		Err:      fmt.Errorf("%w: %w", ErrTransient, lastErr),
	}
}

func (s *Submitter) wait(ctx context.Context, d time.Duration) error {
	if deadline, ok := ctx.Deadline(); ok && s.now().Add(d).After(deadline) {
		return errDeadlineTooClose
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PayloadHash 返回 payload 的 SHA-256 十六进制摘要。
func PayloadHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
