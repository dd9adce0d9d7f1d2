package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
)

const maxResponseBytes = 1 << 20

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *Rejection      `json:"error"`
}

// JSONRPCClient 通过 JSON-RPC sendTransaction 将交易投递到中继。
type JSONRPCClient struct {
	httpClient *http.Client
	nextID     atomic.Uint64
}

// NewJSONRPCClient 创建中继客户端，httpClient 为空时使用默认超时。
func NewJSONRPCClient(httpClient *http.Client) *JSONRPCClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultAttemptTimeout + 5*time.Second}
	}
	return &JSONRPCClient{httpClient: httpClient}
}

// Post 以 base58 编码发送 payload。仅 2xx 响应中的结构化错误作为 Rejection 返回，其余失败均为传输错误。
func (c *JSONRPCClient) Post(ctx context.Context, endpoint string, payload []byte) (Response, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  "sendTransaction",
		Params: []interface{}{
			base58.Encode(payload),
			map[string]string{"encoding": "base58"},
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("relay: 序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("relay: 构造请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("%w: 读取响应失败: %w", ErrTransient, err)
	}

	// 非 2xx（含携带 error 的 429 限流）一律按传输错误处理。
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, fmt.Errorf("%w: status %d: %s", ErrTransient, resp.StatusCode, snippet(raw))
	}

	var envelope rpcResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Response{}, fmt.Errorf("%w: 无法解析的响应 status=%d body=%s", ErrTransient, resp.StatusCode, snippet(raw))
	}
	if envelope.Error != nil {
		return Response{Rejection: envelope.Error}, nil
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return Response{}, fmt.Errorf("%w: 响应缺少 result status=%d body=%s", ErrTransient, resp.StatusCode, snippet(raw))
	}

	var result string
	if err := json.Unmarshal(envelope.Result, &result); err != nil {
		result = string(envelope.Result)
	}
	return Response{Result: result}, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 256 {
		return s[:256] + "..."
	}
	return s
}
