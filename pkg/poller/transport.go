package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Transport 同步器访问服务端的方式
type Transport interface {
	Start(ctx context.Context) (*Session, error)
	GetSession(ctx context.Context, sessionId string) (*Session, error)
	Fetch(ctx context.Context, sessionId string, sinceId int64) (*Batch, error)
	Send(ctx context.Context, req SendRequest) (*Message, error)
	End(ctx context.Context, sessionId string) (*EndResult, error)
}

// HTTPTransport 基于 /api 接口的实现
type HTTPTransport struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPTransport baseURL 形如 http://127.0.0.1:8000
func NewHTTPTransport(baseURL, token string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// envelope 服务端统一响应结构
type envelope struct {
	Code int             `json:"code"`
	Msg  json.RawMessage `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (t *HTTPTransport) Start(ctx context.Context) (*Session, error) {
	var s Session
	if err := t.do(ctx, http.MethodPost, "/api/session/start-session", struct{}{}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *HTTPTransport) GetSession(ctx context.Context, sessionId string) (*Session, error) {
	var s Session
	if err := t.do(ctx, http.MethodGet, "/api/session/"+url.PathEscape(sessionId), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *HTTPTransport) Fetch(ctx context.Context, sessionId string, sinceId int64) (*Batch, error) {
	path := "/api/session/messages/" + url.PathEscape(sessionId) + "?since_id=" + strconv.FormatInt(sinceId, 10)
	var b Batch
	if err := t.do(ctx, http.MethodGet, path, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *HTTPTransport) Send(ctx context.Context, req SendRequest) (*Message, error) {
	var m Message
	if err := t.do(ctx, http.MethodPost, "/api/session/send", req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (t *HTTPTransport) End(ctx context.Context, sessionId string) (*EndResult, error) {
	var r EndResult
	body := map[string]string{"session_id": sessionId}
	if err := t.do(ctx, http.MethodPost, "/api/session/end-session", body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// do 发送请求并解析 {code,msg,data}，非成功业务码返回 *APIError
func (t *HTTPTransport) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		var env envelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return &APIError{Code: env.Code, Msg: messageOf(env.Msg)}
	case http.StatusOK:
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Code != codeSuccess {
		return &APIError{Code: env.Code, Msg: messageOf(env.Msg)}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// messageOf msg 可能是字符串，也可能是参数校验的字段错误表
func messageOf(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
