package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"support_chat_server/internal/dto/request"
	"support_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  json.RawMessage `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := InitTrans("zh"); err != nil {
		t.Fatalf("InitTrans: %v", err)
	}
	r := gin.New()
	r.POST("/send", func(c *gin.Context) {
		var req request.SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleParamError(c, err)
			return
		}
		HandleSuccess(c, req.Entities)
	})
	r.POST("/outcome", func(c *gin.Context) {
		var req request.SetOutcomeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleParamError(c, err)
			return
		}
		HandleSuccess(c, nil)
	})
	r.GET("/fail/:kind", func(c *gin.Context) {
		switch c.Param("kind") {
		case "business":
			HandleError(c, errorx.New(errorx.CodeSessionNotActive, "会话已结束"))
		case "db":
			HandleError(c, errorx.Wrap(errors.New("connection refused"), errorx.CodeDBError, "数据库错误"))
		default:
			HandleError(c, errors.New("boom"))
		}
	})
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) envelope {
	t.Helper()
	var raw []byte
	if body != nil {
		raw, _ = json.Marshal(body)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s: status=%d", method, path, w.Code)
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	if env.Data == nil {
		t.Fatalf("%s %s: envelope missing data: %s", method, path, w.Body.String())
	}
	return env
}

func TestAnnotationValidators(t *testing.T) {
	r := newTestEngine(t)
	sid := strings.Repeat("S", 20)

	cases := []struct {
		name     string
		path     string
		body     map[string]any
		badField string
	}{
		{"known labels", "/send", map[string]any{
			"session_id": sid, "text": "hi", "emotion": "anger", "outcome": "resolved",
			"entities": map[string]any{"Order Number": "A-1", "refund_id": "R9", "email": nil},
		}, ""},
		{"unknown emotion", "/send", map[string]any{"session_id": sid, "text": "hi", "emotion": "joy"}, "emotion"},
		{"unknown outcome", "/send", map[string]any{"session_id": sid, "text": "hi", "outcome": "closed"}, "outcome"},
		{"unknown entity type", "/send", map[string]any{
			"session_id": sid, "text": "hi", "entities": map[string]any{"Shoe Size": "42"},
		}, "entities[Shoe Size]"},
		{"set outcome", "/outcome", map[string]any{"session_id": sid, "outcome": "escalated"}, ""},
		{"set unknown outcome", "/outcome", map[string]any{"session_id": sid, "outcome": "done"}, "outcome"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := do(t, r, http.MethodPost, tc.path, tc.body)
			if tc.badField == "" {
				if env.Code != errorx.CodeSuccess {
					t.Fatalf("code=%d msg=%s", env.Code, env.Msg)
				}
				return
			}
			if env.Code != errorx.CodeInvalidParam {
				t.Fatalf("code=%d, want %d", env.Code, errorx.CodeInvalidParam)
			}
			var fields map[string]string
			if err := json.Unmarshal(env.Msg, &fields); err != nil {
				t.Fatalf("msg is not a field map: %s", env.Msg)
			}
			text, ok := fields[tc.badField]
			if !ok {
				t.Fatalf("field %q missing from %v", tc.badField, fields)
			}
			// 自定义规则必须有中文提示，而不是 validator 的默认英文
			if strings.Contains(text, "failed on the") {
				t.Fatalf("untranslated message: %s", text)
			}
		})
	}
}

func TestHandleErrorEnvelope(t *testing.T) {
	r := newTestEngine(t)

	cases := []struct {
		kind string
		code int
	}{
		{"business", errorx.CodeSessionNotActive},
		{"db", errorx.CodeDBError},
		{"plain", errorx.CodeServerBusy},
	}
	for _, tc := range cases {
		env := do(t, r, http.MethodGet, "/fail/"+tc.kind, nil)
		if env.Code != tc.code {
			t.Errorf("%s: code=%d, want %d", tc.kind, env.Code, tc.code)
		}
		if string(env.Data) != "null" {
			t.Errorf("%s: data=%s", tc.kind, env.Data)
		}
	}
}
