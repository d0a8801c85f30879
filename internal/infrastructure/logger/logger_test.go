package logger

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactQuery(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"since_id=3", "since_id=3"},
		{"token=abc.def.ghi", "token=%2A%2A%2A"},
		{"since_id=3&token=abc", "since_id=3&token=%2A%2A%2A"},
		{"token=a&token=b", "token=%2A%2A%2A"},
		{"%zz=1", "[unparsable]"},
	}
	for _, tc := range cases {
		if got := redactQuery(tc.raw); got != tc.want {
			t.Errorf("redactQuery(%q)=%q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestGinLoggerMasksToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	undo := zap.ReplaceGlobals(zap.New(core))
	defer undo()

	r := gin.New()
	r.Use(GinLogger(), GinRecovery(false))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	const secret = "eyJhbGciOiJIUzI1NiJ9.secret.sig"
	for _, path := range []string{"/ok", "/boom"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path+"?since_id=7&token="+secret, nil))
	}

	if logs.Len() == 0 {
		t.Fatal("no log entries recorded")
	}
	for _, entry := range logs.All() {
		for key, value := range entry.ContextMap() {
			if s, ok := value.(string); ok && strings.Contains(s, secret) {
				t.Fatalf("%q field %q leaks token: %s", entry.Message, key, s)
			}
		}
	}
	requests := logs.FilterMessage("http request").All()
	if len(requests) != 2 {
		t.Fatalf("http request entries=%d", len(requests))
	}
	if q := requests[0].ContextMap()["query"]; !strings.Contains(q.(string), "since_id=7") {
		t.Fatalf("query lost other params: %v", q)
	}
}
