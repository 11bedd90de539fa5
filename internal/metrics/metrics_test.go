package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func scrape(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status want 200 got %d", w.Code)
	}
	return w.Body.String()
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping/:id", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping/1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("ping status want 200 got %d", w.Code)
	}

	ObserveWithdrawalTransition("approve", "approved", decimal.RequireFromString("12.50"))
	ObserveTask("demo_task", errors.New("boom"))
	ObserveLedgerConflict()

	body := scrape(t, r)
	for _, want := range []string{
		`ledger_http_requests_total{method="GET",path="/ping/:id",status="200"}`,
		`ledger_withdrawal_transitions_total{action="approve",to_status="approved"}`,
		`ledger_tasks_processed_total{result="error",task="demo_task"}`,
		`ledger_version_conflicts_total`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output should contain %s", want)
		}
	}
}
