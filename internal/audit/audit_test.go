// File: internal/audit/audit_test.go
package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/apiclient"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/config"
)

// storefrontStub is a healthy storefront whose failure modes can be toggled
// per test.
type storefrontStub struct {
	checkoutStatus    int
	paymentConfigured bool
}

func newStub() *storefrontStub {
	return &storefrontStub{
		checkoutStatus:    http.StatusBadRequest,
		paymentConfigured: true,
	}
}

func (s *storefrontStub) handler() http.Handler {
	mux := http.NewServeMux()
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	mux.HandleFunc("/", ok)
	mux.HandleFunc("/checkout", ok)
	mux.HandleFunc("/checkout/success", ok)
	mux.HandleFunc("/checkout/failure", ok)
	mux.HandleFunc("/checkout/pending", ok)
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"p1","nombre":"Remera","precio":100,"stock":5}]`))
	})
	mux.HandleFunc("/api/products/p1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"p1"}`))
	})
	mux.HandleFunc("/api/checkout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(s.checkoutStatus)
	})
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"tok"}`))
	})
	mux.HandleFunc("/api/payment/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if s.paymentConfigured {
			w.Write([]byte(`{"configured":true}`))
			return
		}
		w.Write([]byte(`{"configured":false}`))
	})
	mux.HandleFunc("/api/payment/webhook", ok)
	return mux
}

func newTestAuditor(t *testing.T, stub *storefrontStub) *Auditor {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	client, err := apiclient.New(zap.NewNop(), config.TargetConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return New(zap.NewNop(), client, "admin@catalogo.local", "secret")
}

func issueCodes(report *schemas.FullAuditReport) []string {
	var codes []string
	for _, i := range report.Issues() {
		codes = append(codes, i.Code)
	}
	return codes
}

func TestFullAuditAgainstHealthyStorefront(t *testing.T) {
	a := newTestAuditor(t, newStub())

	report := a.RunFullAudit(context.Background())

	assert.Equal(t, schemas.AuditStable, report.Status, "issues: %v", issueCodes(report))
	assert.Len(t, report.Results, 8)
	for _, r := range report.Results {
		assert.Equal(t, schemas.AuditStable, r.Status, "module %s: %v", r.Module, r.Issues)
	}
}

func TestCheckoutServerErrorIsCritical(t *testing.T) {
	stub := newStub()
	stub.checkoutStatus = http.StatusInternalServerError
	a := newTestAuditor(t, stub)

	report := a.RunFullAudit(context.Background())

	assert.Equal(t, schemas.AuditCritical, report.Status)
	require.Contains(t, issueCodes(report), "CHECKOUT_API_500")
	for _, i := range report.Issues() {
		if i.Code == "CHECKOUT_API_500" {
			assert.Equal(t, schemas.SeverityCritical, i.Severity)
			assert.Equal(t, schemas.ImpactLethal, i.Impact)
		}
	}
}

func TestMisconfiguredGatewayIsCritical(t *testing.T) {
	stub := newStub()
	stub.paymentConfigured = false
	a := newTestAuditor(t, stub)

	report := a.RunFullAudit(context.Background())

	assert.Equal(t, schemas.AuditCritical, report.Status)
	assert.Contains(t, issueCodes(report), "PAYMENT_GATEWAY_MISCONFIGURED")
}

func TestRollupCountsErrorIssues(t *testing.T) {
	a := &Auditor{logger: zap.NewNop()}

	errs := func(n int) []schemas.AuditIssue {
		issues := make([]schemas.AuditIssue, n)
		for i := range issues {
			issues[i] = schemas.AuditIssue{Code: "X", Severity: schemas.SeverityError}
		}
		return issues
	}

	assert.Equal(t, schemas.AuditStable, a.rollup([]schemas.AuditResult{{Issues: errs(5)}}))
	assert.Equal(t, schemas.AuditUnstable, a.rollup([]schemas.AuditResult{{Issues: errs(6)}}))
	assert.Equal(t, schemas.AuditCritical, a.rollup([]schemas.AuditResult{
		{Issues: []schemas.AuditIssue{{Severity: schemas.SeverityCritical}}},
	}))
}

func TestApplyAutoFixesRecordsPending(t *testing.T) {
	a := &Auditor{logger: zap.NewNop()}
	report := &schemas.FullAuditReport{
		Results: []schemas.AuditResult{{
			Module: "payment",
			Issues: []schemas.AuditIssue{
				{Code: "PAYMENT_GATEWAY_MISCONFIGURED", CanAutoFix: true},
				{Code: "CHECKOUT_API_500", CanAutoFix: false},
			},
		}},
	}

	a.ApplyAutoFixes(report)

	assert.Empty(t, report.AppliedFixes)
	assert.Equal(t, []string{"PAYMENT_GATEWAY_MISCONFIGURED"}, report.PendingFixes)
}
