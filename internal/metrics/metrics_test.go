package metrics

import (
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefresh = errors.New("node unreachable")

func TestRecordOperation(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordOperation("deploy", "success")
	m.RecordOperation("withdraw", "failure")
	m.RecordOperation("withdraw", "failure")

	assert.InDelta(t, 1, testutil.ToFloat64(m.operations.WithLabelValues("deploy", "success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.operations.WithLabelValues("withdraw", "failure")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.operations))
}

func TestRecordRefresh(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordRefresh(nil)
	m.RecordRefresh(nil)
	m.RecordRefresh(errRefresh)

	assert.InDelta(t, 2, testutil.ToFloat64(m.refreshes.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.refreshes.WithLabelValues("error")), 0)
}

func TestSetBalance(t *testing.T) {
	t.Parallel()
	m := New()

	m.SetBalance("wallet", big.NewInt(1_000_000_000))
	m.SetBalance("contract", nil)

	assert.InDelta(t, 1e9, testutil.ToFloat64(m.balances.WithLabelValues("wallet")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.balances))

	m.SetBalance("wallet", big.NewInt(5))
	assert.InDelta(t, 5, testutil.ToFloat64(m.balances.WithLabelValues("wallet")), 0)
}

func TestHandler(t *testing.T) {
	t.Parallel()
	m := New()
	m.RecordOperation("unlock", "success")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL) //nolint:noctx // test server
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `timelock_operations_total{operation="unlock",result="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
