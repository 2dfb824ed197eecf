package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/timelock/internal/config"
	"github.com/mrz1836/timelock/internal/metrics"
	"github.com/mrz1836/timelock/internal/output"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// withWatchFlags sets the watch flag variables and restores them on cleanup.
func withWatchFlags(t *testing.T, interval time.Duration, addr string, count int) {
	t.Helper()
	origInterval, origAddr, origCount := watchInterval, watchMetricsAddr, watchCount
	t.Cleanup(func() {
		watchInterval, watchMetricsAddr, watchCount = origInterval, origAddr, origCount
	})
	watchInterval, watchMetricsAddr, watchCount = interval, addr, count
}

func TestRunWatch_NothingToWatch(t *testing.T) {
	env := newTestEnv(t)
	withWatchFlags(t, 10*time.Millisecond, "", 1)
	cmd, _ := env.command(output.FormatText)

	err := runWatch(cmd, nil)
	require.ErrorIs(t, err, tlerr.ErrInvalidInput)
}

func TestRunWatch(t *testing.T) {
	env := newTestEnv(t)
	s := env.deploy(t)

	t.Run("text snapshots", func(t *testing.T) {
		withWatchFlags(t, 10*time.Millisecond, "", 2)
		cmd, buf := env.command(output.FormatText)
		require.NoError(t, runWatch(cmd, nil))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		for _, line := range lines {
			assert.Contains(t, line, "wallet "+devAddress.Hex())
			assert.Contains(t, line, "contract "+s.Contract.Address.Hex()+": 1 ETH")
		}
	})

	t.Run("json snapshots", func(t *testing.T) {
		withWatchFlags(t, 10*time.Millisecond, "", 1)
		cmd, buf := env.command(output.FormatJSON)
		require.NoError(t, runWatch(cmd, nil))

		var got snapshotJSON
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.NotNil(t, got.Session.Contract)
		assert.Equal(t, "1", got.Session.Contract.BalanceEther)
		assert.Empty(t, got.Error)
	})

	t.Run("refresh failure is reported and the session kept", func(t *testing.T) {
		withWatchFlags(t, 10*time.Millisecond, "", 1)
		env.backend.Fail("BalanceAt", io.ErrUnexpectedEOF)
		cmd, buf := env.command(output.FormatText)
		require.NoError(t, runWatch(cmd, nil))

		assert.Contains(t, buf.String(), "refresh failed")
		assert.True(t, env.session(t).HasContract())
	})

	t.Run("bad metrics address", func(t *testing.T) {
		withWatchFlags(t, 10*time.Millisecond, "256.0.0.1:bad", 1)
		cmd, _ := env.command(output.FormatText)
		err := runWatch(cmd, nil)
		require.ErrorIs(t, err, tlerr.ErrInvalidInput)
	})
}

func TestServeMetrics(t *testing.T) {
	m := metrics.New()
	m.SetBalance("wallet", ether(3))
	m.RecordOperation("deploy", "success")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, addr, err := serveMetrics(ctx, "127.0.0.1:0", m, config.NullLogger())
	require.NoError(t, err)
	defer shutdown()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+metricsPath, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var found []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "timelock_") {
			found = append(found, line)
		}
	}
	require.NoError(t, scanner.Err())
	assert.Contains(t, found, `timelock_balance_wei{holder="wallet"} 3e+18`)
	assert.Contains(t, found, `timelock_operations_total{operation="deploy",result="success"} 1`)
}
