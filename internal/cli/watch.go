package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/timelock/internal/chain"
	"github.com/mrz1836/timelock/internal/metrics"
	"github.com/mrz1836/timelock/internal/output"
	"github.com/mrz1836/timelock/internal/service/lock"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

const (
	metricsPath              = "/metrics"
	metricsReadHeaderTimeout = 10 * time.Second
	metricsShutdownTimeout   = 5 * time.Second
)

// watchCmd refreshes session balances on an interval.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh session balances on an interval",
	Long: `Re-read the wallet and contract balances of the session every interval
until interrupted, printing each snapshot. With --metrics-addr the balances
and operation counters are also served for Prometheus at /metrics.

Example:
  timelock watch
  timelock watch --interval 10s --metrics-addr 127.0.0.1:9464`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	watchInterval    time.Duration
	watchMetricsAddr string
	watchCount       int
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "refresh interval (default: refresh.interval)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (default: metrics.addr)")
	watchCmd.Flags().IntVar(&watchCount, "count", 0, "stop after this many snapshots (0 runs until interrupted)")
}

// snapshotJSON is one watch line in JSON mode.
type snapshotJSON struct {
	At      string      `json:"at"`
	Session sessionJSON `json:"session"`
	Error   string      `json:"error,omitempty"`
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	ctx, stop := signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, cc, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.close()

	if !rt.session.Active() && !rt.session.HasContract() {
		return tlerr.WithSuggestion(
			tlerr.WithDetails(tlerr.ErrInvalidInput, map[string]string{"network": rt.network.Name, "reason": "nothing to watch"}),
			"run 'timelock connect' first",
		)
	}

	f := cc.formatterFor(cmd)
	addr := watchMetricsAddr
	if addr == "" {
		addr = cc.Config.Metrics.Addr
	}
	if addr != "" && cc.Metrics != nil {
		shutdown, bound, err := serveMetrics(ctx, addr, cc.Metrics, cc.logger())
		if err != nil {
			return err
		}
		defer shutdown()
		if !f.IsJSON() {
			output.Infof(cmd.ErrOrStderr(), "serving metrics on http://%s%s", bound, metricsPath)
		}
	}

	interval := watchInterval
	if interval <= 0 {
		interval = cc.Config.Refresh.Interval
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	seen := 0
	final := lock.NewRefresher(rt.service, interval).Run(runCtx, rt.session, func(s lock.Snapshot) {
		printSnapshot(f, s)
		seen++
		if watchCount > 0 && seen >= watchCount {
			cancel()
		}
	})

	return rt.save(final)
}

func printSnapshot(f *output.Formatter, s lock.Snapshot) {
	if f.IsJSON() {
		v := snapshotJSON{At: s.At.UTC().Format(time.RFC3339), Session: newSessionJSON(s.Session)}
		if s.Err != nil {
			v.Error = s.Err.Error()
		}
		_ = f.Print(v)
		return
	}

	parts := []string{s.At.Format("15:04:05")}
	if w := s.Session.Wallet; w != nil && w.BalanceWei != nil {
		parts = append(parts, "wallet "+w.Address.Hex()+": "+chain.FormatEther(w.BalanceWei)+" ETH")
	}
	if c := s.Session.Contract; c != nil && c.CachedBalanceWei != nil {
		parts = append(parts, "contract "+c.Address.Hex()+": "+chain.FormatEther(c.CachedBalanceWei)+" ETH")
	}
	if s.Err != nil {
		parts = append(parts, "refresh failed: "+s.Err.Error())
	}
	_ = f.Println(strings.Join(parts, " | "))
}

// debugLogger is the logging the metrics server needs.
type debugLogger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// serveMetrics starts the Prometheus endpoint in the background. It returns
// a shutdown function and the bound address.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, log debugLogger) (func(), string, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, "", tlerr.WithCause(tlerr.WithDetails(tlerr.ErrInvalidInput, map[string]string{"metrics_addr": addr}), err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, m.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server: %v", err)
		}
	}()
	log.Debug("metrics listening on %s", ln.Addr())

	shutdown := func() {
		sctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}
	return shutdown, ln.Addr().String(), nil
}
