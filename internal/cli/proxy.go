package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rcliao/mealtrack/internal/logger"
	"github.com/rcliao/mealtrack/internal/metrics"
	"github.com/rcliao/mealtrack/internal/proxy"
	"github.com/rcliao/mealtrack/internal/telemetry"
)

func init() {
	proxyCmd := &cobra.Command{
		Use:   "proxy",
		Short: "Boundary forwarder",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Relay /api/proxy/* requests to the backend",
		RunE:  runProxyServe,
	}
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default: $MEALTRACK_LISTEN_ADDR or :8787)")

	proxyCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(proxyCmd)
}

func runProxyServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	if cmd.Flags().Changed("listen") {
		cfg.ListenAddr, _ = cmd.Flags().GetString("listen")
	}
	log := logger.SetupDefault(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, serviceName+"-proxy", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	fwd := proxy.NewForwarder(cfg.APIBaseURL, nil, log)
	if !fwd.Configured() {
		log.Warn("no backend base URL configured; every forwarded request will fail")
	}

	handler := proxy.NewRouter(proxy.RouterDeps{
		Forwarder:      fwd,
		Logger:         log,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
	})
	return proxy.Serve(ctx, cfg.ListenAddr, handler, log)
}
