// Command musigd runs the two-party trade-signing coordinator process: it
// loads configuration, wires up structured logging and metrics, and builds
// the MuSig RPC service over an in-process trade store. Over the network it
// serves only /healthz (and /metrics when enabled); the MuSig service itself
// is not exposed by this process.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	config "musigd/cmd/config"
	"musigd/internal/musig2"
	"musigd/internal/protocol"
	"musigd/internal/telemetry"
	"musigd/rpc"
)

// healthStatus is served on /healthz alongside the Prometheus /metrics
// endpoint, the way dexserver exposes a small JSON API next to its own
// metrics surface.
type healthStatus struct {
	Greeting     string `json:"greeting"`
	ActiveTrades int    `json:"active_trades"`
}

func main() {
	config.LoadConfig(os.Getenv("MUSIGD_ENV"))
	cfg := config.AppConfig

	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})
	if level, err := log.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	trades := protocol.NewStore()
	tel := telemetry.New(trades, os.Stdout)

	svc := rpc.NewService(trades, tel,
		func() musig2.KeyGenProvider { return musig2.RandomKeyProvider{} },
		func() musig2.NonceSeedProvider { return musig2.RandomNonceSeedProvider{} },
	)
	greeter := rpc.Greeter{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tel.RunCollector(ctx, 15*time.Second)

	if cfg.Metrics.Enabled {
		addr := cfg.Metrics.ListenAddr
		if addr == "" {
			addr = "127.0.0.1:9090"
		}
		metricsSrv := tel.StartMetricsServer(addr)
		logger.Printf("metrics listening on %s", addr)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = tel.ShutdownMetricsServer(shutdownCtx, metricsSrv)
		}()
	}

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:50051"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reply, err := greeter.SayHello(rpc.HelloRequest{Name: "musigd"})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthStatus{Greeting: reply.Message, ActiveTrades: trades.Len()})
	})
	httpSrv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()
	logger.Printf("musigd coordinator listening on %s; MuSig RPC surface (%T) is served in process by callers embedding this package", addr, svc)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Printf("shutting down, %d trade(s) still tracked", trades.Len())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}
