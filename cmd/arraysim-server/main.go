package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/signalforge/arraysim/core"
	"github.com/signalforge/arraysim/internal/api"
	"github.com/signalforge/arraysim/internal/logging"
	"github.com/signalforge/arraysim/internal/observability"
	sim "github.com/signalforge/arraysim/internal/sim/state"
)

func main() {
	httpAddr := flag.String("http-addr", ":8000", "TCP address the beamforming API listens on")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	scenarioPath := flag.String("scenarios", "configs/arraysim.yaml", "Path to a YAML file with extra scenario presets")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Warn(ctx, "tracing unavailable", logging.Err(err))
	}

	collector, err := observability.NewAPICollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}
	compute, err := observability.NewComputeCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise compute metrics", logging.Err(err))
		os.Exit(1)
	}

	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	catalog := core.NewCatalog()
	loadScenarioPresets(log, catalog, *scenarioPath)

	store := sim.NewStore(
		catalog,
		log,
		sim.WithMetricsRecorder(collector),
		sim.WithComputeRecorder(compute),
	)

	server := api.NewServer(api.Config{
		Address: *httpAddr,
		Store:   store,
		Log:     log,
		Metrics: collector,
	})

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := server.Start(stopCtx); err != nil {
		log.Error(ctx, "http server exited", logging.Err(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	observability.ShutdownWithTimeout(shutdownCtx, shutdownTracing, log)
}

func serveMetrics(addr string, collector *observability.APICollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

// loadScenarioPresets registers extra scenario presets from a YAML file on top
// of the built-in catalog. Individual bad presets are skipped, not fatal.
func loadScenarioPresets(log logging.Logger, catalog *core.Catalog, path string) {
	if path == "" || catalog == nil {
		return
	}
	ctx := context.Background()

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		log.Warn(ctx, "skipping scenario preset load", logging.String("path", path), logging.Err(err))
		return
	}

	var presets []*core.Scenario
	jsonTags := func(dc *mapstructure.DecoderConfig) { dc.TagName = "json" }
	if err := v.UnmarshalKey("scenarios", &presets, jsonTags); err != nil {
		log.Warn(ctx, "failed to parse scenario presets", logging.String("path", path), logging.Err(err))
		return
	}

	added := 0
	for _, preset := range presets {
		if preset == nil {
			continue
		}
		if err := catalog.Register(preset); err != nil {
			log.Warn(ctx, "skipping scenario preset", logging.String("id", preset.ID), logging.Err(err))
			continue
		}
		added++
	}

	log.Info(ctx, "loaded scenario presets",
		logging.String("path", path),
		logging.Int("count", added),
	)
}
