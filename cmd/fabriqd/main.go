// Command fabriqd runs a single partition-fabric node: it loads the fabric
// configuration, computes the solo assignment, serves Prometheus metrics,
// and logs resolves for a few sample entities. It exists to demonstrate the
// wiring; production services embed the library instead.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/arloliu/fabriq"
	"github.com/arloliu/fabriq/discovery"
	"github.com/arloliu/fabriq/event"
	"github.com/arloliu/fabriq/internal/logging"
	"github.com/arloliu/fabriq/internal/metrics"
)

var (
	configPath  string
	serviceID   string
	metricsAddr string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fabriqd",
		Short: "A partition assignment and routing fabric node",
		Long: `Fabriqd is a demonstration of the fabriq library.
It starts a single core/rule-engine node, computes its partition assignment,
and exposes Prometheus metrics for the fabric.`,
		RunE: runNode,
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML configuration (defaults used when empty)")
	rootCmd.Flags().StringVar(&serviceID, "service-id", "fabriqd-0", "Unique service instance identifier")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Prometheus metrics listen address")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runNode(_ *cobra.Command, _ []string) error {
	log := logging.NewSlog(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := fabriq.DefaultConfig()
	if configPath != "" {
		loaded, err := fabriq.LoadFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	provider := discovery.NewStatic(
		serviceID,
		[]string{string(fabriq.ServiceTypeCore), string(fabriq.ServiceTypeRuleEngine)},
		fabriq.NilTenantID,
	)
	bus := event.NewBus(log)
	bus.Subscribe(func(evt any) {
		switch e := evt.(type) {
		case fabriq.PartitionChangeEvent:
			log.Info("partition assignment changed", "serviceKey", e.ServiceKey.String(), "partitions", len(e.Partitions))
		case fabriq.ClusterTopologyChangeEvent:
			log.Info("cluster topology changed", "serviceKeys", e.ServiceKeys)
		}
	})

	collector := metrics.NewPrometheus(nil, "fabriq")
	svc, err := fabriq.NewPartitionService(cfg, provider, bus,
		fabriq.WithLogger(log),
		fabriq.WithMetrics(collector),
	)
	if err != nil {
		return fmt.Errorf("failed to create partition service: %w", err)
	}

	svc.RecalculatePartitions(provider.ServiceInfo(), nil)
	log.Info("assignment computed",
		"core", len(svc.GetCurrentPartitions(fabriq.ServiceTypeCore)),
		"ruleEngine", len(svc.GetCurrentPartitions(fabriq.ServiceTypeRuleEngine)),
	)

	for range 3 {
		entityID := uuid.New()
		tpi, err := svc.Resolve(fabriq.ServiceTypeCore, fabriq.NilTenantID, entityID)
		if err != nil {
			return err
		}
		log.Info("sample resolve", "entityId", entityID.String(), "topic", tpi.FullTopicName())
	}

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			log.Error("metrics listener failed", "error", err)
		}
	}()
	log.Info("serving metrics", "addr", metricsAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")

	return nil
}
