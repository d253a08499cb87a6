// acfsgateway-server runs the operator gateway: the REST + WebSocket
// front door over the tool registry, probe/classifier, diagnostics,
// install planner, snapshot aggregator, context health engine, and
// maintenance coordinator. Flags and ACFSGATEWAY_/ACFS_* env vars
// override acfsgateway.yaml the way alex-server layers ALEX_* env vars
// over config.yaml.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"acfsgateway/internal/contexthealth"
	"acfsgateway/internal/eventhub"
	"acfsgateway/internal/installplan"
	"acfsgateway/internal/maintenance"
	gwhttp "acfsgateway/internal/server/http"
	"acfsgateway/internal/shared/config"
	"acfsgateway/internal/shared/logging"
	"acfsgateway/internal/snapshot"
	"acfsgateway/internal/toolprobe"
	"acfsgateway/internal/toolregistry"
	"acfsgateway/internal/updatecheck"
)

var (
	flagConfigFile string
	flagPort       int
	flagManifest   string
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "acfsgateway-server",
		Short: "Operator gateway for the tool fleet coordination cores",
		// No subcommand behaves like `serve`, mirroring alex-server's
		// single-mode posture.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&flagConfigFile, "config", "", "path to acfsgateway.yaml (default: search ./ and $HOME)")
	root.PersistentFlags().IntVar(&flagPort, "port", 0, "override server.port")
	root.PersistentFlags().StringVar(&flagManifest, "manifest", "", "override registry.manifest_path")

	root.AddCommand(newServeCommand())
	root.AddCommand(newConfigCommand())
	root.AddCommand(newRegistryCommand())
	root.AddCommand(newInstallCommand())
	return root
}

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}
	configCmd.AddCommand(newConfigShowCommand())
	return configCmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket gateway (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Printf("%+v\n", cfg)
			return nil
		},
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.Options{ExplicitPath: flagConfigFile})
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if flagPort != 0 {
		cfg.Server.Port = flagPort
	}
	if flagManifest != "" {
		cfg.Registry.ManifestPath = flagManifest
	}
	return cfg, nil
}

// updateRepos turns the config's tool -> "owner/repo" map into RepoSpecs,
// skipping malformed values.
func updateRepos(repos map[string]string) []updatecheck.RepoSpec {
	var specs []updatecheck.RepoSpec
	for tool, loc := range repos {
		parts := strings.SplitN(loc, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		specs = append(specs, updatecheck.RepoSpec{Tool: tool, Owner: parts[0], Repo: parts[1]})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Tool < specs[j].Tool })
	return specs
}

func newRegistryCommand() *cobra.Command {
	registryCmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the tool manifest",
	}
	registryCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the manifest without loading it into the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			registry := toolregistry.New(toolregistry.Config{OverridePath: cfg.Registry.ManifestPath})
			path := registry.ResolvePath()

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read manifest %s: %w", path, err)
			}
			var manifest toolregistry.Manifest
			if err := yaml.Unmarshal(data, &manifest); err != nil {
				return fmt.Errorf("parse manifest %s: %w", path, err)
			}

			issues := toolregistry.Validate(manifest)
			if len(issues) == 0 {
				fmt.Printf("%s: valid (%d tools)\n", path, len(manifest.Tools))
				return nil
			}
			for _, issue := range issues {
				fmt.Println(issue.String())
			}
			return fmt.Errorf("%d validation issue(s)", len(issues))
		},
	})
	return registryCmd
}

func newInstallCommand() *cobra.Command {
	var script bool

	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Derive install plans from the manifest and detected CLIs",
	}
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the phase-ordered install plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			registry := toolregistry.New(toolregistry.Config{
				OverridePath: cfg.Registry.ManifestPath,
				CacheTTL:     cfg.Registry.CacheTTL,
			})
			tools, err := registry.ListAll()
			if err != nil {
				return err
			}

			detector := toolprobe.NewDetector(cfg.Detector.CacheTTL, cfg.Detector.CacheSize)
			agg := detector.DetectAll(cmd.Context(), toolprobe.BuiltinAgents(), toolprobe.BuiltinTools(), false)

			var detected []installplan.DetectedStatus
			for _, d := range append(append([]toolprobe.DetectedCLI{}, agg.Agents...), agg.Tools...) {
				detected = append(detected, installplan.FromDetectedCLI(d))
			}

			plan := installplan.Build(tools, detected)
			if script {
				fmt.Print(plan.InstallScript)
				return nil
			}

			for _, e := range plan.Entries {
				version := ""
				if e.Version != nil {
					version = " " + *e.Version
				}
				fmt.Printf("[phase %d] %-20s %s%s\n", e.Phase, e.DisplayName, e.Status, version)
			}
			fmt.Printf("ready=%v installed=%d missing_required=%d missing_optional=%d\n",
				plan.Ready, plan.Installed, plan.MissingRequired, plan.MissingOptional)
			return nil
		},
	}
	planCmd.Flags().BoolVar(&script, "script", false, "print the install script instead of the plan table")
	installCmd.AddCommand(planCmd)
	return installCmd
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logger.Info("starting acfsgateway-server", "port", cfg.Server.Port, "environment", cfg.Server.Environment)

	registerer := prometheus.NewRegistry()

	hub := eventhub.New(eventhub.Config{
		BacklogCapacity: cfg.EventHub.BacklogCapacity,
		BacklogTTL:      cfg.EventHub.BacklogTTL,
		SubscriberQueue: cfg.EventHub.SubscriberQueue,
	})

	registry := toolregistry.New(toolregistry.Config{
		OverridePath: cfg.Registry.ManifestPath,
		CacheTTL:     cfg.Registry.CacheTTL,
		ThrowOnError: cfg.Registry.ThrowOnError,
	})

	detector := toolprobe.NewDetector(cfg.Detector.CacheTTL, cfg.Detector.CacheSize)
	agents := toolprobe.BuiltinAgents()
	tools := toolprobe.BuiltinTools()

	toolHealth := snapshot.RegistryToolHealthCollector{
		Registry: registry,
		Detector: detector,
		Tools:    tools,
	}
	agentMail := snapshot.FileAgentMailCollector{Dir: cfg.Snapshot.AgentMailDir}
	ntm := snapshot.HTTPNTMCollector{BaseURL: cfg.Snapshot.NTMBaseURL}
	beads := snapshot.CLIBeadsCollector{}

	snapService := snapshot.NewService(snapshot.Config{
		CacheTTL:          cfg.Snapshot.CacheTTL,
		CollectionTimeout: cfg.Snapshot.CollectionTimeout,
		Registerer:        registerer,
		Hub:               hub,
	}, ntm, beads, toolHealth, agentMail)

	contextEngine := contexthealth.NewEngine(contexthealth.Config{
		ModelLimits:      cfg.ContextHealth.ModelLimits,
		DefaultMaxTokens: cfg.ContextHealth.DefaultMaxTokens,
		Thresholds: contexthealth.Thresholds{
			Warning:   cfg.ContextHealth.WarningThreshold,
			Critical:  cfg.ContextHealth.CriticalThreshold,
			Emergency: cfg.ContextHealth.EmergencyThreshold,
		},
		MonitorInterval:        cfg.ContextHealth.MonitorInterval,
		Cooldown:               cfg.ContextHealth.Cooldown,
		AutoHeal:               cfg.ContextHealth.AutoHeal,
		SummarizationEnabled:   cfg.ContextHealth.SummarizationEnabled,
		RotationEnabled:        cfg.ContextHealth.RotationEnabled,
		DefaultTargetReduction: cfg.ContextHealth.DefaultTargetReduction,
	}, hub)

	maintCoord := maintenance.New(hub)

	updates := updatecheck.New(updatecheck.Config{
		Repos:    updateRepos(cfg.Updates.Repos),
		Token:    cfg.GitHubToken,
		CacheTTL: cfg.Updates.CacheTTL,
		Hub:      hub,
	})

	srv := gwhttp.NewServer(gwhttp.RouterDeps{
		Registry:        registry,
		Detector:        detector,
		Agents:          agents,
		Tools:           tools,
		SnapshotService: snapService,
		ContextHealth:   contextEngine,
		Maintenance:     maintCoord,
		Updates:         updates,
		Hub:             hub,
	}, gwhttp.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment:    cfg.Server.Environment,
	})

	engine := srv.Engine()
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registerer, promhttp.HandlerOpts{})))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down: draining in-flight requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	contextEngine.Shutdown()
	return httpServer.Shutdown(shutdownCtx)
}
