package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icn-network/poc"
	"github.com/icn-network/poc/internal/config"
	"github.com/icn-network/poc/internal/localnet"
	"github.com/icn-network/poc/internal/profiling"
	"github.com/icn-network/poc/logging"
	"github.com/icn-network/poc/metrics"
	"github.com/icn-network/poc/store/boltstore"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulated network.",
	Long: `The run command runs the consensus engine together with simulated validators in this process.
By default, a test network with four validators runs for ten seconds.
Use '--genesis' to run the validators of a genesis file instead, and '--silent' to
make some of the validators never propose or vote.
If '--metrics-addr' is set, Prometheus metrics are served on that address.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		stats, err := runNetwork(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), stats)
		return nil
	},
}

// consensusFlags maps flags of the run command to consensus settings.
var consensusFlags = map[string]string{
	"proposal-timeout":  "consensus.round.proposal-timeout",
	"voting-timeout":    "consensus.round.voting-timeout",
	"max-timeout":       "consensus.round.max-timeout",
	"quorum-fraction":   "consensus.round.quorum-fraction",
	"proposer-cooldown": "consensus.validator.proposer-cooldown",
	"min-reputation":    "consensus.validator.min-reputation",
	"log-events":        "consensus.events.log-events",
}

func init() {
	rootCmd.AddCommand(runCmd)

	d := poc.DefaultConfig()
	f := runCmd.Flags()
	f.Int("validators", 4, "number of validators in the generated test network")
	f.Int("silent", 0, "number of validators that never propose or vote")
	f.Duration("duration", 10*time.Second, "how long to run the network (0 runs until interrupted)")
	f.String("genesis", "", "genesis file to run instead of a generated test network")
	f.String("data-dir", "", "directory for the block store (blocks are kept in memory by default)")
	f.Int64("shared-seed", 0, "shared seed of the proposer selection")
	f.Float64("payload-rate", 0, "maximum number of block payloads per second (0 means no limit)")
	f.Int("payload-size", 64, "size in bytes of block payloads")

	f.String("metrics-addr", "", "address to serve Prometheus metrics on (disabled by default)")
	f.Duration("measurement-interval", 0, "time interval between logged round summaries")

	f.String("output", "", "the directory to save profiles to (disabled by default)")
	f.Bool("cpu-profile", false, "enable cpu profiling")
	f.Bool("mem-profile", false, "enable memory profiling")
	f.Bool("trace", false, "enable trace")
	f.Bool("fgprof-profile", false, "enable fgprof")

	f.Duration("proposal-timeout", d.Round.ProposalTimeout, "time to wait for a block in the first round")
	f.Duration("voting-timeout", d.Round.VotingTimeout, "time to wait for a quorum in the first round")
	f.Duration("max-timeout", d.Round.MaxTimeout, "upper limit on round timeouts")
	f.Float64("quorum-fraction", d.Round.QuorumFraction, "share of the total reputation that approvals must reach (strictly more than 0.5 by default)")
	f.Duration("proposer-cooldown", d.Validator.ProposerCooldown, "minimum time between two proposals of a validator")
	f.Float64("min-reputation", d.Validator.MinReputation, "reputation needed to vote")
	f.Bool("log-events", d.Events.LogEvents, "log every consensus event at debug level")

	for name, key := range consensusFlags {
		cobra.CheckErr(viper.BindPFlag(key, f.Lookup(name)))
	}
	for _, name := range []string{
		"validators", "silent", "duration", "genesis", "data-dir", "shared-seed", "payload-rate",
		"payload-size", "metrics-addr", "measurement-interval", "output", "cpu-profile",
		"mem-profile", "trace", "fgprof-profile",
	} {
		cobra.CheckErr(viper.BindPFlag(name, f.Lookup(name)))
	}
}

func runNetwork(ctx context.Context, cfg *config.Node) (stats localnet.Stats, err error) {
	logger := logging.New("pocnode")

	var genesis *poc.GenesisConfig
	if cfg.GenesisFile != "" {
		genesis, err = config.LoadGenesis(cfg.GenesisFile)
		if err != nil {
			return stats, fmt.Errorf("failed to load genesis file: %w", err)
		}
	} else {
		genesis = config.Testnet(cfg.Validators, time.Now())
	}

	stopProfilers, err := profiling.Profiles{
		Dir:    cfg.Output,
		CPU:    cfg.CPUProfile,
		Memory: cfg.MemProfile,
		Trace:  cfg.Trace,
		Fgprof: cfg.FgprofProfile,
	}.Start()
	if err != nil {
		return stats, fmt.Errorf("failed to start profilers: %w", err)
	}
	defer func() {
		if stopErr := stopProfilers(); stopErr != nil {
			logger.Errorf("failed to stop profilers: %v", stopErr)
		}
	}()

	var store poc.Store
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return stats, err
		}
		bs, err := boltstore.Open(filepath.Join(cfg.DataDir, "blocks.db"))
		if err != nil {
			return stats, err
		}
		defer bs.Close()
		store = bs
	}

	network, err := localnet.New(localnet.Config{
		Genesis:     genesis,
		Consensus:   cfg.Consensus,
		Store:       store,
		Silent:      cfg.Silent,
		PayloadRate: cfg.PayloadRate,
		PayloadSize: cfg.PayloadSize,
		SharedSeed:  cfg.SharedSeed,
		Logger:      logger,
	})
	if err != nil {
		return stats, err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	if cfg.Consensus.Metrics.Enabled {
		shutdown, err := serveMetrics(ctx, cfg, network, logger)
		if err != nil {
			return stats, err
		}
		defer shutdown()
	}

	logger.Infof("running network %.8s for %v", genesis.Hash(), cfg.Duration)
	return network.Run(ctx)
}

func serveMetrics(ctx context.Context, cfg *config.Node, network *localnet.Network, logger logging.Logger) (shutdown func(), err error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	collector, err := metrics.New(cfg.Consensus.Metrics, reg, network.Engine(), logging.New("metrics"))
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	go collector.Run(ctx, clock.New(), cfg.MeasurementInterval)

	if cfg.MetricsAddr == "" {
		return func() {}, nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server: %v", err)
		}
	}()
	logger.Infof("serving metrics on %s/metrics", cfg.MetricsAddr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
