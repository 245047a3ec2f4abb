package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"csb/client/logger"
	"csb/client/runner"
	"csb/client/store"
	benchCfg "csb/control/config"
	constants "csb/control/constants"
)

var runLogFile string

var RunCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Run the configured workload",
	Long:  "Run the configured workload against the store with one accessor per thread, reporting statistics until the termination condition is met or the run is interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if GConfig.ctlConfig == nil {
			fmt.Println("Config not found, please run 'benchctl config init' first")
			os.Exit(1)
		}
		log, err := logger.NewLogger(runLogFile, GConfig.ctlConfig.LogLevel)
		if err != nil {
			return err
		}
		defer log.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		err = runWorkload(ctx, GConfig.ctlConfig, log.Named("run"))
		if err != nil {
			log.Error("benchmark run failed", zap.Error(err))
			return err
		}
		log.Info("Benchmark terminated")
		return nil
	},
}

func init() {
	RunCmd.Flags().StringVar(&runLogFile, "log-file", constants.DEFAULT_BENCH_RUN_LOG_FILE, "Also write the log to this file")
}

func runWorkload(ctx context.Context, cfg *benchCfg.BenchctlConfig, log *zap.Logger) error {
	st, err := openStore(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	defer store.Close(st)

	rep, closeLoggers, err := reporting(cfg, log)
	if err != nil {
		return err
	}
	defer closeLoggers()

	configs, err := accessorConfigs(cfg, st, rep, log)
	if err != nil {
		return err
	}
	workload, err := runner.NewPatternAccessor(runner.MultiConfig{
		Accessors:       configs,
		Termination:     termination(ctx, cfg, st),
		Statistics:      cfg.Statistics,
		Reporter:        rep,
		Logger:          log,
		Seed:            cfg.Seed,
		Pattern:         accessPattern(cfg),
		ShutdownTimeout: cfg.ShutdownTimeout.Std(),
	})
	if err != nil {
		return err
	}

	log.Info("starting workload",
		zap.String("store", st.Name()),
		zap.Int("threads", cfg.Threads),
		zap.Int64("iterations", cfg.Iterations),
		zap.Stringer("duration", cfg.Duration),
		zap.String("pattern", cfg.Pattern),
		zap.String("validation", cfg.Validation))
	for _, d := range workload.Accessors()[0].Operations() {
		log.Info("operation", zap.String("name", string(d.Name)), zap.Float64("ratio", d.Ratio))
	}

	runErr := workload.Run(ctx)
	summarize(log, "workload", rep)
	if ctx.Err() != nil {
		log.Warn("workload interrupted")
	}
	return runErr
}
