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
	"csb/data-generator/sequence"
)

var loadLogFile string

var LoadCmd = &cobra.Command{
	Use:   "load [flags]",
	Short: "Generate records and load them into the store to be used for benchmarking",
	Long:  "Generate the number of records specified by num_keys in the config and write them into the configured store with one partition of the key space per thread",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if GConfig.ctlConfig == nil {
			fmt.Println("Config not found, please run 'benchctl config init' first")
			os.Exit(1)
		}
		log, err := logger.NewLogger(loadLogFile, GConfig.ctlConfig.LogLevel)
		if err != nil {
			return err
		}
		defer log.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return loadStore(ctx, GConfig.ctlConfig, log.Named("load"))
	},
}

func init() {
	LoadCmd.Flags().StringVar(&loadLogFile, "log-file", "", "Also write the log to this file")
}

// loadStore fills the store with NumKeys records. With validate_phase set, every record is
// read back and checked afterwards.
func loadStore(ctx context.Context, cfg *benchCfg.BenchctlConfig, log *zap.Logger) error {
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

	keys, err := keyGenerator(cfg)
	if err != nil {
		return err
	}
	values, err := valueGenerator(cfg)
	if err != nil {
		return err
	}
	loaderCfg, err := runner.NewConfig().
		Store(st).
		KeyGenerator(keys).
		ValueGenerator(values).
		Sequence(sequence.NewSequential(0)).
		OperationTimeout(cfg.MaxWaitTime.Std()).
		MaxWriteTPS(cfg.MaxWriteTPS).
		Statistics(cfg.Statistics).
		Reporter(rep).
		Logger(log).
		Seed(cfg.Seed).
		Build()
	if err != nil {
		return err
	}
	loader, err := runner.NewLoader(loaderCfg)
	if err != nil {
		return err
	}
	fill, err := loader.FillPartitioned(int64(cfg.NumKeys), cfg.Threads)
	if err != nil {
		return err
	}
	var driver runner.Driver = fill
	if cfg.ValidatePhase {
		verifyCfg, err := runner.NewConfig().
			Store(st).
			KeyGenerator(keys).
			ValueGenerator(values).
			Sequence(sequence.NewSequential(0)).
			Ratio(runner.OpGet, 1).
			Validation(runner.ValidationStrict).
			Termination(runner.IterationCount(int64(cfg.NumKeys))).
			OperationTimeout(cfg.MaxWaitTime.Std()).
			Statistics(cfg.Statistics).
			Reporter(rep).
			Logger(log.Named("verify")).
			Build()
		if err != nil {
			return err
		}
		verify, err := runner.NewAccessor(verifyCfg)
		if err != nil {
			return err
		}
		driver = runner.NewSequential(fill, verify)
	}

	log.Info("loading records",
		zap.String("store", st.Name()),
		zap.Int("records", cfg.NumKeys),
		zap.Int("threads", cfg.Threads),
		zap.Bool("verify", cfg.ValidatePhase))
	runErr := driver.Run(ctx)
	summarize(log, "load", rep)
	if runErr != nil {
		return runErr
	}
	if size, err := st.Size(ctx); err == nil {
		log.Info("store populated", zap.Int64("size", size))
	}
	return nil
}
