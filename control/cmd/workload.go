package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"csb/client/reporter"
	"csb/client/runner"
	"csb/client/store"
	benchCfg "csb/control/config"
	constants "csb/control/constants"
	generator "csb/data-generator"
	"csb/data-generator/schema"
	"csb/data-generator/sequence"
)

const stringPoolSize = 1024

func openStore(cfg *benchCfg.BenchctlConfig, log *zap.Logger) (store.Store, error) {
	return store.Open(store.Options{
		Kind:      cfg.Store,
		Endpoints: cfg.Endpoints,
		DataPath:  cfg.DataPath,
		Logger:    log,
	})
}

func keyGenerator(cfg *benchCfg.BenchctlConfig) (generator.ObjectGenerator, error) {
	switch cfg.KeyType {
	case constants.KEY_TYPE_STRUCTURED:
		return generator.NewKeyGenerator(cfg.KeySize)
	case constants.KEY_TYPE_STRING:
		return generator.StringGenerator{Prefix: "key-"}, nil
	case constants.KEY_TYPE_UUID:
		return generator.UUIDGenerator{}, nil
	}
	return nil, fmt.Errorf("unknown key type %q", cfg.KeyType)
}

func valueGenerator(cfg *benchCfg.BenchctlConfig) (generator.ObjectGenerator, error) {
	switch cfg.ValueType {
	case constants.VALUE_TYPE_BYTES:
		return generator.ByteArrayGenerator{Size: cfg.ValueSize}, nil
	case constants.VALUE_TYPE_STRING:
		return generator.NewRandomStringGenerator(stringPoolSize, cfg.ValueSize, cfg.Seed)
	case constants.VALUE_TYPE_SCHEMA:
		return schema.New(), nil
	}
	return nil, fmt.Errorf("unknown value type %q", cfg.ValueType)
}

// sequences returns one seed generator per thread over [0, NumKeys)
func sequences(cfg *benchCfg.BenchctlConfig, threads int) ([]sequence.Generator, error) {
	gens := make([]sequence.Generator, threads)
	switch cfg.Sequence {
	case constants.SEQUENCE_SEQUENTIAL:
		for i := range gens {
			gens[i] = sequence.NewSequential(0)
		}
	case constants.SEQUENCE_PARTITIONED:
		parts, err := sequence.Partition(0, threads)
		if err != nil {
			return nil, err
		}
		for i, p := range parts {
			gens[i] = p
		}
	case constants.SEQUENCE_FLAT, constants.SEQUENCE_GAUSSIAN:
		width := max(int64(cfg.NumKeys)/6, 1)
		g, err := sequence.NewRandom(sequence.Distribution(cfg.Sequence), 0, int64(cfg.NumKeys), width, cfg.Seed)
		if err != nil {
			return nil, err
		}
		// cursors of one random generator draw independent streams
		for i := range gens {
			gens[i] = g
		}
	default:
		return nil, fmt.Errorf("unknown sequence %q", cfg.Sequence)
	}
	return gens, nil
}

func termination(ctx context.Context, cfg *benchCfg.BenchctlConfig, st store.Store) runner.Condition {
	switch {
	case cfg.UntilFilled:
		return runner.StoreFilled(ctx, st)
	case cfg.Iterations > 0:
		return runner.IterationCount(cfg.Iterations)
	case cfg.Duration > 0:
		return runner.WallClock(cfg.Duration.Std())
	default:
		return runner.Never()
	}
}

func accessPattern(cfg *benchCfg.BenchctlConfig) runner.AccessPattern {
	interval := cfg.PatternInterval.Std()
	switch cfg.Pattern {
	case constants.PATTERN_SPIKE:
		return runner.Spike{
			Interval:  interval,
			Duration:  interval / 2,
			ThinkTime: max(10*cfg.ThinkTime.Std(), 10*time.Millisecond),
		}
	case constants.PATTERN_WAVE:
		return runner.Wave{
			Interval:     interval / 2,
			Steps:        constants.WAVE_STEPS,
			StepInterval: interval / 2 / constants.WAVE_STEPS,
			MaxThinkTime: max(10*cfg.ThinkTime.Std(), 10*time.Millisecond),
		}
	default:
		return runner.Normal{}
	}
}

// accessorConfigs builds the configuration of every workload thread
func accessorConfigs(cfg *benchCfg.BenchctlConfig, st store.Store, rep *reporter.Reporter, log *zap.Logger) ([]runner.Config, error) {
	keys, err := keyGenerator(cfg)
	if err != nil {
		return nil, err
	}
	values, err := valueGenerator(cfg)
	if err != nil {
		return nil, err
	}
	mode, err := runner.ParseValidationMode(cfg.Validation)
	if err != nil {
		return nil, err
	}
	seqs, err := sequences(cfg, cfg.Threads)
	if err != nil {
		return nil, err
	}
	// every thread builds its own limiter, so each gets an equal share of the write cap
	threadTPS := cfg.MaxWriteTPS / float64(cfg.Threads)
	configs := make([]runner.Config, cfg.Threads)
	for i := range configs {
		b := runner.NewConfig().
			Store(st).
			KeyGenerator(keys).
			ValueGenerator(values).
			Sequence(seqs[i]).
			Validation(mode).
			ThinkTime(cfg.ThinkTime.Std()).
			OperationTimeout(cfg.MaxWaitTime.Std()).
			MaxWriteTPS(threadTPS).
			Statistics(cfg.Statistics).
			Reporter(rep).
			Logger(log.With(zap.Int("thread", i))).
			Seed(cfg.Seed + int64(i))
		for _, op := range cfg.Operations {
			b.Ratio(runner.Operation(op.Operation), op.Ratio)
		}
		if cfg.DefaultOperation != "" {
			b.DefaultOperation(runner.Operation(cfg.DefaultOperation))
		}
		c, err := b.Build()
		if err != nil {
			return nil, err
		}
		configs[i] = c
	}
	return configs, nil
}

// reporting wires the configured stats loggers into a reporter. The returned function
// stops the metrics endpoint and closes the loggers.
func reporting(cfg *benchCfg.BenchctlConfig, log *zap.Logger) (*reporter.Reporter, func() error, error) {
	rep := reporter.New(reporter.Config{
		Interval:       cfg.ReportInterval.Std(),
		MemoryInterval: cfg.MemoryInterval.Std(),
		Logger:         log,
	})
	rep.AddLogger(reporter.NewConsoleLogger(log, constants.CONSOLE_DETAIL_MAX))

	var closers []func() error
	if cfg.MetricsFile != "" {
		csvLogger, err := reporter.NewCSVLogger(cfg.MetricsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create metrics file: %w", err)
		}
		rep.AddLogger(csvLogger)
		closers = append(closers, csvLogger.Close)
	}
	if cfg.PrometheusAddr != "" {
		promLogger := reporter.NewPrometheusLogger()
		rep.AddLogger(promLogger)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promLogger.Handler())
		srv := &http.Server{Addr: cfg.PrometheusAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
		log.Info("serving metrics", zap.String("addr", cfg.PrometheusAddr))
		closers = append(closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		})
	}
	closeAll := func() error {
		var err error
		for _, c := range closers {
			err = multierr.Append(err, c())
		}
		return err
	}
	return rep, closeAll, nil
}

// summarize logs the overall result of a run
func summarize(log *zap.Logger, phase string, rep *reporter.Reporter) {
	final := rep.Last()
	if final == nil {
		return
	}
	overall, err := final.Overall()
	if err != nil {
		log.Warn("no final statistics", zap.Error(err))
		return
	}
	log.Info(phase+" finished",
		zap.Int64("transactions", overall.TxnCount()),
		zap.Int64("exceptions", overall.Exceptions()),
		zap.Float64("tps", overall.TPS()),
		zap.Float64("avg_us", overall.Average()),
		zap.Duration("elapsed", overall.Elapsed()))
}
