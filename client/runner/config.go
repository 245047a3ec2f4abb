package runner

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"csb/client/reporter"
	"csb/client/stats"
	"csb/client/store"
	"csb/control/constants"
	generator "csb/data-generator"
	"csb/data-generator/sequence"
)

// ErrConfiguration is returned for invalid or conflicting driver settings
var ErrConfiguration = errors.New("invalid driver configuration")

// Config is the immutable configuration of a single accessor. Build it with NewConfig.
type Config struct {
	store       store.Store
	keys        generator.ObjectGenerator
	values      generator.ObjectGenerator
	sequence    sequence.Generator
	termination Condition
	validation  ValidationMode
	validator   Validator
	ops         []Descriptor
	defaultOp   Operation
	weight      float64
	thinkTime   time.Duration
	opTimeout   time.Duration
	maxWriteTPS float64
	writes      *rate.Limiter
	statistics  bool
	reporter    *reporter.Reporter
	logger      *zap.Logger
	seed        int64
}

func (c Config) Store() store.Store { return c.store }
func (c Config) Weight() float64 { return c.weight }
func (c Config) ThinkTime() time.Duration { return c.thinkTime }
func (c Config) Statistics() bool { return c.statistics }
func (c Config) Termination() Condition { return c.termination }
func (c Config) Validation() ValidationMode { return c.validation }
func (c Config) MaxWriteTPS() float64 { return c.maxWriteTPS }

// Operations returns the explicitly configured operation table
func (c Config) Operations() []Descriptor {
	return append([]Descriptor(nil), c.ops...)
}

func (c Config) withSequence(g sequence.Generator) Config {
	c.sequence = g
	return c
}

func (c Config) withTermination(t Condition) Config {
	c.termination = t
	return c
}

func (c Config) withStatistics(enabled bool) Config {
	c.statistics = enabled
	return c
}

func (c Config) withSeed(seed int64) Config {
	c.seed = seed
	return c
}

// defaultDescriptor resolves the operation receiving the unassigned ratio: the explicit
// default, else the store's preference, else get.
func (c Config) defaultDescriptor() (*Descriptor, error) {
	op := c.defaultOp
	if op == "" {
		op = OpGet
		if d, ok := c.store.(store.DefaultOperationer); ok && d.DefaultOperation() != "" {
			op = Operation(d.DefaultOperation())
		}
	}
	effect, ok := builtinEffect(op)
	if !ok {
		return nil, fmt.Errorf("%w: default operation %q is not a built-in operation", ErrConfiguration, op)
	}
	return &Descriptor{Name: op, Category: op.Category(), Effect: effect}, nil
}

// ConfigBuilder assembles a Config. Every setter may be called once; repeated calls and
// invalid values are reported by Build.
type ConfigBuilder struct {
	cfg  Config
	set  map[string]bool
	errs error
}

func NewConfig() *ConfigBuilder {
	return &ConfigBuilder{
		cfg: Config{
			weight:     1,
			statistics: true,
			seed:       constants.DEFAULT_SEED,
		},
		set: make(map[string]bool),
	}
}

func (b *ConfigBuilder) fail(format string, args ...any) {
	b.errs = multierr.Append(b.errs, fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...))
}

func (b *ConfigBuilder) assign(field string) bool {
	if b.set[field] {
		b.fail("%s is already set", field)
		return false
	}
	b.set[field] = true
	return true
}

func (b *ConfigBuilder) Store(s store.Store) *ConfigBuilder {
	if b.assign("store") {
		b.cfg.store = s
	}
	return b
}

func (b *ConfigBuilder) KeyGenerator(g generator.ObjectGenerator) *ConfigBuilder {
	if b.assign("key generator") {
		b.cfg.keys = g
	}
	return b
}

func (b *ConfigBuilder) ValueGenerator(g generator.ObjectGenerator) *ConfigBuilder {
	if b.assign("value generator") {
		b.cfg.values = g
	}
	return b
}

func (b *ConfigBuilder) Sequence(g sequence.Generator) *ConfigBuilder {
	if b.assign("sequence") {
		b.cfg.sequence = g
	}
	return b
}

func (b *ConfigBuilder) Termination(c Condition) *ConfigBuilder {
	if b.assign("termination") {
		b.cfg.termination = c
	}
	return b
}

func (b *ConfigBuilder) Validation(m ValidationMode) *ConfigBuilder {
	if b.assign("validation") {
		b.cfg.validation = m
	}
	return b
}

func (b *ConfigBuilder) Validator(v Validator) *ConfigBuilder {
	if b.assign("validator") {
		b.cfg.validator = v
	}
	return b
}

// Ratio adds a built-in operation with the given share of the draws
func (b *ConfigBuilder) Ratio(op Operation, ratio float64) *ConfigBuilder {
	effect, ok := builtinEffect(op)
	if !ok {
		b.fail("unknown operation %q", op)
		return b
	}
	return b.Operation(op, op.Category(), ratio, effect)
}

// Operation adds a custom operation
func (b *ConfigBuilder) Operation(name Operation, category stats.Category, ratio float64, effect Effect) *ConfigBuilder {
	if !b.assign("ratio of " + string(name)) {
		return b
	}
	if ratio < 0 || ratio > 1 {
		b.fail("ratio %g of %s must be within [0, 1]", ratio, name)
		return b
	}
	if effect == nil {
		b.fail("operation %s has no effect", name)
		return b
	}
	b.cfg.ops = append(b.cfg.ops, Descriptor{Name: name, Category: category, Ratio: ratio, Effect: effect})
	return b
}

func (b *ConfigBuilder) DefaultOperation(op Operation) *ConfigBuilder {
	if !b.assign("default operation") {
		return b
	}
	if _, ok := builtinEffect(op); !ok {
		b.fail("unknown default operation %q", op)
		return b
	}
	b.cfg.defaultOp = op
	return b
}

func (b *ConfigBuilder) Weight(w float64) *ConfigBuilder {
	if b.assign("weight") {
		b.cfg.weight = w
	}
	return b
}

func (b *ConfigBuilder) ThinkTime(d time.Duration) *ConfigBuilder {
	if !b.assign("think time") {
		return b
	}
	if d < 0 {
		b.fail("think time %v must not be negative", d)
		return b
	}
	b.cfg.thinkTime = d
	return b
}

// OperationTimeout bounds every single store call; zero means unbounded
func (b *ConfigBuilder) OperationTimeout(d time.Duration) *ConfigBuilder {
	if !b.assign("operation timeout") {
		return b
	}
	if d < 0 {
		b.fail("operation timeout %v must not be negative", d)
		return b
	}
	b.cfg.opTimeout = d
	return b
}

// MaxWriteTPS caps the write operations of the accessor, and of every worker derived from
// it, at tps per second in total; zero means unbounded
func (b *ConfigBuilder) MaxWriteTPS(tps float64) *ConfigBuilder {
	if !b.assign("max write tps") {
		return b
	}
	if tps < 0 {
		b.fail("max write tps %g must not be negative", tps)
		return b
	}
	b.cfg.maxWriteTPS = tps
	return b
}

func (b *ConfigBuilder) Statistics(enabled bool) *ConfigBuilder {
	if b.assign("statistics") {
		b.cfg.statistics = enabled
	}
	return b
}

func (b *ConfigBuilder) Reporter(r *reporter.Reporter) *ConfigBuilder {
	if b.assign("reporter") {
		b.cfg.reporter = r
	}
	return b
}

func (b *ConfigBuilder) Logger(l *zap.Logger) *ConfigBuilder {
	if b.assign("logger") {
		b.cfg.logger = l
	}
	return b
}

// Seed seeds the operation draws
func (b *ConfigBuilder) Seed(seed int64) *ConfigBuilder {
	if b.assign("seed") {
		b.cfg.seed = seed
	}
	return b
}

// Build validates the settings and fills in defaults
func (b *ConfigBuilder) Build() (Config, error) {
	if b.errs != nil {
		return Config{}, b.errs
	}
	cfg := b.cfg
	if cfg.store == nil {
		return Config{}, fmt.Errorf("%w: store is required", ErrConfiguration)
	}
	if cfg.keys == nil {
		cfg.keys = generator.StringGenerator{Prefix: "key-"}
	}
	if cfg.values == nil {
		cfg.values = generator.ByteArrayGenerator{Size: 128}
	}
	if cfg.sequence == nil {
		cfg.sequence = sequence.NewSequential(0)
	}
	if cfg.termination == nil {
		cfg.termination = Never()
	}
	if cfg.validation != ValidationNone && cfg.validator == nil {
		cfg.validator = GeneratorValidator{Generator: cfg.values}
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.maxWriteTPS > 0 {
		cfg.writes = rate.NewLimiter(rate.Limit(cfg.maxWriteTPS), 1)
	}
	def, err := cfg.defaultDescriptor()
	if err != nil {
		return Config{}, err
	}
	if _, err := NewSelector(cfg.ops, def); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
