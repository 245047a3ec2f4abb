package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"csb/control/constants"

	validator "github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// OperationRatio assigns a share of the draws to an operation
type OperationRatio struct {
	Operation string  `json:"operation" yaml:"operation" validate:"required,valid_operation"`
	Ratio     float64 `json:"ratio" yaml:"ratio" validate:"gte=0,lte=1"`
}

type BenchctlConfig struct {
	Seed      int64  `json:"seed" yaml:"seed" validate:"required,gt=0"`
	NumKeys   int    `json:"num_keys" yaml:"num_keys" validate:"required,gt=0"`
	KeySize   int    `json:"key_size" yaml:"key_size" validate:"required,gt=0,valid_key_size"`
	ValueSize int    `json:"value_size" yaml:"value_size" validate:"required,gt=0"`
	KeyType   string `json:"key_type" yaml:"key_type" validate:"required,valid_key_type"`
	ValueType string `json:"value_type" yaml:"value_type" validate:"required,valid_value_type"`
	// Store parameters
	Store     string   `json:"store" yaml:"store" validate:"required,valid_store"`
	Endpoints []string `json:"endpoints" yaml:"endpoints" validate:"dive,valid_endpoint"`
	DataPath  string   `json:"data_path" yaml:"data_path"`
	// Workload parameters
	Threads          int              `json:"threads" yaml:"threads" validate:"required,gt=0"`
	Iterations       int64            `json:"iterations" yaml:"iterations" validate:"gte=0"`
	Duration         Duration         `json:"duration" yaml:"duration"`
	UntilFilled      bool             `json:"until_filled" yaml:"until_filled"`
	ThinkTime        Duration         `json:"think_time" yaml:"think_time" validate:"gte=0"`
	MaxWaitTime      Duration         `json:"max_wait_time" yaml:"max_wait_time" validate:"gte=0"`
	MaxWriteTPS      float64          `json:"max_write_tps" yaml:"max_write_tps" validate:"gte=0"`
	Operations       []OperationRatio `json:"operations" yaml:"operations" validate:"dive"`
	DefaultOperation string           `json:"default_operation" yaml:"default_operation" validate:"omitempty,valid_operation"`
	Sequence         string           `json:"sequence" yaml:"sequence" validate:"required,valid_sequence"`
	Validation       string           `json:"validation" yaml:"validation" validate:"required,valid_validation"`
	ValidatePhase    bool             `json:"validate_phase" yaml:"validate_phase"`
	Pattern          string           `json:"pattern" yaml:"pattern" validate:"required,valid_pattern"`
	PatternInterval  Duration         `json:"pattern_interval" yaml:"pattern_interval" validate:"gte=0"`
	ShutdownTimeout  Duration         `json:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required"`
	// Reporting parameters
	Statistics     bool     `json:"statistics" yaml:"statistics"`
	ReportInterval Duration `json:"report_interval" yaml:"report_interval" validate:"required"`
	MemoryInterval Duration `json:"memory_interval" yaml:"memory_interval" validate:"gte=0"`
	MetricsFile    string   `json:"metrics_file" yaml:"metrics_file" validate:"omitempty,filepath"`
	PrometheusAddr string   `json:"prometheus_addr" yaml:"prometheus_addr" validate:"omitempty,hostname_port"`
	LogLevel       string   `json:"log_level" yaml:"log_level" validate:"required,oneof=debug info warn error"`
}

// Custom validation tags
const (
	storeTag      = "valid_store"
	endpointTag   = "valid_endpoint"
	keySizeTag    = "valid_key_size"
	keyTypeTag    = "valid_key_type"
	valueTypeTag  = "valid_value_type"
	operationTag  = "valid_operation"
	sequenceTag   = "valid_sequence"
	validationTag = "valid_validation"
	patternTag    = "valid_pattern"
)

var (
	validStores = map[string]bool{
		constants.STORE_MEMORY: true,
		constants.STORE_BADGER: true,
		constants.STORE_REDIS:  true,
		constants.STORE_ETCD:   true,
	}
	validOperations = map[string]bool{
		"get":            true,
		"put":            true,
		"putIfAbsent":    true,
		"remove":         true,
		"removeElement":  true,
		"replace":        true,
		"replaceElement": true,
	}
	validSequences = map[string]bool{
		constants.SEQUENCE_SEQUENTIAL:  true,
		constants.SEQUENCE_PARTITIONED: true,
		constants.SEQUENCE_FLAT:        true,
		constants.SEQUENCE_GAUSSIAN:    true,
	}
	validKeyTypes = map[string]bool{
		constants.KEY_TYPE_STRUCTURED: true,
		constants.KEY_TYPE_STRING:     true,
		constants.KEY_TYPE_UUID:       true,
	}
	validValueTypes = map[string]bool{
		constants.VALUE_TYPE_BYTES:  true,
		constants.VALUE_TYPE_STRING: true,
		constants.VALUE_TYPE_SCHEMA: true,
	}
	validValidations = map[string]bool{
		constants.VALIDATION_NONE:   true,
		constants.VALIDATION_UPDATE: true,
		constants.VALIDATION_STRICT: true,
	}
	validPatterns = map[string]bool{
		constants.PATTERN_NORMAL: true,
		constants.PATTERN_SPIKE:  true,
		constants.PATTERN_WAVE:   true,
	}
)

func oneOf(valid map[string]bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return valid[fl.Field().String()]
	}
}

// RegisterCustomValidators registers all custom validators for BenchctlConfig
func RegisterCustomValidators(v *validator.Validate) error {
	validations := map[string]validator.Func{
		storeTag:      oneOf(validStores),
		endpointTag:   validateEndpoint,
		keySizeTag:    validateKeySize,
		keyTypeTag:    oneOf(validKeyTypes),
		valueTypeTag:  oneOf(validValueTypes),
		operationTag:  oneOf(validOperations),
		sequenceTag:   oneOf(validSequences),
		validationTag: oneOf(validValidations),
		patternTag:    oneOf(validPatterns),
	}
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	v.RegisterStructValidation(validateWorkload, BenchctlConfig{})
	return nil
}

func validateKeySize(fl validator.FieldLevel) bool {
	keySize := fl.Field().Int()
	return keySize >= int64(constants.MIN_KEY_SIZE)
}

// validateEndpoint ensures the endpoint string is in the correct format
func validateEndpoint(fl validator.FieldLevel) bool {
	endpoint := fl.Field().String()

	// Strip protocol if present
	if strings.HasPrefix(endpoint, "http://") {
		endpoint = endpoint[7:]
	} else if strings.HasPrefix(endpoint, "https://") {
		endpoint = endpoint[8:]
	}

	// Split host and port
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		return false
	}

	// Validate port
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 1 || portNum > 65535 {
		return false
	}

	// Validate IP address
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	return true
}

// validateWorkload checks rules spanning several fields
func validateWorkload(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(BenchctlConfig)

	sum := 0.0
	seen := make(map[string]bool, len(cfg.Operations))
	for _, op := range cfg.Operations {
		if seen[op.Operation] {
			sl.ReportError(cfg.Operations, "Operations", "operations", "unique_operation", op.Operation)
		}
		seen[op.Operation] = true
		sum += op.Ratio
	}
	if sum > 1+constants.RATIO_TOLERANCE {
		sl.ReportError(cfg.Operations, "Operations", "operations", "ratio_sum", strconv.FormatFloat(sum, 'g', -1, 64))
	}

	remote := cfg.Store == constants.STORE_REDIS || cfg.Store == constants.STORE_ETCD
	if remote && len(cfg.Endpoints) == 0 {
		sl.ReportError(cfg.Endpoints, "Endpoints", "endpoints", "required_for_store", cfg.Store)
	}
	if cfg.Sequence == constants.SEQUENCE_PARTITIONED && cfg.Threads > cfg.NumKeys {
		sl.ReportError(cfg.Threads, "Threads", "threads", "lte_num_keys", strconv.Itoa(cfg.NumKeys))
	}
}

func GetDefaultConfig() *BenchctlConfig {
	return &BenchctlConfig{
		Seed:            constants.DEFAULT_SEED,
		NumKeys:         constants.DEFAULT_NUM_KEYS,
		KeySize:         16,
		ValueSize:       128,
		KeyType:         constants.KEY_TYPE_STRUCTURED,
		ValueType:       constants.VALUE_TYPE_BYTES,
		Store:           constants.STORE_MEMORY,
		Endpoints:       []string{},
		Threads:         4,
		Iterations:      0,
		Duration:        Duration(1 * time.Minute),
		MaxWaitTime:     Duration(500 * time.Millisecond),
		Operations:      []OperationRatio{{Operation: "put", Ratio: 0.2}},
		Sequence:        constants.SEQUENCE_FLAT,
		Validation:      constants.VALIDATION_NONE,
		Pattern:         constants.PATTERN_NORMAL,
		PatternInterval: Duration(10 * time.Second),
		ShutdownTimeout: Duration(10 * time.Second),
		Statistics:      true,
		ReportInterval:  Duration(5 * time.Second),
		MemoryInterval:  Duration(30 * time.Second),
		MetricsFile:     constants.DEFAULT_METRICS_FILE,
		LogLevel:        "info",
	}
}

func ValidateConfig(config *BenchctlConfig) error {
	v := validator.New()
	if err := RegisterCustomValidators(v); err != nil {
		return fmt.Errorf("failed to register custom validators: %w", err)
	}

	return v.Struct(config)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// ReadConfig reads a JSON config, or YAML when the file ends in .yaml or .yml
func ReadConfig(path string) (*BenchctlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	benchctlConfig := &BenchctlConfig{}
	if isYAML(path) {
		err = yaml.Unmarshal(data, benchctlConfig)
	} else {
		err = json.Unmarshal(data, benchctlConfig)
	}
	if err != nil {
		return nil, err
	}
	err = ValidateConfig(benchctlConfig)
	if err != nil {
		return nil, err
	}
	return benchctlConfig, nil
}

func (cfg *BenchctlConfig) Marshal(asYAML bool) ([]byte, error) {
	if asYAML {
		return yaml.Marshal(cfg)
	}
	return json.MarshalIndent(cfg, "", "  ")
}

func (cfg *BenchctlConfig) WriteConfig(path string) error {
	data, err := cfg.Marshal(isYAML(path))
	if err != nil {
		return err
	}
	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return err
	}
	return nil
}
