package constants

const (
	// config
	DEFAULT_CONFIG_DIR        = ".benchctl"
	DEFAULT_CONFIG_FILE       = "config.json"
	DEFAULT_SEED        int64 = 0x207B096061CDA310
	DEFAULT_NUM_KEYS    int   = 100_000
	MIN_KEY_SIZE        int   = 12

	// Stores a workload can target
	STORE_MEMORY = "memory"
	STORE_BADGER = "badger"
	STORE_REDIS  = "redis"
	STORE_ETCD   = "etcd"

	// Seed sequences driving the workload threads
	SEQUENCE_SEQUENTIAL  = "sequential"  // every thread counts up from zero
	SEQUENCE_PARTITIONED = "partitioned" // threads own disjoint strides of the key space
	SEQUENCE_FLAT        = "flat"        // uniform over the key space
	SEQUENCE_GAUSSIAN    = "gaussian"    // normal around the middle of the key space

	// Key and value shapes
	KEY_TYPE_STRUCTURED = "structured" // /domain/region/shard/...-<seed>
	KEY_TYPE_STRING     = "string"     // key-<seed>
	KEY_TYPE_UUID       = "uuid"
	VALUE_TYPE_BYTES    = "bytes"
	VALUE_TYPE_STRING   = "string"
	VALUE_TYPE_SCHEMA   = "schema" // JSON resource documents

	// Access patterns across the workload threads
	PATTERN_NORMAL = "normal"
	PATTERN_SPIKE  = "spike"
	PATTERN_WAVE   = "wave"

	// Validation of observed values
	VALIDATION_NONE   = "none"
	VALIDATION_UPDATE = "update"
	VALIDATION_STRICT = "strict"

	// logging
	DEFAULT_BENCH_RUN_LOG_FILE = "run.log"

	// reporting
	DEFAULT_METRICS_FILE = "metrics.csv"
	WAVE_STEPS           = 10
	CONSOLE_DETAIL_MAX   = 4
	RATIO_TOLERANCE      = 1e-9
)
