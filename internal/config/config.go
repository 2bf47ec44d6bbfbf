package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the gateway reads at startup. Values are
// frozen after FromEnv returns and the struct is shared read-only.
type Config struct {
	Port                 int
	Token                string
	DefaultProcessorURL  string
	FallbackProcessorURL string
	// BatchSize is read for compatibility with the deployment manifests
	// but the dispatch path processes one payment at a time.
	BatchSize        int
	QueueBufferSize  int
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
}

// FromEnv reads the environment once. Unset variables take the documented
// defaults; malformed numeric values fall back to the default silently so
// a bad deployment still comes up serving.
func FromEnv() *Config {
	return &Config{
		Port:                 envPort("PORT", 9999),
		Token:                envString("TOKEN", "123"),
		DefaultProcessorURL:  envString("DEFAULT_PROCESSOR_URL", "http://payment-processor-default:8080"),
		FallbackProcessorURL: envString("FALLBACK_PROCESSOR_URL", "http://payment-processor-fallback:8080"),
		BatchSize:            envInt("BATCH_SIZE", 50),
		QueueBufferSize:      envInt("QUEUE_BUFFER_SIZE", 1000),
		BreakerThreshold:     envUint32("CIRCUIT_BREAKER_THRESHOLD", 5),
		BreakerTimeout:       envSeconds("CIRCUIT_BREAKER_TIMEOUT", 30*time.Second),
	}
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envPort(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	port, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return def
	}
	return int(port)
}

// envInt rejects negative values as malformed; queue and batch sizes are
// counts.
func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 31)
	if err != nil {
		return def
	}
	return int(n)
}

func envUint32(key string, def uint32) uint32 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return def
	}
	return uint32(n)
}

func envSeconds(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	secs, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return def
	}
	return time.Duration(secs) * time.Second
}
