package weft

import (
	"runtime"

	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/loomworks/weft/types"
)

const (
	DefaultNamespace     = "weft-world"
	DefaultLogLevel      = "info"
	DefaultPoolQueueSize = 1024
)

var defaultConfig = WorldConfig{
	Namespace:       DefaultNamespace,
	LogLevel:        DefaultLogLevel,
	LogPretty:       false,
	PoolWorkers:     runtime.NumCPU(),
	PoolQueueSize:   DefaultPoolQueueSize,
	StatsdAddress:   "",
	TraceEnabled:    false,
	ProfilerEnabled: false,
}

type WorldConfig struct {
	// Namespace distinguishes this world in logs, metrics and snapshot keys.
	Namespace string `config:"WEFT_NAMESPACE"`

	// LogLevel is any level zerolog can parse ("debug", "info", ...).
	LogLevel string `config:"WEFT_LOG_LEVEL"`

	// LogPretty routes log output through a console writer on stderr.
	LogPretty bool `config:"WEFT_LOG_PRETTY"`

	// PoolWorkers and PoolQueueSize size the owned worker pool. Both are
	// ignored when a pool is injected with WithPool.
	PoolWorkers   int `config:"WEFT_POOL_WORKERS"`
	PoolQueueSize int `config:"WEFT_POOL_QUEUE_SIZE"`

	// StatsdAddress is the agent address dispatch timings go to. Metrics are
	// disabled when empty.
	StatsdAddress string `config:"WEFT_STATSD_ADDRESS"`

	TraceEnabled    bool `config:"WEFT_TRACE_ENABLED"`
	ProfilerEnabled bool `config:"WEFT_PROFILER_ENABLED"`
}

func loadWorldConfig() (*WorldConfig, error) {
	cfg := defaultConfig
	if err := config.FromEnv().To(&cfg); err != nil {
		return nil, eris.Wrap(err, "failed to load world config from env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid world config")
	}
	return &cfg, nil
}

// Validate reports the first problem with the config.
func (w *WorldConfig) Validate() error {
	if err := types.Namespace(w.Namespace).Validate(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(w.LogLevel); err != nil {
		return eris.Wrapf(err, "log level %q is invalid", w.LogLevel)
	}
	if w.PoolWorkers < 1 {
		return eris.Errorf("pool worker count %d is invalid, must be >= 1", w.PoolWorkers)
	}
	if w.PoolQueueSize < 1 {
		return eris.Errorf("pool queue size %d is invalid, must be >= 1", w.PoolQueueSize)
	}
	return nil
}
