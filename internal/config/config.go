// Package config loads flowgraph runtime configuration from the
// environment (optionally via a .env file), with human-readable sizes for
// buffer-related fields.
package config

import (
	"os"
	"strconv"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"

	"github.com/ehrlich-b/go-flowgraph/internal/constants"
)

// SchedulerKind selects which scheduler policy a Runtime uses.
type SchedulerKind string

const (
	SchedulerPool SchedulerKind = "pool"
	SchedulerFlow SchedulerKind = "flow"
	SchedulerTPB  SchedulerKind = "tpb"
)

// Config holds the tunables a flowgraph Runtime needs: scheduler choice
// and sizing, independent of any particular flowgraph's topology.
type Config struct {
	Scheduler       SchedulerKind
	PoolWorkers     int
	FlowCores       int
	RingCapacity    uint64
	SlabRecordLen   int
	SlabPoolSize    int
	MailboxCapacity int
	TmpDir          string
}

// Default returns the library's built-in defaults.
func Default() Config {
	return Config{
		Scheduler:       SchedulerPool,
		PoolWorkers:     constants.DefaultPoolWorkers,
		FlowCores:       0,
		RingCapacity:    constants.DefaultRingCapacity,
		SlabRecordLen:   constants.DefaultSlabRecordLen,
		SlabPoolSize:    constants.DefaultSlabPoolSize,
		MailboxCapacity: constants.DefaultMailboxCapacity,
		TmpDir:          os.TempDir(),
	}
}

// LoadEnv starts from Default() and overlays FLOWGRAPH_* environment
// variables, first loading envFile (if non-empty and present) via godotenv
// so a development .env can seed the process environment.
func LoadEnv(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, err
			}
		}
	}

	cfg := Default()

	if v, ok := os.LookupEnv("FLOWGRAPH_SCHEDULER"); ok {
		cfg.Scheduler = SchedulerKind(v)
	}
	if v, ok := os.LookupEnv("FLOWGRAPH_POOL_WORKERS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PoolWorkers = n
		}
	}
	if v, ok := os.LookupEnv("FLOWGRAPH_FLOW_CORES"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FlowCores = n
		}
	}
	if v, ok := os.LookupEnv("FLOWGRAPH_RING_CAPACITY"); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.RingCapacity = n
		}
	}
	if v, ok := os.LookupEnv("FLOWGRAPH_SLAB_RECORD_SIZE"); ok {
		var sz datasize.ByteSize
		if err := sz.UnmarshalText([]byte(v)); err == nil {
			cfg.SlabRecordLen = int(sz.Bytes())
		}
	}
	if v, ok := os.LookupEnv("FLOWGRAPH_SLAB_POOL_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SlabPoolSize = n
		}
	}
	if v, ok := os.LookupEnv("FLOWGRAPH_MAILBOX_CAPACITY"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MailboxCapacity = n
		}
	}
	if v, ok := os.LookupEnv("FLOWGRAPH_TMP_DIR"); ok && v != "" {
		cfg.TmpDir = v
	}

	return cfg, nil
}
