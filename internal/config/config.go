// Package config holds the engine's tunables: directory layout, WAL fsync
// policy, checkpoint/compaction thresholds and background worker sizing.
// Config files are TOML, decoded with github.com/pelletier/go-toml/v2.
package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level, single-database configuration.
type Config struct {
	DataDir string `toml:"data_dir"`

	WAL        WALConfig        `toml:"wal"`
	Checkpoint CheckpointConfig `toml:"checkpoint"`
	Compaction CompactionConfig `toml:"compaction"`
	Index      IndexConfig      `toml:"index"`
	Workers    WorkersConfig    `toml:"workers"`
}

// FsyncMode names a WAL durability/throughput tradeoff. The engine does not
// read WALConfig.Fsync: the WAL is flushed on every commit whatever its value.
type FsyncMode int

const (
	FsyncAlways FsyncMode = iota // fsync after every commit (safest, slowest)
	FsyncNone                    // no fsync; not honoured, see FsyncMode
)

// WALConfig holds the WAL file-size threshold and fsync mode.
// MaxFileSizeMB is the threshold wal.Manager.ShouldRotate checks; nothing in
// the engine calls Rotate, so it does not trigger rotation. Fsync is not read.
type WALConfig struct {
	MaxFileSizeMB uint64    `toml:"max_file_size_mb"`
	Fsync         FsyncMode `toml:"fsync_mode"`
}

// CheckpointConfig controls how often the active segment is sealed and the
// WAL is trimmed. AutoCreate and Interval drive the periodic scheduler;
// IntervalMB is not read.
type CheckpointConfig struct {
	IntervalMB uint64        `toml:"interval_mb"`
	Interval   time.Duration `toml:"interval"`
	AutoCreate bool          `toml:"auto_create"`
}

// CompactionConfig controls the background compactor. CheckInterval sets how
// often it runs; TombstoneRatio and SizeThresholdMB are not read.
type CompactionConfig struct {
	TombstoneRatio   float64       `toml:"tombstone_ratio"`
	SizeThresholdMB  uint64        `toml:"size_threshold_mb"`
	CheckInterval    time.Duration `toml:"check_interval"`
}

// IndexConfig holds read-path cache sizes. SegmentCacheEntries is not read:
// the segment store's sealed-file handle cache has the fixed size
// segment.DefaultSealedFileCache.
type IndexConfig struct {
	SegmentCacheEntries int `toml:"segment_cache_entries"`
}

// WorkersConfig sizes the ants-backed background pool (checkpoint/compaction
// ticker, parallel segment verification).
type WorkersConfig struct {
	PoolSize int `toml:"pool_size"`
}

// DefaultConfig returns the engine's out-of-the-box tunables.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		WAL: WALConfig{
			MaxFileSizeMB: 64,
			Fsync:         FsyncAlways,
		},
		Checkpoint: CheckpointConfig{
			IntervalMB: 64,
			Interval:   5 * time.Minute,
			AutoCreate: true,
		},
		Compaction: CompactionConfig{
			TombstoneRatio:  0.3,
			SizeThresholdMB: 100,
			CheckInterval:   time.Minute,
		},
		Index: IndexConfig{
			SegmentCacheEntries: 4096,
		},
		Workers: WorkersConfig{
			PoolSize: 8,
		},
	}
}

// Load reads a TOML config file at path, applying its values on top of
// DefaultConfig.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
