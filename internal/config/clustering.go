package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical clustering defaults file.
const DefaultConfigPath = "config/clustering.defaults.json"

// ClusteringConfig represents the root configuration for the clustering
// pipeline and its presentation surfaces. The schema matches the
// /api/config endpoint so the same JSON can be used for startup
// configuration and inspection.
type ClusteringConfig struct {
	// Elbow sweep
	KMin            *int     `json:"k_min,omitempty"`
	KMax            *int     `json:"k_max,omitempty"`
	KneeSensitivity *float64 `json:"knee_sensitivity,omitempty"`
	ParallelSweep   *bool    `json:"parallel_sweep,omitempty"`

	// Assignment
	DefaultK      *int     `json:"default_k,omitempty"`
	Seed          *int64   `json:"seed,omitempty"`
	MaxIterations *int     `json:"max_iterations,omitempty"`
	Tolerance     *float64 `json:"tolerance,omitempty"`
	Restarts      *int     `json:"restarts,omitempty"`

	// Cluster-count control bounds offered to users
	SliderMin *int `json:"slider_min,omitempty"`
	SliderMax *int `json:"slider_max,omitempty"`

	// Loaded datasets and recent runs kept in memory
	CacheEntries *int `json:"cache_entries,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyClusteringConfig returns a ClusteringConfig with all fields set to nil.
// The Get* methods return defaults for every unset field.
func EmptyClusteringConfig() *ClusteringConfig {
	return &ClusteringConfig{}
}

// DefaultClusteringConfig returns a ClusteringConfig with every field set to
// its default value.
func DefaultClusteringConfig() *ClusteringConfig {
	return &ClusteringConfig{
		KMin:            ptrInt(1),
		KMax:            ptrInt(10),
		KneeSensitivity: ptrFloat64(1.0),
		ParallelSweep:   ptrBool(false),
		DefaultK:        ptrInt(3),
		Seed:            ptrInt64(42),
		MaxIterations:   ptrInt(300),
		Tolerance:       ptrFloat64(1e-4),
		Restarts:        ptrInt(10),
		SliderMin:       ptrInt(2),
		SliderMax:       ptrInt(10),
		CacheEntries:    ptrInt(16),
	}
}

// LoadClusteringConfig loads a ClusteringConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadClusteringConfig(path string) (*ClusteringConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyClusteringConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *ClusteringConfig) Validate() error {
	if c.GetKMin() < 1 {
		return fmt.Errorf("k_min must be at least 1, got %d", c.GetKMin())
	}
	if c.GetKMax() < c.GetKMin() {
		return fmt.Errorf("k_max (%d) must not be less than k_min (%d)", c.GetKMax(), c.GetKMin())
	}
	if c.GetDefaultK() < 1 {
		return fmt.Errorf("default_k must be at least 1, got %d", c.GetDefaultK())
	}
	if s := c.GetKneeSensitivity(); s < 0 || math.IsNaN(s) {
		return fmt.Errorf("knee_sensitivity must be non-negative, got %f", s)
	}
	if c.MaxIterations != nil && *c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be positive, got %d", *c.MaxIterations)
	}
	if c.Tolerance != nil && (*c.Tolerance <= 0 || math.IsNaN(*c.Tolerance)) {
		return fmt.Errorf("tolerance must be positive, got %g", *c.Tolerance)
	}
	if c.Restarts != nil && *c.Restarts < 1 {
		return fmt.Errorf("restarts must be positive, got %d", *c.Restarts)
	}
	if c.GetSliderMin() < 1 || c.GetSliderMax() < c.GetSliderMin() {
		return fmt.Errorf("invalid slider range [%d, %d]", c.GetSliderMin(), c.GetSliderMax())
	}
	if c.GetCacheEntries() < 1 {
		return fmt.Errorf("cache_entries must be positive, got %d", c.GetCacheEntries())
	}
	return nil
}

// GetKMin returns the k_min value or the default.
func (c *ClusteringConfig) GetKMin() int {
	if c.KMin == nil {
		return 1
	}
	return *c.KMin
}

// GetKMax returns the k_max value or the default.
func (c *ClusteringConfig) GetKMax() int {
	if c.KMax == nil {
		return 10
	}
	return *c.KMax
}

// GetKneeSensitivity returns the knee_sensitivity value or the default.
func (c *ClusteringConfig) GetKneeSensitivity() float64 {
	if c.KneeSensitivity == nil {
		return 1.0
	}
	return *c.KneeSensitivity
}

// GetParallelSweep returns the parallel_sweep value or the default.
func (c *ClusteringConfig) GetParallelSweep() bool {
	if c.ParallelSweep == nil {
		return false
	}
	return *c.ParallelSweep
}

// GetDefaultK returns the default_k value or the default.
func (c *ClusteringConfig) GetDefaultK() int {
	if c.DefaultK == nil {
		return 3
	}
	return *c.DefaultK
}

// GetSeed returns the seed value or the default.
func (c *ClusteringConfig) GetSeed() int64 {
	if c.Seed == nil {
		return 42
	}
	return *c.Seed
}

// GetMaxIterations returns the max_iterations value or the default.
func (c *ClusteringConfig) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return 300
	}
	return *c.MaxIterations
}

// GetTolerance returns the tolerance value or the default.
func (c *ClusteringConfig) GetTolerance() float64 {
	if c.Tolerance == nil {
		return 1e-4
	}
	return *c.Tolerance
}

// GetRestarts returns the restarts value or the default.
func (c *ClusteringConfig) GetRestarts() int {
	if c.Restarts == nil {
		return 10
	}
	return *c.Restarts
}

// GetSliderMin returns the slider_min value or the default.
func (c *ClusteringConfig) GetSliderMin() int {
	if c.SliderMin == nil {
		return 2
	}
	return *c.SliderMin
}

// GetSliderMax returns the slider_max value or the default.
func (c *ClusteringConfig) GetSliderMax() int {
	if c.SliderMax == nil {
		return 10
	}
	return *c.SliderMax
}

// GetCacheEntries returns the cache_entries value or the default.
func (c *ClusteringConfig) GetCacheEntries() int {
	if c.CacheEntries == nil {
		return 16
	}
	return *c.CacheEntries
}

// ClampToSlider bounds a user-chosen k to the slider range and to the number
// of entities available. Zero or negative k is returned unchanged so callers
// can still ask for the automatic choice.
func (c *ClusteringConfig) ClampToSlider(k, entities int) int {
	if k <= 0 {
		return k
	}
	k = max(k, c.GetSliderMin())
	k = min(k, c.GetSliderMax())
	if entities > 0 {
		k = min(k, entities)
	}
	return k
}
