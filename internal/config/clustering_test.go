package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClusteringConfig(t *testing.T) {
	cfg := DefaultClusteringConfig()

	if cfg.KMin == nil || *cfg.KMin != 1 {
		t.Errorf("Expected KMin 1, got %v", cfg.KMin)
	}
	if cfg.KMax == nil || *cfg.KMax != 10 {
		t.Errorf("Expected KMax 10, got %v", cfg.KMax)
	}
	if cfg.DefaultK == nil || *cfg.DefaultK != 3 {
		t.Errorf("Expected DefaultK 3, got %v", cfg.DefaultK)
	}
	if cfg.Seed == nil || *cfg.Seed != 42 {
		t.Errorf("Expected Seed 42, got %v", cfg.Seed)
	}

	require.NoError(t, cfg.Validate())
}

func TestEmptyClusteringConfig_GettersMatchDefaults(t *testing.T) {
	empty := EmptyClusteringConfig()
	def := DefaultClusteringConfig()

	assert.Equal(t, def.GetKMin(), empty.GetKMin())
	assert.Equal(t, def.GetKMax(), empty.GetKMax())
	assert.Equal(t, def.GetKneeSensitivity(), empty.GetKneeSensitivity())
	assert.Equal(t, def.GetParallelSweep(), empty.GetParallelSweep())
	assert.Equal(t, def.GetDefaultK(), empty.GetDefaultK())
	assert.Equal(t, def.GetSeed(), empty.GetSeed())
	assert.Equal(t, def.GetMaxIterations(), empty.GetMaxIterations())
	assert.Equal(t, def.GetTolerance(), empty.GetTolerance())
	assert.Equal(t, def.GetRestarts(), empty.GetRestarts())
	assert.Equal(t, def.GetSliderMin(), empty.GetSliderMin())
	assert.Equal(t, def.GetSliderMax(), empty.GetSliderMax())
	assert.Equal(t, def.GetCacheEntries(), empty.GetCacheEntries())
}

func TestLoadClusteringConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "k_max": 6,
  "seed": 7,
  "parallel_sweep": true,
  "knee_sensitivity": 0.5
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadClusteringConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.GetKMax())
	assert.Equal(t, int64(7), cfg.GetSeed())
	assert.True(t, cfg.GetParallelSweep())
	assert.Equal(t, 0.5, cfg.GetKneeSensitivity())
	// Omitted fields keep their defaults
	assert.Equal(t, 1, cfg.GetKMin())
	assert.Equal(t, 3, cfg.GetDefaultK())
}

func TestLoadClusteringConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0644))
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"wrong extension", write("cfg.yaml", "{}"), ".json extension"},
		{"missing file", filepath.Join(tmpDir, "absent.json"), "failed to stat"},
		{"bad json", write("bad.json", "{"), "failed to parse"},
		{"k_max below k_min", write("range.json", `{"k_min": 4, "k_max": 2}`), "k_max"},
		{"zero k_min", write("kmin.json", `{"k_min": 0}`), "k_min"},
		{"negative sensitivity", write("s.json", `{"knee_sensitivity": -1}`), "knee_sensitivity"},
		{"zero tolerance", write("tol.json", `{"tolerance": 0}`), "tolerance"},
		{"bad slider", write("slider.json", `{"slider_min": 5, "slider_max": 3}`), "slider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadClusteringConfig(tt.path)
			require.Error(t, err)
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadClusteringConfig_TooLarge(t *testing.T) {
	p := filepath.Join(t.TempDir(), "big.json")
	big := make([]byte, 1024*1024+1)
	for i := range big {
		big[i] = ' '
	}
	require.NoError(t, os.WriteFile(p, big, 0644))

	_, err := LoadClusteringConfig(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadClusteringConfig_RepositoryDefaults(t *testing.T) {
	cfg, err := LoadClusteringConfig(filepath.Join("..", "..", DefaultConfigPath))
	require.NoError(t, err)

	def := DefaultClusteringConfig()
	assert.Equal(t, *def, *cfg)
}

func TestClampToSlider(t *testing.T) {
	cfg := DefaultClusteringConfig()

	tests := []struct {
		k, entities, want int
	}{
		{0, 20, 0},
		{-1, 20, -1},
		{1, 20, 2},
		{5, 20, 5},
		{15, 20, 10},
		{8, 4, 4},
		{8, 0, 8},
	}
	for _, tt := range tests {
		if got := cfg.ClampToSlider(tt.k, tt.entities); got != tt.want {
			t.Errorf("ClampToSlider(%d, %d) = %d, want %d", tt.k, tt.entities, got, tt.want)
		}
	}
}
