package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// maxConfigFileSize caps tuning files at 1MB.
const maxConfigFileSize = 1 * 1024 * 1024

// Anchor names accepted by the anchor key.
var validAnchors = map[string]bool{
	"bottom_center": true,
	"center":        true,
	"top_left":      true,
}

// TuningConfig represents the tracker tuning file. Every field is optional;
// the Get* accessors supply defaults for omitted keys, so partial files
// are safe.
type TuningConfig struct {
	// Lifecycle
	MaxAge  *int `json:"max_age,omitempty" yaml:"max_age,omitempty"`
	MinHits *int `json:"min_hits,omitempty" yaml:"min_hits,omitempty"`

	// Association and spawn gating
	IOUThreshold      *float64 `json:"iou_threshold,omitempty" yaml:"iou_threshold,omitempty"`
	CascadeMaxIOUCost *float64 `json:"cascade_max_iou_cost,omitempty" yaml:"cascade_max_iou_cost,omitempty"`
	LimitEntry        *bool    `json:"limit_entry,omitempty" yaml:"limit_entry,omitempty"`
	Anchor            *string  `json:"anchor,omitempty" yaml:"anchor,omitempty"` // bottom_center, center, top_left

	// Kalman noise weights, scaled by box height
	StdWeightPosition *float64 `json:"std_weight_position,omitempty" yaml:"std_weight_position,omitempty"`
	StdWeightVelocity *float64 `json:"std_weight_velocity,omitempty" yaml:"std_weight_velocity,omitempty"`

	// Cost-matrix cell count above which rows are evaluated concurrently (0 disables)
	ParallelCostThreshold *int `json:"parallel_cost_threshold,omitempty" yaml:"parallel_cost_threshold,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a .json, .yaml or .yml file.
// The file must be under 1MB and pass Validate.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath,
// searching the current directory and its parents up to the repository root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that any set values are in range.
func (c *TuningConfig) Validate() error {
	if c.MaxAge != nil && *c.MaxAge < 1 {
		return fmt.Errorf("max_age must be at least 1, got %d", *c.MaxAge)
	}
	if c.MinHits != nil && *c.MinHits < 1 {
		return fmt.Errorf("min_hits must be at least 1, got %d", *c.MinHits)
	}
	if c.IOUThreshold != nil {
		if *c.IOUThreshold < 0 || *c.IOUThreshold > 1 {
			return fmt.Errorf("iou_threshold must be between 0 and 1, got %f", *c.IOUThreshold)
		}
	}
	if c.CascadeMaxIOUCost != nil {
		if *c.CascadeMaxIOUCost <= 0 || *c.CascadeMaxIOUCost > 1 {
			return fmt.Errorf("cascade_max_iou_cost must be in (0, 1], got %f", *c.CascadeMaxIOUCost)
		}
	}
	if c.Anchor != nil && !validAnchors[*c.Anchor] {
		return fmt.Errorf("anchor must be one of bottom_center, center, top_left, got %q", *c.Anchor)
	}
	if c.StdWeightPosition != nil && *c.StdWeightPosition <= 0 {
		return fmt.Errorf("std_weight_position must be positive, got %f", *c.StdWeightPosition)
	}
	if c.StdWeightVelocity != nil && *c.StdWeightVelocity <= 0 {
		return fmt.Errorf("std_weight_velocity must be positive, got %f", *c.StdWeightVelocity)
	}
	if c.ParallelCostThreshold != nil && *c.ParallelCostThreshold < 0 {
		return fmt.Errorf("parallel_cost_threshold must be non-negative, got %d", *c.ParallelCostThreshold)
	}
	return nil
}

// GetMaxAge returns the max_age value or the default.
func (c *TuningConfig) GetMaxAge() int {
	if c.MaxAge == nil {
		return 900
	}
	return *c.MaxAge
}

// GetMinHits returns the min_hits value or the default.
func (c *TuningConfig) GetMinHits() int {
	if c.MinHits == nil {
		return 3
	}
	return *c.MinHits
}

// GetIOUThreshold returns the iou_threshold value or the default.
func (c *TuningConfig) GetIOUThreshold() float64 {
	if c.IOUThreshold == nil {
		return 0.7
	}
	return *c.IOUThreshold
}

// GetCascadeMaxIOUCost returns the cascade_max_iou_cost value or the default.
func (c *TuningConfig) GetCascadeMaxIOUCost() float64 {
	if c.CascadeMaxIOUCost == nil {
		return 0.7
	}
	return *c.CascadeMaxIOUCost
}

// GetLimitEntry returns the limit_entry value or the default.
func (c *TuningConfig) GetLimitEntry() bool {
	if c.LimitEntry == nil {
		return true
	}
	return *c.LimitEntry
}

// GetAnchor returns the anchor value or the default.
func (c *TuningConfig) GetAnchor() string {
	if c.Anchor == nil || *c.Anchor == "" {
		return "bottom_center"
	}
	return *c.Anchor
}

// GetStdWeightPosition returns the std_weight_position value or the default.
func (c *TuningConfig) GetStdWeightPosition() float64 {
	if c.StdWeightPosition == nil {
		return 1.0 / 20
	}
	return *c.StdWeightPosition
}

// GetStdWeightVelocity returns the std_weight_velocity value or the default.
func (c *TuningConfig) GetStdWeightVelocity() float64 {
	if c.StdWeightVelocity == nil {
		return 1.0 / 160
	}
	return *c.StdWeightVelocity
}

// GetParallelCostThreshold returns the parallel_cost_threshold value or the default.
func (c *TuningConfig) GetParallelCostThreshold() int {
	if c.ParallelCostThreshold == nil {
		return 256
	}
	return *c.ParallelCostThreshold
}
