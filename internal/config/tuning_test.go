package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmptyTuningConfig_Defaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if got := cfg.GetMaxAge(); got != 900 {
		t.Errorf("GetMaxAge() = %d, want 900", got)
	}
	if got := cfg.GetMinHits(); got != 3 {
		t.Errorf("GetMinHits() = %d, want 3", got)
	}
	if got := cfg.GetIOUThreshold(); got != 0.7 {
		t.Errorf("GetIOUThreshold() = %f, want 0.7", got)
	}
	if got := cfg.GetCascadeMaxIOUCost(); got != 0.7 {
		t.Errorf("GetCascadeMaxIOUCost() = %f, want 0.7", got)
	}
	if got := cfg.GetLimitEntry(); !got {
		t.Errorf("GetLimitEntry() = %v, want true", got)
	}
	if got := cfg.GetAnchor(); got != "bottom_center" {
		t.Errorf("GetAnchor() = %q, want bottom_center", got)
	}
	if got := cfg.GetStdWeightPosition(); got != 1.0/20 {
		t.Errorf("GetStdWeightPosition() = %f, want 0.05", got)
	}
	if got := cfg.GetStdWeightVelocity(); got != 1.0/160 {
		t.Errorf("GetStdWeightVelocity() = %f, want 0.00625", got)
	}
	if got := cfg.GetParallelCostThreshold(); got != 256 {
		t.Errorf("GetParallelCostThreshold() = %d, want 256", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty config should validate: %v", err)
	}
}

func TestGetters_ReturnSetValues(t *testing.T) {
	cfg := &TuningConfig{
		MaxAge:                ptrInt(30),
		MinHits:               ptrInt(1),
		IOUThreshold:          ptrFloat64(0.3),
		CascadeMaxIOUCost:     ptrFloat64(0.9),
		LimitEntry:            ptrBool(false),
		Anchor:                ptrString("center"),
		StdWeightPosition:     ptrFloat64(0.1),
		StdWeightVelocity:     ptrFloat64(0.01),
		ParallelCostThreshold: ptrInt(0),
	}

	if cfg.GetMaxAge() != 30 || cfg.GetMinHits() != 1 {
		t.Errorf("lifecycle getters = %d/%d, want 30/1", cfg.GetMaxAge(), cfg.GetMinHits())
	}
	if cfg.GetIOUThreshold() != 0.3 || cfg.GetCascadeMaxIOUCost() != 0.9 {
		t.Errorf("gate getters = %f/%f, want 0.3/0.9", cfg.GetIOUThreshold(), cfg.GetCascadeMaxIOUCost())
	}
	if cfg.GetLimitEntry() {
		t.Error("GetLimitEntry() = true, want false")
	}
	if cfg.GetAnchor() != "center" {
		t.Errorf("GetAnchor() = %q, want center", cfg.GetAnchor())
	}
	if cfg.GetStdWeightPosition() != 0.1 || cfg.GetStdWeightVelocity() != 0.01 {
		t.Errorf("noise getters = %f/%f", cfg.GetStdWeightPosition(), cfg.GetStdWeightVelocity())
	}
	if cfg.GetParallelCostThreshold() != 0 {
		t.Errorf("GetParallelCostThreshold() = %d, want 0", cfg.GetParallelCostThreshold())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestGetAnchor_EmptyStringFallsBack(t *testing.T) {
	cfg := &TuningConfig{Anchor: ptrString("")}
	if got := cfg.GetAnchor(); got != "bottom_center" {
		t.Errorf("GetAnchor() = %q, want bottom_center", got)
	}
}

func TestLoadTuningConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.json")
	data := `{
  "max_age": 12,
  "min_hits": 2,
  "limit_entry": false,
  "anchor": "top_left"
}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig() error = %v", err)
	}
	if cfg.GetMaxAge() != 12 {
		t.Errorf("max_age = %d, want 12", cfg.GetMaxAge())
	}
	if cfg.GetMinHits() != 2 {
		t.Errorf("min_hits = %d, want 2", cfg.GetMinHits())
	}
	if cfg.GetLimitEntry() {
		t.Error("limit_entry = true, want false")
	}
	if cfg.GetAnchor() != "top_left" {
		t.Errorf("anchor = %q, want top_left", cfg.GetAnchor())
	}
	// Omitted keys keep their defaults.
	if cfg.IOUThreshold != nil {
		t.Errorf("iou_threshold should be unset, got %v", *cfg.IOUThreshold)
	}
	if cfg.GetIOUThreshold() != 0.7 {
		t.Errorf("iou_threshold default = %f, want 0.7", cfg.GetIOUThreshold())
	}
}

func TestLoadTuningConfig_YAML(t *testing.T) {
	for _, ext := range []string{".yaml", ".yml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tuning"+ext)
			data := "max_age: 45\niou_threshold: 0.5\nstd_weight_velocity: 0.02\n"
			if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}

			cfg, err := LoadTuningConfig(path)
			if err != nil {
				t.Fatalf("LoadTuningConfig() error = %v", err)
			}
			if cfg.GetMaxAge() != 45 {
				t.Errorf("max_age = %d, want 45", cfg.GetMaxAge())
			}
			if cfg.GetIOUThreshold() != 0.5 {
				t.Errorf("iou_threshold = %f, want 0.5", cfg.GetIOUThreshold())
			}
			if cfg.GetStdWeightVelocity() != 0.02 {
				t.Errorf("std_weight_velocity = %f, want 0.02", cfg.GetStdWeightVelocity())
			}
		})
	}
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"bad extension", write("tuning.txt", "{}"), "extension"},
		{"missing file", filepath.Join(dir, "absent.json"), "failed to stat"},
		{"bad json", write("bad.json", "{not json"), "failed to parse config JSON"},
		{"bad yaml", write("bad.yaml", "max_age: [1, 2"), "failed to parse config YAML"},
		{"invalid value", write("invalid.json", `{"min_hits": 0}`), "invalid configuration"},
		{"too large", write("large.json", `{"max_age": 1}`+strings.Repeat(" ", maxConfigFileSize)), "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(tt.path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TuningConfig
		wantErr string
	}{
		{"max_age zero", TuningConfig{MaxAge: ptrInt(0)}, "max_age"},
		{"min_hits negative", TuningConfig{MinHits: ptrInt(-1)}, "min_hits"},
		{"iou above one", TuningConfig{IOUThreshold: ptrFloat64(1.5)}, "iou_threshold"},
		{"iou negative", TuningConfig{IOUThreshold: ptrFloat64(-0.1)}, "iou_threshold"},
		{"cascade zero", TuningConfig{CascadeMaxIOUCost: ptrFloat64(0)}, "cascade_max_iou_cost"},
		{"unknown anchor", TuningConfig{Anchor: ptrString("left_foot")}, "anchor"},
		{"position weight zero", TuningConfig{StdWeightPosition: ptrFloat64(0)}, "std_weight_position"},
		{"velocity weight negative", TuningConfig{StdWeightVelocity: ptrFloat64(-1)}, "std_weight_velocity"},
		{"parallel negative", TuningConfig{ParallelCostThreshold: ptrInt(-1)}, "parallel_cost_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestMustLoadDefaultConfig_MatchesGetterDefaults(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	empty := EmptyTuningConfig()

	if cfg.GetMaxAge() != empty.GetMaxAge() {
		t.Errorf("max_age: file %d, default %d", cfg.GetMaxAge(), empty.GetMaxAge())
	}
	if cfg.GetMinHits() != empty.GetMinHits() {
		t.Errorf("min_hits: file %d, default %d", cfg.GetMinHits(), empty.GetMinHits())
	}
	if cfg.GetIOUThreshold() != empty.GetIOUThreshold() {
		t.Errorf("iou_threshold: file %f, default %f", cfg.GetIOUThreshold(), empty.GetIOUThreshold())
	}
	if cfg.GetCascadeMaxIOUCost() != empty.GetCascadeMaxIOUCost() {
		t.Errorf("cascade_max_iou_cost: file %f, default %f", cfg.GetCascadeMaxIOUCost(), empty.GetCascadeMaxIOUCost())
	}
	if cfg.GetLimitEntry() != empty.GetLimitEntry() {
		t.Errorf("limit_entry: file %v, default %v", cfg.GetLimitEntry(), empty.GetLimitEntry())
	}
	if cfg.GetAnchor() != empty.GetAnchor() {
		t.Errorf("anchor: file %q, default %q", cfg.GetAnchor(), empty.GetAnchor())
	}
	if cfg.GetStdWeightPosition() != empty.GetStdWeightPosition() {
		t.Errorf("std_weight_position: file %f, default %f", cfg.GetStdWeightPosition(), empty.GetStdWeightPosition())
	}
	if cfg.GetStdWeightVelocity() != empty.GetStdWeightVelocity() {
		t.Errorf("std_weight_velocity: file %f, default %f", cfg.GetStdWeightVelocity(), empty.GetStdWeightVelocity())
	}
	if cfg.GetParallelCostThreshold() != empty.GetParallelCostThreshold() {
		t.Errorf("parallel_cost_threshold: file %d, default %d", cfg.GetParallelCostThreshold(), empty.GetParallelCostThreshold())
	}
}
