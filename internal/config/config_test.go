package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantPort int
		wantEnv  string
	}{
		{
			name:     "default values",
			envVars:  map[string]string{},
			wantPort: 5000,
			wantEnv:  "development",
		},
		{
			name: "custom port",
			envVars: map[string]string{
				"PORT": "8080",
			},
			wantPort: 8080,
			wantEnv:  "development",
		},
		{
			name: "production environment",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
			},
			wantPort: 5000,
			wantEnv:  "production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			if cfg.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", cfg.Port, tt.wantPort)
			}

			if cfg.Environment != tt.wantEnv {
				t.Errorf("Environment = %v, want %v", cfg.Environment, tt.wantEnv)
			}
		})
	}
}

func TestConfigEnvironmentChecks(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		isDev   bool
		isProd  bool
		isStage bool
	}{
		{
			name:    "development",
			env:     "development",
			isDev:   true,
			isProd:  false,
			isStage: false,
		},
		{
			name:    "production",
			env:     "production",
			isDev:   false,
			isProd:  true,
			isStage: false,
		},
		{
			name:    "staging",
			env:     "staging",
			isDev:   false,
			isProd:  false,
			isStage: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.env}

			if got := cfg.IsDevelopment(); got != tt.isDev {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.isDev)
			}

			if got := cfg.IsProduction(); got != tt.isProd {
				t.Errorf("IsProduction() = %v, want %v", got, tt.isProd)
			}

			if got := cfg.IsStaging(); got != tt.isStage {
				t.Errorf("IsStaging() = %v, want %v", got, tt.isStage)
			}
		})
	}
}

func TestLoadWeightsPreset_EmptyPathIsNotAnError(t *testing.T) {
	store, err := LoadWeightsPreset("")
	if err != nil {
		t.Fatalf("LoadWeightsPreset(\"\") error = %v", err)
	}
	if store.Current() != nil {
		t.Errorf("Current() = %+v, want nil for unconfigured preset", store.Current())
	}
}

func TestLoadWeightsPreset_ReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.yaml")
	contents := "name: conservative\ndesired_retention: 0.85\nmaximum_interval: 200\nweights:\n"
	for i := 0; i < 17; i++ {
		contents += "  - 1.0\n"
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing preset file: %v", err)
	}

	store, err := LoadWeightsPreset(path)
	if err != nil {
		t.Fatalf("LoadWeightsPreset() error = %v", err)
	}
	defer store.Close()

	preset := store.Current()
	if preset == nil {
		t.Fatal("Current() = nil, want loaded preset")
	}
	if preset.Name != "conservative" || preset.DesiredRetention != 0.85 || preset.MaximumInterval != 200 {
		t.Errorf("got %+v, want name=conservative retention=0.85 max=200", preset)
	}
}

func TestLoadSchedulingPolicy_EmptyPathIsNotAnError(t *testing.T) {
	store, err := LoadSchedulingPolicy("")
	if err != nil {
		t.Fatalf("LoadSchedulingPolicy(\"\") error = %v", err)
	}
	if store.Current() != nil {
		t.Errorf("Current() = %+v, want nil for unconfigured policy", store.Current())
	}
}

func TestLoadSchedulingPolicy_ReadsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.toml")
	contents := "exceptions = [\"2025-12-25\"]\n\n[weekly_rules]\nmonday = 5\nfriday = 8\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing policy file: %v", err)
	}

	store, err := LoadSchedulingPolicy(path)
	if err != nil {
		t.Fatalf("LoadSchedulingPolicy() error = %v", err)
	}
	defer store.Close()

	policy := store.Current()
	if policy == nil {
		t.Fatal("Current() = nil, want loaded policy")
	}
	if policy.WeeklyRules["monday"] != 5 || policy.WeeklyRules["friday"] != 8 {
		t.Errorf("weekly_rules = %+v, want monday=5 friday=8", policy.WeeklyRules)
	}
	if len(policy.Exceptions) != 1 || policy.Exceptions[0] != "2025-12-25" {
		t.Errorf("exceptions = %+v, want [2025-12-25]", policy.Exceptions)
	}
}
