package memory

import (
	"testing"
)

func TestConfigureFromEnvNoVariables(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "")
	t.Setenv("MEMORY_RATIO", "")

	result := ConfigureFromEnv()

	if result.Configured {
		t.Error("expected Configured=false with no environment variables")
	}
	if result.Source != "none" {
		t.Errorf("Source = %q, want %q", result.Source, "none")
	}
}

func TestConfigureFromEnvMemoryLimit(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_RATIO", "")
	t.Setenv("MEMORY_LIMIT", "536870912") // 512 MiB

	result := ConfigureFromEnv()

	if !result.Configured {
		t.Fatal("expected Configured=true")
	}
	if result.Source != "MEMORY_LIMIT" {
		t.Errorf("Source = %q, want %q", result.Source, "MEMORY_LIMIT")
	}
	if result.ContainerLimit != 536870912 {
		t.Errorf("ContainerLimit = %d, want 536870912", result.ContainerLimit)
	}

	ratio := DefaultMemoryRatio
	want := int64(536870912 * ratio)
	if result.GoMemLimit != want {
		t.Errorf("GoMemLimit = %d, want %d", result.GoMemLimit, want)
	}
}

func TestConfigureFromEnvCustomRatio(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "1073741824") // 1 GiB
	t.Setenv("MEMORY_RATIO", "0.5")

	result := ConfigureFromEnv()

	if !result.Configured {
		t.Fatal("expected Configured=true")
	}
	if result.Ratio != 0.5 {
		t.Errorf("Ratio = %v, want 0.5", result.Ratio)
	}
	if result.GoMemLimit != 536870912 {
		t.Errorf("GoMemLimit = %d, want 536870912", result.GoMemLimit)
	}
}

func TestConfigureFromEnvInvalidValues(t *testing.T) {
	tests := []struct {
		name       string
		memLimit   string
		ratio      string
		wantSource string
	}{
		{"non-numeric limit", "lots", "", "none"},
		{"ratio above one falls back to default", "1073741824", "1.5", "MEMORY_LIMIT"},
		{"ratio garbage falls back to default", "1073741824", "half", "MEMORY_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", tt.memLimit)
			t.Setenv("MEMORY_RATIO", tt.ratio)

			result := ConfigureFromEnv()

			if result.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", result.Source, tt.wantSource)
			}
			if result.Source == "MEMORY_LIMIT" && result.Ratio != DefaultMemoryRatio {
				t.Errorf("Ratio = %v, want default %v", result.Ratio, DefaultMemoryRatio)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{1073741824, "1.0 GiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
