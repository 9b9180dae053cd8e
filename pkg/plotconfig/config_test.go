package plotconfig

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/region"
)

func TestParseScale(t *testing.T) {
	tests := []struct {
		in      string
		want    Ratio
		wantErr bool
	}{
		{"1:2", Ratio{1, 2}, false},
		{"1/50", Ratio{1, 50}, false},
		{" 2 : 1 ", Ratio{2, 1}, false},
		{"4", Ratio{4, 1}, false},
		{"1", Ratio{1, 1}, false},
		{"0.5", Ratio{1, 2}, false},
		{"0.02", Ratio{1, 50}, false},

		{"", OneToOne, true},
		{"abc", OneToOne, true},
		{"1:0", OneToOne, true},
		{"-2", OneToOne, true},
		{"1:x", OneToOne, true},
		{"0", OneToOne, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScale(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseScale(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseScale(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsFit(t *testing.T) {
	for _, s := range []string{"Fit", "fit", " FIT "} {
		if !IsFit(s) {
			t.Errorf("IsFit(%q) = false", s)
		}
	}
	for _, s := range []string{"", "1:1", "fitted"} {
		if IsFit(s) {
			t.Errorf("IsFit(%q) = true", s)
		}
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	cfg := Config{BlockNames: "A3_TITLE, A1_FRAME"}
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if cfg.Device != DefaultDevice || cfg.Scale != ScaleFit {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.GroupTolerance != 100 || cfg.MediaTolerance != 2 {
		t.Errorf("tolerances = %v/%v, want 100/2", cfg.GroupTolerance, cfg.MediaTolerance)
	}
	if got := cfg.Names(); !slices.Equal(got, []string{"A3_TITLE", "A1_FRAME"}) {
		t.Errorf("Names() = %q", got)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no names", Config{BlockNames: " , "}},
		{"force without paper", Config{BlockNames: "TB", ForcePaper: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateAndSetDefaults()
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("err = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Defaults() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "last.toml")
	want := Defaults()
	want.BlockNames = "A3_TITLE"
	want.Order = region.OrderVertical
	want.Scale = "1:50"
	want.Center = false
	want.OffsetX = 12.5
	want.Paper = "ISO_A3_(420.00_x_297.00_MM)"

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last.toml")
	if err := os.WriteFile(path, []byte("block_names = \"TB\"\norder = \"n\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.BlockNames != "TB" || got.Order != region.OrderVertical {
		t.Errorf("got %+v", got)
	}
	if !got.AutoRotate || got.MediaTolerance != DefaultMediaTolerance {
		t.Errorf("defaults lost: %+v", got)
	}
}

func TestDefaultPathXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	got, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/xdg", "titleplot", "last.toml"); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}
