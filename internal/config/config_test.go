package config

import (
	"flag"
	"os"
	"testing"
)

func TestApplyEnvOverlaysRecognizedKeys(t *testing.T) {
	t.Setenv("REP_THRESHOLD", "42")
	t.Setenv("CONFIG_ALGORITHM", "WCC")
	t.Setenv("AUTOSCALE_ENABLED", "true")

	c := Defaults()
	ApplyEnv(&c)

	if c.RepThreshold != 42 {
		t.Errorf("RepThreshold = %d, want 42", c.RepThreshold)
	}
	if c.Algo != WCC {
		t.Errorf("Algo = %s, want WCC", c.Algo)
	}
	if !c.AutoscaleEnabled {
		t.Errorf("AutoscaleEnabled = false, want true")
	}
}

func TestApplyEnvIgnoresUnsetKeys(t *testing.T) {
	os.Unsetenv("REP_THRESHOLD")
	c := Defaults()
	want := c.RepThreshold
	ApplyEnv(&c)
	if c.RepThreshold != want {
		t.Errorf("RepThreshold = %d, want unchanged %d", c.RepThreshold, want)
	}
}

func TestRegisterFlagsOverridesDefaults(t *testing.T) {
	c := Defaults()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs, &c)

	if err := fs.Parse([]string{"-d", "10.0.0.1", "-B", "3", "-P", "8"}); err != nil {
		t.Fatal(err)
	}
	if c.DirMasterIP != "10.0.0.1" || c.LocalBase != 3 || c.NumCores != 8 {
		t.Errorf("got %+v", c)
	}
}

func TestLoadJSONFileOverwritesOnlyPresentFields(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.json"
	if err := os.WriteFile(path, []byte(`{"rep_threshold": 99}`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := Defaults()
	wantSaveDir := c.SaveDir
	if err := LoadJSONFile(&c, path); err != nil {
		t.Fatal(err)
	}
	if c.RepThreshold != 99 {
		t.Errorf("RepThreshold = %d, want 99", c.RepThreshold)
	}
	if c.SaveDir != wantSaveDir {
		t.Errorf("SaveDir = %q, want unchanged %q", c.SaveDir, wantSaveDir)
	}
}
