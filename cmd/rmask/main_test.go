package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliEnv struct {
	savesDir   string
	configPath string
}

func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	return &cliEnv{
		savesDir:   filepath.Join(base, "saves"),
		configPath: filepath.Join(base, "missing.toml"),
	}
}

func runCLI(t *testing.T, env *cliEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--config", env.configPath, "--saves-dir", env.savesDir}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func drawCar(t *testing.T, env *cliEnv) {
	t.Helper()
	out, _, err := runCLI(t, env, "draw",
		"--size", "64x64",
		"--brush", "6",
		"--lasso", "1:4,4 30,4 30,30 4,30",
		"--stroke", "2:40,40 60,60",
		"--prompt", "1=red car",
		"--name", "car",
	)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	requireContains(t, out, "Saved car (64x64, 2 layers)")
}

func TestCLIDrawListShow(t *testing.T) {
	env := setupCLIEnv(t)
	drawCar(t, env)

	out, _, err := runCLI(t, env, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "NAME\tKIND\tSIZE\tMODIFIED")
	requireContains(t, out, "car\tcustom\t")

	out, _, err = runCLI(t, env, "show", "car")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Canvas:    64x64")
	requireContains(t, out, "1\tLayer 1\t#804040\t")
	requireContains(t, out, "\tred car")
	requireContains(t, out, "2\tLayer 2\t#408080\t")
}

func TestCLIRegionsAndExport(t *testing.T) {
	env := setupCLIEnv(t)
	drawCar(t, env)

	regionsDir := filepath.Join(t.TempDir(), "regions")
	out, _, err := runCLI(t, env, "regions", "car", "--out", regionsDir)
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	requireContains(t, out, "Prompt:    BREAK red car BREAK _")
	requireContains(t, out, "Regions:  2 of 2 layers")
	requireContains(t, out, "Wrote 3 region images")

	exportDir := filepath.Join(t.TempDir(), "export")
	out, _, err = runCLI(t, env, "export", "car", "--out", exportDir, "--thumbnails")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Exported 2 layers of car")
	for _, f := range []string{"mask.png", "composite.png", "layer-01.png", "layer-02.png", "thumb-02.png", "prompts.json"} {
		if _, err := os.Stat(filepath.Join(exportDir, f)); err != nil {
			t.Fatalf("expected %s: %v", f, err)
		}
	}

	out, _, err = runCLI(t, env, "import", filepath.Join(exportDir, "mask.png"), "--name", "copy", "-p", "2=blue")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	requireContains(t, out, "Saved copy with 2 layers (rebuilt from mask colors)")

	out, _, err = runCLI(t, env, "show", "copy")
	if err != nil {
		t.Fatalf("show copy: %v", err)
	}
	requireContains(t, out, "2\tLayer 2\t#408080")
	requireContains(t, out, "\tblue")
}

func TestCLIDeleteAndPrune(t *testing.T) {
	env := setupCLIEnv(t)
	drawCar(t, env)

	out, _, err := runCLI(t, env, "delete", "car")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireContains(t, out, "Deleted car")
	if _, _, err := runCLI(t, env, "show", "car"); err == nil {
		t.Fatal("show of deleted save should fail")
	}

	out, _, err = runCLI(t, env, "prune", "--keep", "0")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, out, "Pruned 0 auto-saves")

	out, _, err = runCLI(t, env, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No saves yet")
}

func TestCLIDrawNothing(t *testing.T) {
	env := setupCLIEnv(t)
	if _, _, err := runCLI(t, env, "draw", "--size", "8x8"); err == nil {
		t.Fatal("draw without gestures should fail")
	}
	if _, _, err := runCLI(t, env, "draw", "--stroke", "x:1,1"); err == nil {
		t.Fatal("draw with a bad layer should fail")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLIEnv(t)
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("config init should refuse to overwrite")
	}

	out, _, err = runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "auto_save_limit = 20")
	requireContains(t, out, env.savesDir)
}
