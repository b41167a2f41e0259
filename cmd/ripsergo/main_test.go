package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ripsergo/internal/config"
	"ripsergo/internal/diagcache"
	"ripsergo/internal/testsupport"
)

const stubOutput = "distance matrix with 3 points\n" +
	"value range: [0.1,2]\n" +
	"persistence intervals in dim 0:\n" +
	" [0,0.1)\n" +
	" [0,1.5)\n" +
	" [0, )\n" +
	"persistence intervals in dim 1:\n"

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create config: %v", err)
	}
	defer f.Close()
	if err := cfg.Encode(f); err != nil {
		t.Fatalf("encode config: %v", err)
	}
	return path
}

func writeTestMatrix(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	path := filepath.Join(testsupport.BaseDir(cfg), "input", name)
	testsupport.WriteMatrix(t, path, [][]float64{
		{0, 1.5, 2},
		{1.5, 0, 0.1},
		{2, 0.1, 0},
	})
	return path
}

func decodeResults(t *testing.T, stdout string) []resultJSON {
	t.Helper()
	var results []resultJSON
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		t.Fatalf("decode JSON output: %v\n%s", err, stdout)
	}
	return results
}

func TestComputeCommandJSON(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRipserStub(stubOutput, "", 0))
	configPath := writeTestConfig(t, cfg)
	matrix := writeTestMatrix(t, cfg, "points.csv")

	stdout, _, err := runCLI(t, []string{"compute", "--json", matrix}, configPath)
	if err != nil {
		t.Fatalf("compute returned error: %v", err)
	}
	results := decodeResults(t, stdout)
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	result := results[0]
	if result.Error != nil || result.Report == nil {
		t.Fatalf("unexpected result %#v", result)
	}
	if result.Report.Points != 3 || len(result.Report.Diagram[0]) != 3 {
		t.Fatalf("unexpected report %#v", result.Report)
	}
	if !result.Report.Diagram[0][2].Unbounded() {
		t.Fatal("expected unbounded final interval")
	}
	if intervals, ok := result.Report.Diagram[1]; !ok || len(intervals) != 0 {
		t.Fatalf("expected empty dim 1, got %#v", result.Report.Diagram)
	}
	if !strings.Contains(stdout, "null") {
		t.Fatalf("expected null death in JSON output:\n%s", stdout)
	}
	if result.RunID == "" {
		t.Fatal("expected run id")
	}

	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty work dir, found %d entries", len(entries))
	}
}

func TestComputeCommandTable(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRipserStub(stubOutput, "", 0))
	configPath := writeTestConfig(t, cfg)
	matrix := writeTestMatrix(t, cfg, "points.csv")

	stdout, _, err := runCLI(t, []string{"compute", "--intervals", matrix}, configPath)
	if err != nil {
		t.Fatalf("compute returned error: %v", err)
	}
	upper := strings.ToUpper(stdout)
	for _, want := range []string{"POINTS.CSV", "3 POINTS", "UNBOUNDED", "PERSISTENCE", "∞"} {
		if !strings.Contains(upper, want) {
			t.Fatalf("expected %q in output:\n%s", want, stdout)
		}
	}
}

func TestComputeCommandReportsStderr(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRipserStub("", "error: file not found", 1))
	configPath := writeTestConfig(t, cfg)
	matrix := writeTestMatrix(t, cfg, "points.csv")

	stdout, _, err := runCLI(t, []string{"compute", "--json", matrix}, configPath)
	if err == nil {
		t.Fatal("expected compute to fail")
	}
	if !strings.Contains(err.Error(), "file not found") {
		t.Fatalf("error lacks stderr: %v", err)
	}
	results := decodeResults(t, stdout)
	if len(results) != 1 || results[0].Error == nil {
		t.Fatalf("expected error result, got %#v", results)
	}
	if results[0].Error.Kind != "external tool error" || results[0].Report != nil {
		t.Fatalf("unexpected error result %#v", results[0].Error)
	}
}

func TestComputeCommandParallelFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRipserStub(stubOutput, "", 0))
	configPath := writeTestConfig(t, cfg)
	first := writeTestMatrix(t, cfg, "a.csv")
	second := writeTestMatrix(t, cfg, "b.csv")
	missing := filepath.Join(testsupport.BaseDir(cfg), "input", "missing.csv")

	stdout, _, err := runCLI(t, []string{"compute", "--json", "--jobs", "2", first, missing, second}, configPath)
	if err == nil || !strings.Contains(err.Error(), "1 of 3") {
		t.Fatalf("expected one failure out of three, got %v", err)
	}
	results := decodeResults(t, stdout)
	if len(results) != 3 {
		t.Fatalf("expected three results, got %d", len(results))
	}
	if results[0].File != first || results[1].File != missing || results[2].File != second {
		t.Fatalf("results out of order: %s, %s, %s", results[0].File, results[1].File, results[2].File)
	}
	if results[0].Error != nil || results[2].Error != nil || results[1].Error == nil {
		t.Fatalf("unexpected error placement: %#v", results)
	}
}

func TestComputeCommandRejectsNonDistanceFormatWithoutDirect(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRipserStub(stubOutput, "", 0))
	configPath := writeTestConfig(t, cfg)
	matrix := writeTestMatrix(t, cfg, "points.csv")

	_, _, err := runCLI(t, []string{"compute", "--format", "point-cloud", matrix}, configPath)
	if err == nil || !strings.Contains(err.Error(), "--direct") {
		t.Fatalf("expected --direct hint, got %v", err)
	}

	stdout, _, err := runCLI(t, []string{"compute", "--direct", "--format", "point-cloud", "--json", matrix}, configPath)
	if err != nil {
		t.Fatalf("direct compute returned error: %v", err)
	}
	if results := decodeResults(t, stdout); results[0].Report == nil {
		t.Fatalf("expected report, got %#v", results[0])
	}
	if _, statErr := os.Stat(matrix); statErr != nil {
		t.Fatalf("direct mode must leave the input file alone: %v", statErr)
	}
}

func TestComputeCommandUsesCache(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCache(), testsupport.WithRipserStub(stubOutput, "", 0))
	configPath := writeTestConfig(t, cfg)
	matrix := writeTestMatrix(t, cfg, "points.csv")

	for i := 0; i < 2; i++ {
		if _, _, err := runCLI(t, []string{"compute", "--json", matrix}, configPath); err != nil {
			t.Fatalf("compute %d returned error: %v", i, err)
		}
	}

	stdout, _, err := runCLI(t, []string{"cache", "list", "--json"}, configPath)
	if err != nil {
		t.Fatalf("cache list returned error: %v", err)
	}
	var entries []diagcache.Entry
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("decode entries: %v\n%s", err, stdout)
	}
	if len(entries) != 1 || entries[0].Hits != 1 || entries[0].Points != 3 {
		t.Fatalf("unexpected cache entries %#v", entries)
	}

	stdout, _, err = runCLI(t, []string{"cache", "stats"}, configPath)
	if err != nil {
		t.Fatalf("cache stats returned error: %v", err)
	}
	if !strings.Contains(stdout, "Entries") || !strings.Contains(stdout, cfg.Cache.Path) {
		t.Fatalf("unexpected stats output:\n%s", stdout)
	}

	stdout, _, err = runCLI(t, []string{"cache", "clear"}, configPath)
	if err != nil {
		t.Fatalf("cache clear returned error: %v", err)
	}
	if !strings.Contains(stdout, "Removed 1 cached diagram") {
		t.Fatalf("unexpected clear output %q", stdout)
	}
}

func TestCacheCommandDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	stdout, _, err := runCLI(t, []string{"cache", "stats"}, configPath)
	if err != nil {
		t.Fatalf("cache stats returned error: %v", err)
	}
	if !strings.Contains(stdout, "disabled") {
		t.Fatalf("expected disabled notice, got %q", stdout)
	}
}

func TestParseCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ripser.out")
	if err := os.WriteFile(path, []byte(stubOutput), 0o644); err != nil {
		t.Fatalf("write output: %v", err)
	}

	stdout, _, err := runCLI(t, []string{"parse", "--json", path}, "")
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if !strings.Contains(stdout, `"points": 3`) || !strings.Contains(stdout, "null") {
		t.Fatalf("unexpected JSON output:\n%s", stdout)
	}

	bad := filepath.Join(t.TempDir(), "bad.out")
	if err := os.WriteFile(bad, []byte("distance matrix with 3 points\nvalue range: [0,1]\n [0,1)\n"), 0o644); err != nil {
		t.Fatalf("write bad output: %v", err)
	}
	_, _, err = runCLI(t, []string{"parse", bad}, "")
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected line 3 parse error, got %v", err)
	}
}

func TestParseCommandReadsStdin(t *testing.T) {
	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stubOutput))
	cmd.SetArgs([]string{"parse", "-"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if !strings.Contains(stdout.String(), "stdin") {
		t.Fatalf("expected stdin title, got:\n%s", stdout.String())
	}
}

func TestDoctorCommand(t *testing.T) {
	twoPoints := "distance matrix with 2 points\nvalue range: [1,1]\npersistence intervals in dim 0:\n [0,1)\n [0, )\n"
	cfg := testsupport.NewConfig(t, testsupport.WithRipserStub(twoPoints, "", 0))
	configPath := writeTestConfig(t, cfg)

	stdout, _, err := runCLI(t, []string{"doctor"}, configPath)
	if err != nil {
		t.Fatalf("doctor returned error: %v\n%s", err, stdout)
	}
	for _, want := range []string{"ripser smoke run", "[OK]", configPath} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in doctor output:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "[ERROR]") {
		t.Fatalf("unexpected failure in doctor output:\n%s", stdout)
	}
}

func TestDoctorCommandMissingBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Ripser.Binary = filepath.Join(testsupport.BaseDir(cfg), "no-such-ripser")
	configPath := writeTestConfig(t, cfg)

	stdout, _, err := runCLI(t, []string{"doctor"}, configPath)
	if err == nil {
		t.Fatal("expected doctor to fail")
	}
	if !strings.Contains(stdout, "Missing dependencies") {
		t.Fatalf("expected missing dependency line:\n%s", stdout)
	}
}

func TestConfigInitValidateShow(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	target := filepath.Join(t.TempDir(), "ripsergo.toml")

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init returned error: %v", err)
	}
	if !strings.Contains(stdout, target) {
		t.Fatalf("unexpected init output %q", stdout)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	stdout, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate returned error: %v", err)
	}
	if !strings.Contains(stdout, "Configuration valid") {
		t.Fatalf("unexpected validate output %q", stdout)
	}

	stdout, _, err = runCLI(t, []string{"config", "show"}, target)
	if err != nil {
		t.Fatalf("config show returned error: %v", err)
	}
	for _, section := range []string{"[ripser]", "[paths]", "[cache]", "[logging]"} {
		if !strings.Contains(stdout, section) {
			t.Fatalf("expected %s in config show output:\n%s", section, stdout)
		}
	}
}

func TestLogLevelFlagValidated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	if _, _, err := runCLI(t, []string{"--log-level", "loud", "config", "validate"}, configPath); err == nil {
		t.Fatal("expected invalid log level to fail")
	}
}
