package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/mediagen/compare"
	"github.com/BaSui01/mediagen/config"
	"github.com/BaSui01/mediagen/llm/factory"
	"github.com/BaSui01/mediagen/llm/video"
	"github.com/BaSui01/mediagen/storage"
	"github.com/BaSui01/mediagen/testutil"
	"github.com/BaSui01/mediagen/testutil/mocks"
	"github.com/BaSui01/mediagen/types"
)

var testNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

const testTS = "20250314_092653"

type cliTestEnv struct {
	dir        string
	outputDir  string
	configPath string
	env        map[string]string
	registry   *factory.Registry
	uploader   *mocks.MockUploader
}

// setupCLITestEnv 准备临时目录、YAML 配置与只含模拟生成器的注册表
func setupCLITestEnv(t *testing.T, extraYAML string) *cliTestEnv {
	t.Helper()

	dir := t.TempDir()
	env := &cliTestEnv{
		dir:       dir,
		outputDir: filepath.Join(dir, "out"),
		env:       map[string]string{"FAKE_API_KEY": "k"},
		registry:  factory.NewRegistry(),
		uploader:  mocks.NewMockUploader("https://pub.example.dev"),
	}

	rate := func(r float64) factory.RegisterOption {
		return factory.WithEstimator(func(d float64, _ video.Resolution) (float64, error) { return r * d, nil })
	}
	env.registry.Register("fake-a", func(factory.Config, *zap.Logger) (video.Generator, error) {
		if env.env["FAKE_API_KEY"] == "" {
			return nil, types.NewCredentialError("FAKE_API_KEY", "fake-a")
		}
		return mocks.NewMockGenerator("fake-a (standard)").WithRate(0.02), nil
	}, rate(0.02))
	env.registry.Register("fake-b", func(factory.Config, *zap.Logger) (video.Generator, error) {
		return nil, types.NewCredentialError("FAKE_B_TOKEN", "fake-b")
	}, rate(0.1))

	yaml := "log:\n  level: error\n  format: json\n" +
		"compare:\n  models: [fake-a, fake-b]\n  output_dir: " + env.outputDir + "\n" +
		"storage:\n  backend: none\n" + extraYAML
	env.configPath = testutil.WriteFile(t, "mediagen.yaml", []byte(yaml))
	return env
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommandWith(dependencies{
		registry:  e.registry,
		lookupEnv: testutil.EnvMap(e.env),
		now:       func() time.Time { return testNow },
		newUploader: func(config.StorageConfig, *zap.Logger) (storage.Uploader, error) {
			return e.uploader, nil
		},
	})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(testutil.TestContext(t))
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "mediagen dev")
	assert.Contains(t, out.String(), "Git Commit")
}

func TestCompareCommand_WritesSummaryAndTable(t *testing.T) {
	env := setupCLITestEnv(t, "")

	stdout, stderr, err := env.run(t, "compare", "A fairy dinosaur", "dancing")
	require.NoError(t, err)

	assert.Contains(t, stdout, "fake-a")
	assert.Contains(t, stdout, "skipped")
	assert.Contains(t, stdout, "$0.1000")
	assert.Contains(t, stderr, "[1/2] fake-a")
	assert.Contains(t, stderr, "FAKE_B_TOKEN")

	summary, err := compare.ReadSummary(filepath.Join(env.outputDir, compare.SummaryFileName(testTS)))
	require.NoError(t, err)
	assert.Equal(t, "A fairy dinosaur dancing", summary.Prompt)
	assert.Equal(t, []string{"fake-a", "fake-b"}, summary.Models())
	assert.InDelta(t, 0.1, summary.TotalEstimatedCost, 1e-9)
}

func TestCompareCommand_FlagsOverrideConfig(t *testing.T) {
	env := setupCLITestEnv(t, "")
	other := filepath.Join(env.dir, "other")

	_, stderr, err := env.run(t, "compare", "-q", "-m", "fake-a", "--duration", "8", "-r", "1080P", "-o", other, "prompt")
	require.NoError(t, err)
	assert.Empty(t, stderr, "quiet mode prints no progress")

	summary, err := compare.ReadSummary(filepath.Join(other, compare.SummaryFileName(testTS)))
	require.NoError(t, err)
	assert.Equal(t, []string{"fake-a"}, summary.Models())
	assert.Equal(t, 8, summary.DurationSeconds)
	assert.Equal(t, "1080p", summary.Resolution)
}

func TestCompareCommand_InvalidInput(t *testing.T) {
	env := setupCLITestEnv(t, "")

	_, _, err := env.run(t, "compare")
	assert.Error(t, err, "prompt is required")

	_, _, err = env.run(t, "compare", "--duration", "0", "p")
	assert.Error(t, err)
}

func TestCompareCommand_UnwritableOutputFails(t *testing.T) {
	env := setupCLITestEnv(t, "")
	blocker := testutil.WriteFile(t, "file", []byte("x"))

	_, _, err := env.run(t, "compare", "-q", "-o", filepath.Join(blocker, "out"), "p")
	assert.Error(t, err)
}

func TestCompareCommand_AllProvidersMissingStillSucceeds(t *testing.T) {
	env := setupCLITestEnv(t, "")
	env.env = map[string]string{}

	stdout, _, err := env.run(t, "compare", "-q", "p")
	require.NoError(t, err)
	assert.Contains(t, stdout, "$0.0000")
}

func TestCompareCommand_MetricsFile(t *testing.T) {
	env := setupCLITestEnv(t, "")
	metricsPath := filepath.Join(env.dir, "mediagen.prom")

	_, _, err := env.run(t, "compare", "-q", "--metrics-file", metricsPath, "p")
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `mediagen_generations_total{model="fake-a",status="success"} 1`)
	assert.Contains(t, string(data), `mediagen_generations_total{model="fake-b",status="skipped"} 1`)
	assert.Contains(t, string(data), "mediagen_comparisons_total 1")
}

func TestCompareCommand_Publish(t *testing.T) {
	env := setupCLITestEnv(t, "")

	_, _, err := env.run(t, "compare", "-q", "--publish", "p")
	require.NoError(t, err)

	uploads := env.uploader.Uploads()
	assert.Contains(t, uploads, "video-compare/"+testTS+"/fake-a_"+testTS+".mp4")
	assert.Contains(t, uploads, "video-compare/"+testTS+"/comparison.json")

	summary, err := compare.ReadSummary(filepath.Join(env.outputDir, compare.SummaryFileName(testTS)))
	require.NoError(t, err)
	assert.Equal(t, "https://pub.example.dev/video-compare/"+testTS+"/fake-a_"+testTS+".mp4", summary.Results[0].PublicURL)
}

func TestCompareAndLedgerCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	env := setupCLITestEnv(t, "ledger:\n  enabled: true\n  database:\n    driver: sqlite\n    name: "+dbPath+"\n")

	_, _, err := env.run(t, "compare", "-q", "p")
	require.NoError(t, err)

	stdout, _, err := env.run(t, "ledger", "spend")
	require.NoError(t, err)
	assert.Contains(t, stdout, "fake-a")
	assert.Contains(t, stdout, "$0.1000")
	assert.Contains(t, stdout, "TOTAL")

	stdout, _, err = env.run(t, "ledger", "recent", "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, stdout, testTS)
	assert.Contains(t, stdout, "skipped")

	_, _, err = env.run(t, "ledger", "spend", "--since", "yesterday")
	assert.Error(t, err)
}

func TestLedgerCommand_Disabled(t *testing.T) {
	env := setupCLITestEnv(t, "")

	_, _, err := env.run(t, "ledger", "recent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger is disabled")
}

func TestModelsCommand(t *testing.T) {
	env := setupCLITestEnv(t, "")

	stdout, _, err := env.run(t, "models", "--duration", "10")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Cost preview for 10s at 720p")
	var aLine, bLine string
	for _, line := range strings.Split(stdout, "\n") {
		switch {
		case strings.Contains(line, "fake-a"):
			aLine = line
		case strings.Contains(line, "fake-b"):
			bLine = line
		}
	}
	assert.Contains(t, aLine, "ready")
	assert.Contains(t, aLine, "$0.2000")
	assert.Contains(t, bLine, "missing credentials")
	assert.Contains(t, bLine, "$1.0000")
}

// durationGen 额外声明支持的时长
type durationGen struct{ *mocks.MockGenerator }

func (durationGen) SupportedDurations() []int { return []int{4, 6, 8} }

func TestModelsCommand_NamesAndDurations(t *testing.T) {
	env := setupCLITestEnv(t, "")
	env.registry.Register("fake-veo", func(factory.Config, *zap.Logger) (video.Generator, error) {
		return durationGen{mocks.NewMockGenerator("fake-veo")}, nil
	})

	stdout, _, err := env.run(t, "models", "FAKE-VEO", "fake-b")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Durations")
	assert.Contains(t, stdout, "4,6,8s")
	assert.Contains(t, stdout, "fake-b")
	assert.NotContains(t, stdout, "fake-a")

	_, _, err = env.run(t, "models", "sora")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown model "sora"`)
}

func TestFormatDurations(t *testing.T) {
	assert.Equal(t, "—", formatDurations(nil))
	assert.Equal(t, "8s", formatDurations([]int{8}))
	assert.Equal(t, "4,6,8s", formatDurations([]int{4, 6, 8}))
	assert.Equal(t, "5,6s", formatDurations([]int{5, 6}))
	assert.Equal(t, "1-10s", formatDurations([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))
}

func TestUploadCommand(t *testing.T) {
	env := setupCLITestEnv(t, "")
	local := testutil.WriteFile(t, "clip.mp4", []byte("video"))

	stdout, _, err := env.run(t, "upload", local, "demo/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://pub.example.dev/demo/clip.mp4\n", stdout)

	_, _, err = env.run(t, "upload", filepath.Join(env.dir, "missing.mp4"), "demo/x.mp4")
	assert.Error(t, err)
}

func TestUploadCommand_Directory(t *testing.T) {
	env := setupCLITestEnv(t, "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("a"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.json"), []byte("{}"), 0o644))

	env.uploader.FailOn("batch/sub/b.json", errors.New("denied"))
	stdout, stderr, err := env.run(t, "upload", dir, "batch")
	require.Error(t, err)
	assert.Contains(t, stdout, "https://pub.example.dev/batch/a.mp4")
	assert.Contains(t, stderr, "denied")
}

func TestUploadCommand_BackendDisabled(t *testing.T) {
	env := setupCLITestEnv(t, "")
	local := testutil.WriteFile(t, "clip.mp4", []byte("video"))

	cmd := newRootCommandWith(dependencies{lookupEnv: testutil.EnvMap(nil)})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", env.configPath, "upload", local, "demo/clip.mp4"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestInvalidConfig(t *testing.T) {
	env := setupCLITestEnv(t, "")
	env.configPath = testutil.WriteFile(t, "bad.yaml", []byte("log:\n  format: xml\n"))

	_, _, err := env.run(t, "models")
	assert.Error(t, err)
}

func TestSinceFlag(t *testing.T) {
	from, err := sinceFlag("24h", testNow)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(-24*time.Hour), from)

	from, err = sinceFlag("2025-03-01", testNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), from)

	from, err = sinceFlag("", testNow)
	require.NoError(t, err)
	assert.True(t, from.IsZero())

	_, err = sinceFlag("last week", testNow)
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger := initLogger(config.LogConfig{Level: "debug", Format: format, OutputPaths: []string{"stderr"}})
		require.NotNil(t, logger)
		assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	}
	assert.False(t, initLogger(config.LogConfig{Level: "bogus"}).Core().Enabled(zap.DebugLevel))
}
