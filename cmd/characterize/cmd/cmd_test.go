package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	kgzip "github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/characterize/pkg/api"
	"github.com/ssargent/characterize/pkg/config"
	"github.com/ssargent/characterize/pkg/di"
	"github.com/ssargent/characterize/pkg/report"
)

func setupTest(t *testing.T) *config.Config {
	t.Helper()
	c := di.NewContainer()
	c.SetRegisterer(prometheus.NewRegistry())
	SetContainer(c)

	cfg := config.DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.Reader.BufferKind = "heap"
	cfg.Characterize.TempDir = filepath.Join(t.TempDir(), "spool")
	return cfg
}

func writeGzip(t *testing.T, payload string) string {
	t.Helper()
	var buf bytes.Buffer
	w := kgzip.NewWriter(&buf)
	_, err := w.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "input.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

func TestInitCommand(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	dataDir := filepath.Join(tmpDir, "data")

	t.Run("Creates config", func(t *testing.T) {
		var out bytes.Buffer
		created, err := initConfig(&out, configPath, dataDir, false, true)
		require.NoError(t, err)
		assert.True(t, created)
		assert.FileExists(t, configPath)

		cfg, err := config.LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, dataDir, cfg.DataDir)
		assert.Len(t, cfg.Security.APIKey, 64)
		assert.Contains(t, out.String(), cfg.Security.APIKey)
	})

	t.Run("Keeps existing config", func(t *testing.T) {
		before, err := os.ReadFile(configPath)
		require.NoError(t, err)

		var out bytes.Buffer
		created, err := initConfig(&out, configPath, dataDir, false, false)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Contains(t, out.String(), "--force")

		after, err := os.ReadFile(configPath)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("Force overwrites", func(t *testing.T) {
		before, err := config.LoadConfig(configPath)
		require.NoError(t, err)

		created, err := initConfig(&bytes.Buffer{}, configPath, dataDir, true, false)
		require.NoError(t, err)
		assert.True(t, created)

		after, err := config.LoadConfig(configPath)
		require.NoError(t, err)
		assert.NotEqual(t, before.Security.APIKey, after.Security.APIKey)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("Missing file uses defaults", func(t *testing.T) {
		cfg, err := loadConfig(filepath.Join(t.TempDir(), "none.yaml"))
		require.NoError(t, err)
		assert.Equal(t, config.DefaultConfig().Characterize, cfg.Characterize)
	})

	t.Run("Environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		cfg := config.DefaultConfig()
		cfg.Characterize.Workers = 2
		require.NoError(t, config.SaveConfig(cfg, path))

		t.Setenv("CHARZ_WORKERS", "6")
		loaded, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 6, loaded.Characterize.Workers)
	})

	t.Run("Invalid value is rejected", func(t *testing.T) {
		t.Setenv("CHARZ_LOG_LEVEL", "loud")
		_, err := loadConfig(filepath.Join(t.TempDir(), "none.yaml"))
		assert.Error(t, err)
	})
}

func TestCharacterizeFiles(t *testing.T) {
	cfg := setupTest(t)
	path := writeGzip(t, "hello world")

	var out bytes.Buffer
	err := characterizeFiles(context.Background(), &out, cfg, []string{path}, runOptions{Encoding: report.JSON})
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, path, rep.Path)
	require.Len(t, rep.Root.Children, 1)
	assert.NotEqual(t, "false", rep.Validity)
}

func TestCharacterizeFiles_Strict(t *testing.T) {
	cfg := setupTest(t)
	path := writeGzip(t, "hello world")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0600))

	var out bytes.Buffer
	err = characterizeFiles(context.Background(), &out, cfg, []string{path}, runOptions{Strict: true})
	assert.ErrorIs(t, err, ErrInvalidSource)
	assert.Contains(t, out.String(), "gzip.isizeMismatch")

	out.Reset()
	err = characterizeFiles(context.Background(), &out, cfg, []string{path}, runOptions{})
	assert.NoError(t, err)
}

func TestCharacterizeFiles_MissingFile(t *testing.T) {
	cfg := setupTest(t)
	err := characterizeFiles(context.Background(), &bytes.Buffer{}, cfg,
		[]string{filepath.Join(t.TempDir(), "missing.gz")}, runOptions{})
	assert.Error(t, err)
}

func TestStoredReports(t *testing.T) {
	cfg := setupTest(t)
	path := writeGzip(t, "stored")

	var out bytes.Buffer
	err := characterizeFiles(context.Background(), &out, cfg, []string{path},
		runOptions{Encoding: report.JSON, Store: true})
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	require.NotEmpty(t, rep.ID)

	t.Run("List", func(t *testing.T) {
		var list bytes.Buffer
		require.NoError(t, listReports(&list, cfg))
		assert.Contains(t, list.String(), rep.ID)
		assert.Contains(t, list.String(), path)
	})

	t.Run("Show", func(t *testing.T) {
		var shown bytes.Buffer
		require.NoError(t, showReport(&shown, cfg, rep.ID, report.CBOR))

		got, err := report.Unmarshal(shown.Bytes(), report.CBOR)
		require.NoError(t, err)
		assert.Equal(t, rep.ID, got.ID)
		assert.Equal(t, rep.Root.Name, got.Root.Name)
	})

	t.Run("Show bad id", func(t *testing.T) {
		assert.Error(t, showReport(&bytes.Buffer{}, cfg, "nope", report.JSON))
	})
}

type recordingStarter struct {
	config  api.ServerConfig
	engine  api.Characterizer
	reports api.ReportStore
}

func (s *recordingStarter) StartServer(_ context.Context, engine api.Characterizer, reports api.ReportStore, config api.ServerConfig) error {
	s.engine, s.reports, s.config = engine, reports, config
	return nil
}

type recordingFactory struct{ starter *recordingStarter }

func (f *recordingFactory) CreateServerStarter() api.ServerStarter { return f.starter }

func TestServe(t *testing.T) {
	cfg := setupTest(t)
	cfg.Port = 9099
	starter := &recordingStarter{}
	container.SetServerFactory(&recordingFactory{starter: starter})

	t.Run("Generates key when auto", func(t *testing.T) {
		var out bytes.Buffer
		c := &cobra.Command{}
		c.SetOut(&out)

		require.NoError(t, serve(context.Background(), c, cfg, 1024))
		assert.Len(t, starter.config.APIKey, 64)
		assert.Contains(t, out.String(), starter.config.APIKey)
		assert.Equal(t, 9099, starter.config.Port)
		assert.Equal(t, int64(1024), starter.config.MaxUploadSize)
		assert.NotNil(t, starter.engine)
		assert.NotNil(t, starter.reports)
	})

	t.Run("Uses configured key", func(t *testing.T) {
		cfg.Security.APIKey = "fixed"
		c := &cobra.Command{}
		c.SetOut(&bytes.Buffer{})

		require.NoError(t, serve(context.Background(), c, cfg, 0))
		assert.Equal(t, "fixed", starter.config.APIKey)
	})
}

func TestRequireContainer(t *testing.T) {
	saved := container
	defer SetContainer(saved)

	SetContainer(nil)
	_, err := requireContainer()
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "show", "list", "delete", "serve", "init"} {
		assert.True(t, names[want], want)
	}
}
