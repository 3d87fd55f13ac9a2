package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/chemindex/internal/config"
	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/internal/testutil/chemfake"
	"github.com/turtacn/chemindex/pkg/errors"
)

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand(nil)
	assert.Equal(t, "chemindex", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"version", "index", "get", "search", "ingest", "export", "restore", "snapshots", "serve", "worker"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	for _, flag := range []string{"config", "env-file", "log-level", "output", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
	assert.Equal(t, "o", cmd.PersistentFlags().Lookup("output").Shorthand)
	assert.Equal(t, OutputText, cmd.PersistentFlags().Lookup("output").DefValue)
}

func TestVersion_SkipsInit(t *testing.T) {
	b := &fakeBackend{}
	out, err := execute(t, b, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "chemindex "+Version)
	assert.Contains(t, out, "commit: "+GitCommit)
	assert.Nil(t, b.cfg, "version must not load config")
}

func TestPreRun_LoadsConfigAndClosesBackend(t *testing.T) {
	svc := &mockService{}
	svc.On("Count", mock.Anything, mock.Anything).Return(int64(3), nil)
	b := &fakeBackend{svc: svc}

	_, err := execute(t, b, "", "search", "mol", "--count")
	require.NoError(t, err)
	require.NotNil(t, b.cfg)
	assert.Equal(t, chemfake.ToolkitName, b.cfg.Ingest.Toolkit)
	assert.True(t, b.closed)
}

func TestPreRun_RequiresToolkit(t *testing.T) {
	t.Setenv("CHEMINDEX_INGEST_TOOLKIT", "")
	b := &fakeBackend{svc: &mockService{}}

	_, err := run(t, b, "", "search", "mol", "--count")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid))
	assert.Contains(t, err.Error(), "ingest.toolkit")
	assert.Nil(t, b.cfg)
}

func TestPreRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chemindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ingest:\n  error_policy: skip\n  batch_size: 7\n"), 0o600))

	svc := &mockService{}
	svc.On("Count", mock.Anything, mock.Anything).Return(int64(0), nil)
	b := &fakeBackend{svc: svc}

	_, err := execute(t, b, "", "search", "mol", "--count", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "skip", b.cfg.Ingest.ErrorPolicy)
	assert.Equal(t, 7, b.cfg.Ingest.BatchSize)
}

func TestPreRun_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("ingest:\n  error_policy: explode\n"), 0o600))

	tests := []struct {
		name string
		args []string
		code errors.ErrorCode
	}{
		{"invalid config", []string{"search", "mol", "--count", "--config", bad}, errors.ErrCodeConfigInvalid},
		{"missing config", []string{"search", "mol", "--count", "--config", filepath.Join(dir, "none.yaml")}, errors.ErrCodeConfigInvalid},
		{"output format", []string{"search", "mol", "--count", "-o", "xml"}, errors.CodeInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{}
			_, err := execute(t, b, "", tt.args...)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), err.Error())
			assert.False(t, b.used)
		})
	}
}

func TestInitLogger_RejectsUnknownLevel(t *testing.T) {
	cfg := &config.Config{Log: logging.LogConfig{Level: "info", Format: "json"}}
	_, err := initLogger(cfg, &RootOptions{LogLevel: "loud"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	logger, err := initLogger(cfg, &RootOptions{LogLevel: "debug"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := NewRootCommand(nil)
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

type sample struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func TestPrintResult_Formats(t *testing.T) {
	for _, format := range []string{OutputJSON, OutputYAML, OutputText} {
		t.Run(format, func(t *testing.T) {
			cmd := NewRootCommand(nil)
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetContext(contextWith(&CLIContext{OutputFormat: format}))

			require.NoError(t, PrintResult(cmd, sample{Name: "ethanol", Count: 2}))

			var got sample
			switch format {
			case OutputJSON:
				require.NoError(t, json.Unmarshal(out.Bytes(), &got))
				assert.Equal(t, sample{Name: "ethanol", Count: 2}, got)
			case OutputYAML:
				require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
				assert.Equal(t, sample{Name: "ethanol", Count: 2}, got)
			default:
				assert.Equal(t, "{Name:ethanol Count:2}\n", out.String())
			}
		})
	}
}

func TestFormatTable(t *testing.T) {
	got, err := FormatTable([]string{"ID", "NAME"}, [][]string{{"a1", "ethanol"}, {"b"}})
	require.NoError(t, err)
	assert.Contains(t, got, "ID")
	assert.Contains(t, got, "NAME")
	assert.Contains(t, got, "ethanol")
	assert.Contains(t, got, "b")

	got, err = FormatTable(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFormatTable_AlignsWideRunes(t *testing.T) {
	got, err := FormatTable([]string{"NAME", "ID"}, [][]string{{"α-pinene", "a1"}, {"ethanol", "b2"}})
	require.NoError(t, err)

	column := func(cell string) int {
		for _, line := range strings.Split(got, "\n") {
			if i := strings.Index(line, cell); i >= 0 {
				return utf8.RuneCountInString(line[:i])
			}
		}
		t.Fatalf("cell %q not rendered:\n%s", cell, got)
		return -1
	}
	assert.Equal(t, column("a1"), column("b2"))
}

//Personal.AI order the ending
