// Package integration runs the indexing stack against live OpenSearch,
// Redis and MinIO instances. Tests skip unless CHEMINDEX_INTEGRATION_TEST
// is set; connection settings come from the usual CHEMINDEX_* variables.
package integration

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/turtacn/chemindex/internal/application/indexing"
	"github.com/turtacn/chemindex/internal/config"
	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/internal/interfaces/cli"
	"github.com/turtacn/chemindex/internal/testutil/chemfake"
)

const (
	// EnvIntegrationEnabled controls whether integration tests run.
	EnvIntegrationEnabled = "CHEMINDEX_INTEGRATION_TEST"

	// TestTimeout bounds a single integration test.
	TestTimeout = 120 * time.Second
)

func init() {
	chemfake.Register()
}

// SkipIfNoIntegration skips the calling test when the integration flag is unset.
func SkipIfNoIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(EnvIntegrationEnabled) == "" {
		t.Skipf("skipping integration test: set %s=1 to enable", EnvIntegrationEnabled)
	}
}

// TestEnvironment is one backend over indices private to the calling test.
type TestEnvironment struct {
	Ctx     context.Context
	Cfg     *config.Config
	Logger  logging.Logger
	Backend cli.Backend
	Service indexing.Service
}

var runSeq atomic.Int64

// SetupTestEnvironment loads config from the environment with the in-memory
// toolkit, points every kind at fresh indices and creates them. The indices are dropped when the
// test ends.
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	SkipIfNoIntegration(t)

	t.Setenv("CHEMINDEX_INGEST_TOOLKIT", chemfake.ToolkitName)
	cfg, err := config.LoadOrEnv("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	suffix := fmt.Sprintf("it_%d_%d", time.Now().UnixNano(), runSeq.Add(1))
	cfg.OpenSearch.Indices = config.IndexNames{
		Molecule:         "molecule_" + suffix,
		Reaction:         "reaction_" + suffix,
		ReactionTemplate: "reaction_template_" + suffix,
	}
	cfg.OpenSearch.Refresh = "wait_for"
	cfg.Redis.KeyPrefix = suffix + ":"
	cfg.MinIO.Prefix = suffix

	logger, err := logging.NewLogger(logging.LogConfig{Level: "warn", Format: "console", OutputPaths: []string{"stderr"}})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	backend := cli.NewBackend(cfg, logger)
	svc, err := backend.Service()
	if err != nil {
		cancel()
		t.Fatalf("indexing service: %v", err)
	}
	if err := svc.EnsureIndices(ctx, record.Kinds()...); err != nil {
		cancel()
		t.Fatalf("create indices: %v", err)
	}
	t.Cleanup(func() {
		if err := svc.DropIndices(context.Background(), record.Kinds()...); err != nil {
			t.Logf("drop indices: %v", err)
		}
		_ = backend.Close()
		cancel()
	})

	return &TestEnvironment{Ctx: ctx, Cfg: cfg, Logger: logger, Backend: backend, Service: svc}
}

// RequireMinIO skips the test when snapshot storage is not configured.
func RequireMinIO(t *testing.T, env *TestEnvironment) {
	t.Helper()
	if !env.Cfg.MinIO.Enabled {
		t.Skip("minio not enabled: set CHEMINDEX_MINIO_ENABLED=true")
	}
}

// Loaders turns structure texts into ingest loaders on the in-memory toolkit.
// The toolkit detects the format.
func Loaders(kind record.Kind, texts ...string) []indexing.StructureLoader {
	loaders := make([]indexing.StructureLoader, len(texts))
	for i, text := range texts {
		loaders[i] = indexing.TextLoader(chemfake.ToolkitName, kind, "", text)
	}
	return loaders
}

//Personal.AI order the ending
