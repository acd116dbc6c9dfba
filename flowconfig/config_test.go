package flowconfig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowmesh/ferrors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		envMasterWorkers, envWorkerMaster, envShutdownWithMaster,
		envCookie, envNodeName, envNATSURL, envLogLevel, envLogFormat, envMetricsPort,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(envCookie, "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 9090, cfg.MetricsPort)
	assert.NoError(t, cfg.Validate())
}

func TestLoadParsesNodeIdentities(t *testing.T) {
	clearEnv(t)
	t.Setenv(envCookie, "secret")
	t.Setenv(envMasterWorkers, "w1@host1 w2@host2")
	t.Setenv(envWorkerMaster, "m1@host0")

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.MasterWorkers, 2)
	assert.Equal(t, NodeIdentity{Name: "w1", Host: "host1"}, cfg.MasterWorkers[0])
	assert.Equal(t, NodeIdentity{Name: "w2", Host: "host2"}, cfg.MasterWorkers[1])
	require.NotNil(t, cfg.WorkerMaster)
	assert.Equal(t, "m1@host0", cfg.WorkerMaster.String())
}

func TestLoadRejectsMalformedIdentity(t *testing.T) {
	clearEnv(t)
	t.Setenv(envCookie, "secret")
	t.Setenv(envMasterWorkers, "not-a-valid-identity")

	_, err := Load()
	require.Error(t, err)

	var defErr *ferrors.DefinitionError
	require.True(t, errors.As(err, &defErr))
	assert.NotEmpty(t, defErr.Problems)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := &Config{
		Cookie:      "",
		LogLevel:    "verbose",
		LogFormat:   "xml",
		MetricsPort: 100000,
		NATSURL:     "",
	}

	err := cfg.Validate()
	require.Error(t, err)

	var defErr *ferrors.DefinitionError
	require.True(t, errors.As(err, &defErr))
	assert.GreaterOrEqual(t, len(defErr.Problems), 5)
}

func TestParseNodeIdentity(t *testing.T) {
	id, err := ParseNodeIdentity("worker1@10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "worker1", id.Name)
	assert.Equal(t, "10.0.0.5", id.Host)
	assert.Equal(t, "worker1@10.0.0.5", id.String())

	_, err = ParseNodeIdentity("no-at-sign")
	require.Error(t, err)

	_, err = ParseNodeIdentity("@missing-name")
	require.Error(t, err)
}
