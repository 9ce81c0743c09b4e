package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigAppliesDefaults(t *testing.T) {
	cfg, err := NewConfig(Config{PipelinePath: "pipeline.hcl"})
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Execute)
}

func TestNewConfigKeepsExplicitValues(t *testing.T) {
	cfg, err := NewConfig(Config{
		PipelinePath: "pipeline.hcl",
		LogFormat:    "text",
		LogLevel:     "debug",
		Execute:      true,
	})
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Execute)
}

func TestNewConfigRequiresPipelinePath(t *testing.T) {
	_, err := NewConfig(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PipelinePath")
}

func TestNewConfigRejectsBadLogFormat(t *testing.T) {
	_, err := NewConfig(Config{PipelinePath: "pipeline.hcl", LogFormat: "xml"})
	require.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"subnet-1"}, splitList("subnet-1"))
	assert.Equal(t, []string{"subnet-1", "subnet-2"}, splitList("subnet-1, subnet-2,"))
}

func TestNetworkFromEnv(t *testing.T) {
	t.Setenv(envSubnets, "subnet-a,subnet-b")
	t.Setenv(envSecurityGroups, "sg-1")
	t.Setenv(envIsolation, "true")
	t.Setenv(envEncryptTraffic, "1")

	n := networkFromEnv()
	assert.Equal(t, []string{"subnet-a", "subnet-b"}, n.SubnetIDs)
	assert.Equal(t, []string{"sg-1"}, n.SecurityGroupIDs)
	assert.True(t, n.EnableIsolation)
	assert.True(t, n.EncryptInterContainerTraffic)
	assert.False(t, n.IsZero())
}

func TestNetworkFromEnvUnsetIsZero(t *testing.T) {
	t.Setenv(envSubnets, "")
	t.Setenv(envSecurityGroups, "")
	t.Setenv(envIsolation, "")
	t.Setenv(envEncryptTraffic, "")

	assert.True(t, networkFromEnv().IsZero())
}

func TestNewAppSeedsLoaderNetworkDefaults(t *testing.T) {
	t.Setenv(envSubnets, "subnet-123")

	cfg, err := NewConfig(Config{PipelinePath: "pipeline.hcl"})
	require.NoError(t, err)

	a := NewApp(&strings.Builder{}, cfg)
	assert.Equal(t, []string{"subnet-123"}, a.loader.DefaultNetwork.SubnetIDs)
}
