package app

import (
	"os"
	"strconv"
	"strings"

	"github.com/specialistvlad/pipegridgo/internal/model"
)

// Environment variables supplying the default network configuration for
// steps whose compute block does not set one. They are typically loaded
// from a .env file by the CLI before the app starts.
const (
	envSubnets        = "PIPEGRID_SUBNET_IDS"
	envSecurityGroups = "PIPEGRID_SECURITY_GROUP_IDS"
	envIsolation      = "PIPEGRID_NETWORK_ISOLATION"
	envEncryptTraffic = "PIPEGRID_ENCRYPT_INTER_CONTAINER_TRAFFIC"
)

// networkFromEnv assembles the default network configuration from the
// environment. Absent variables leave their fields zero.
func networkFromEnv() model.NetworkConfig {
	return model.NetworkConfig{
		SubnetIDs:                    splitList(os.Getenv(envSubnets)),
		SecurityGroupIDs:             splitList(os.Getenv(envSecurityGroups)),
		EnableIsolation:              boolEnv(envIsolation),
		EncryptInterContainerTraffic: boolEnv(envEncryptTraffic),
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func boolEnv(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}
