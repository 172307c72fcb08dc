package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/flowsync/pkg/cli"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "flowsync.toml")
	gt.NoError(t, os.WriteFile(configPath, []byte(content), 0o600)).Required()
	return configPath
}

func TestRun_ValidateCommand_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
[sla]
urgent = 3
timezone = "UTC"

[[user]]
id = "lea"
name = "Lea"
email = "lea@example.com"
role = "LEADER"

[[user]]
id = "max"
name = "Max"
email = "max@example.com"
role = "MEMBER"
leader = "lea"
`)

	err := cli.Run(context.Background(), []string{"flowsync", "validate", "--config", configPath}, "test")
	gt.NoError(t, err)
}

func TestRun_ValidateCommand_InvalidConfig(t *testing.T) {
	configPath := writeConfig(t, `
[[user]]
id = "max"
name = "Max"
role = "MEMBER"
leader = "nobody"
`)

	err := cli.Run(context.Background(), []string{"flowsync", "validate", "--config", configPath}, "test")
	gt.Error(t, err)
}

func TestRun_ValidateCommand_MissingConfig(t *testing.T) {
	err := cli.Run(context.Background(), []string{
		"flowsync", "validate", "--config", filepath.Join(t.TempDir(), "missing.toml"),
	}, "test")
	gt.Error(t, err)
}

func TestRun_ValidateCommand_CheckMemoryDB(t *testing.T) {
	configPath := writeConfig(t, `
[[user]]
id = "lea"
name = "Lea"
role = "LEADER"
`)

	err := cli.Run(context.Background(), []string{
		"flowsync", "validate", "--config", configPath, "--check-db", "--repository-backend", "memory",
	}, "test")
	gt.NoError(t, err)
}

func TestRun_SweepCommand_Memory(t *testing.T) {
	err := cli.Run(context.Background(), []string{"flowsync", "sweep", "--repository-backend", "memory"}, "test")
	gt.NoError(t, err)
}

func TestRun_MigrateCommand_MemoryIsNoop(t *testing.T) {
	err := cli.Run(context.Background(), []string{"flowsync", "migrate", "--repository-backend", "memory"}, "test")
	gt.NoError(t, err)
}
