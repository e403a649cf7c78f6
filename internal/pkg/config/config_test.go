package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content map[string]interface{}) string {
	t.Helper()
	data, err := yaml.Marshal(content)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, map[string]interface{}{
		"server": map[string]interface{}{"port": 9090},
		"database": map[string]interface{}{
			"driver":   "postgres",
			"host":     "db",
			"port":     5432,
			"database": "buildbuddy",
			"username": "bb",
			"password": "secret",
		},
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 14, cfg.Invite.ExpireDays)
	assert.Equal(t, "memory", cfg.Realtime.Driver)
	assert.Equal(t, 16, cfg.Realtime.Buffer)
	assert.Equal(t, "0 */5 * * * *", cfg.Scheduler.InviteSweepCron)
	assert.Same(t, cfg, GlobalConfig)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, map[string]interface{}{
		"invite": map[string]interface{}{"accept_url": "https://app.example.com"},
	})
	t.Setenv("INVITE_EXPIRE_DAYS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Invite.ExpireDays)
	assert.Equal(t, "https://app.example.com", cfg.Invite.AcceptURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	mysqlCfg := DatabaseConfig{Driver: "mysql", Host: "127.0.0.1", Port: 3306, Database: "bb", Username: "root", Password: "pw"}
	assert.Equal(t, "root:pw@tcp(127.0.0.1:3306)/bb?charset=utf8mb4&parseTime=True&loc=UTC", mysqlCfg.GetDSN())

	pgCfg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, Database: "bb", Username: "u", Password: "p", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=bb sslmode=disable TimeZone=UTC", pgCfg.GetDSN())
}
