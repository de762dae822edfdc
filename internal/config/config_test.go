package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.Watch.PollInterval)
	assert.Equal(t, "processados", cfg.Watch.ProcessedSubdir)
	assert.Equal(t, 0, cfg.Watch.MaxAttempts)
	assert.Equal(t, JunctionProvision, cfg.Loader.JunctionPolicy)
	assert.Equal(t, DedupTuple, cfg.Loader.HeaderDedup)
	assert.Equal(t, uint(1), cfg.Loader.CompanyID)
	assert.Equal(t, uint(1), cfg.Loader.SaleTypeID)
	assert.Equal(t, uint(1), cfg.Loader.StatusID)
	assert.Equal(t, 1, cfg.Loader.DefaultQuantity)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("WATCH_DIR", "/data/trusted")
	t.Setenv("WATCH_POLL_INTERVAL", "30s")
	t.Setenv("WATCH_MAX_ATTEMPTS", "5")
	t.Setenv("JUNCTION_POLICY", "strict")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, 30*time.Second, cfg.Watch.PollInterval)
	assert.Equal(t, 5, cfg.Watch.MaxAttempts)
	assert.Equal(t, JunctionStrict, cfg.Loader.JunctionPolicy)
	assert.Equal(t, filepath.Join("/data/trusted", "processados"), cfg.Watch.ProcessedDir())
	assert.Equal(t, filepath.Join("/data/trusted", "falhas"), cfg.Watch.FailedDir())
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
database:
  driver: sqlite
  name: vendas.db
watch:
  dir: /srv/exports
loader:
  header_dedup: order
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "vendas.db", cfg.Database.DSN())
	assert.Equal(t, "/srv/exports", cfg.Watch.Dir)
	assert.Equal(t, DedupOrder, cfg.Loader.HeaderDedup)
}

func TestLoad_InvalidPolicy(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JUNCTION_POLICY", "maybe")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JUNCTION_POLICY")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "mysql default port",
			cfg:  DatabaseConfig{Driver: "mysql", Host: "localhost", User: "root", Password: "pw", Name: "vendas"},
			want: "root:pw@tcp(localhost:3306)/vendas?charset=utf8mb4&parseTime=true&loc=Local",
		},
		{
			name: "postgres",
			cfg:  DatabaseConfig{Driver: "postgres", Host: "db", Port: 5433, User: "u", Password: "p", Name: "vendas", SSLMode: "disable"},
			want: "host=db port=5433 user=u password=p dbname=vendas sslmode=disable",
		},
		{
			name: "sqlite",
			cfg:  DatabaseConfig{Driver: "sqlite", Name: "file:test?mode=memory"},
			want: "file:test?mode=memory",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "mysql"},
			Watch:    WatchConfig{PollInterval: time.Second},
			Loader:   LoaderConfig{JunctionPolicy: JunctionProvision, HeaderDedup: DedupTuple, Encoding: "utf-8", DefaultQuantity: 1},
		}
	}
	require.NoError(t, base().Validate())

	c := base()
	c.Database.Driver = "oracle"
	assert.Error(t, c.Validate())

	c = base()
	c.Loader.Encoding = "utf-16"
	assert.Error(t, c.Validate())

	c = base()
	c.Watch.MaxAttempts = -1
	assert.Error(t, c.Validate())

	c = base()
	c.Loader.DefaultQuantity = 0
	assert.Error(t, c.Validate())
}
