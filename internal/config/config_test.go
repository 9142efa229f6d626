package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATA_SOURCE", "")
	t.Setenv("DEFAULT_TOP_N", "")
	t.Setenv("DONORS_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceCSV, cfg.DataSource)
	assert.Equal(t, "data/donors.csv", cfg.DonorsPath)
	assert.Equal(t, 5, cfg.DefaultTopN)
	assert.False(t, cfg.UsesDatabase())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATA_SOURCE", "Postgres")
	t.Setenv("DEFAULT_TOP_N", "0")
	t.Setenv("DONORS_PATH", "s3://bank/donors.csv")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.UsesDatabase())
	assert.Equal(t, 5, cfg.DefaultTopN)
	assert.Equal(t, "s3://bank/donors.csv", cfg.DonorsPath)
}

func TestDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg := &Config{DBHost: "localhost", DBPort: 5432, DBName: "blood_bank", DBUser: "postgres", DBPassword: "pw"}
	assert.Equal(t, "postgres://postgres:pw@localhost:5432/blood_bank?sslmode=disable", cfg.DatabaseURL())

	cfg.DBHost = "db.internal"
	assert.Contains(t, cfg.DatabaseURL(), "sslmode=require")

	t.Setenv("DATABASE_URL", "postgres://override")
	assert.Equal(t, "postgres://override", cfg.DatabaseURL())
}
