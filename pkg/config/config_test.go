package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRES_IN_MINUTES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "HS256", cfg.JWT.Algorithm)
	assert.Equal(t, 30*time.Minute, cfg.JWT.Expiration)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORS.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoadCustomTTL(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRES_IN_MINUTES", "90")
	t.Setenv("JWT_ALGORITHM", "hs512")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, cfg.JWT.Expiration)
	assert.Equal(t, "HS512", cfg.JWT.Algorithm)
}

func TestValidateMissingSecret(t *testing.T) {
	cfg := &Config{JWT: JWTConfig{Algorithm: "HS256"}}
	assert.ErrorIs(t, cfg.Validate(), ErrMissingJWTSecret)
}

func TestValidateRejectsAsymmetricAlgorithm(t *testing.T) {
	cfg := &Config{JWT: JWTConfig{Secret: "x", Algorithm: "RS256"}}
	assert.Error(t, cfg.Validate())
}

func TestDatabaseDSNPrefersURL(t *testing.T) {
	db := DatabaseConfig{URL: "postgres://u:p@db:5432/examprep", Host: "ignored"}
	assert.Equal(t, "postgres://u:p@db:5432/examprep", db.DSN())

	db = DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable", db.DSN())
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "https://b.app"}, splitAndTrim(" a , https://b.app/ ,,"))
}
