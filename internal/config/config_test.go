package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileScalesNumbers(t *testing.T) {
	path := writeConfig(t, `
[backendConfig]
apiURL = "http://cms.local"
websocketURL = "ws://cms.local"
timeout = 3

[reconnectConfig]
initialInterval = 250
maxInterval = "45s"
ackTimeout = 7

[redisConfig]
ttl = 2
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.BackendConfig.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.ReconnectConfig.InitialInterval)
	assert.Equal(t, 45*time.Second, cfg.ReconnectConfig.MaxInterval)
	assert.Equal(t, 7*time.Second, cfg.ReconnectConfig.AckTimeout)
	assert.Equal(t, 2*time.Hour, cfg.RedisConfig.TTL)
	assert.Zero(t, cfg.ReconnectConfig.MaxElapsedTime)

	// 默认值
	assert.Equal(t, 8090, cfg.MainConfig.Port)
	assert.Equal(t, "all", cfg.BackendConfig.Scope)
	assert.Equal(t, "channel", cfg.KafkaConfig.MessageMode)
	assert.Equal(t, 2.0, cfg.ReconnectConfig.Multiplier)
	assert.Same(t, cfg, GetConfig())
}

func TestEnvOverridesToken(t *testing.T) {
	t.Setenv("CMS_CHAT_TOKEN", "from-env")
	t.Setenv("CMS_CHAT_LEAKED_ID", "42")
	path := writeConfig(t, `
[backendConfig]
token = "from-file"
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.BackendConfig.Token)
	assert.Equal(t, int64(42), cfg.BackendConfig.LeakedID)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.BackendConfig.APIURL = "http://cms.local"
		c.BackendConfig.WebsocketURL = "ws://cms.local"
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"missing api url", func(c *Config) { c.BackendConfig.APIURL = "" }, true},
		{"leak without id", func(c *Config) { c.BackendConfig.Scope = "leak" }, true},
		{"leak with id", func(c *Config) { c.BackendConfig.Scope = "leak"; c.BackendConfig.LeakedID = 3 }, false},
		{"unknown scope", func(c *Config) { c.BackendConfig.Scope = "mine" }, true},
		{"kafka without host", func(c *Config) { c.KafkaConfig.MessageMode = "kafka"; c.KafkaConfig.HostPort = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if tt.wantErr {
				assert.Error(t, c.Validate())
			} else {
				assert.NoError(t, c.Validate())
			}
		})
	}
}

func TestCheckServe(t *testing.T) {
	tests := []struct {
		host    string
		secret  string
		wantErr bool
	}{
		{"127.0.0.1", "", false},
		{"localhost", "", false},
		{"::1", "", false},
		{"0.0.0.0", "", true},
		{"192.168.1.20", "", true},
		{"0.0.0.0", "s3cret", false},
	}
	for _, tt := range tests {
		t.Run(tt.host+"/"+tt.secret, func(t *testing.T) {
			c := &Config{}
			c.MainConfig.Host = tt.host
			c.JWTConfig.Secret = tt.secret
			if tt.wantErr {
				assert.Error(t, c.CheckServe())
			} else {
				assert.NoError(t, c.CheckServe())
			}
		})
	}
}
