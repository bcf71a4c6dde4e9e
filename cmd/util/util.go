package util

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/quantadb/quanta-go/auth"
	"github.com/quantadb/quanta-go/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds common cluster connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "hosts"
	cmd.PersistentFlags().String(key, "localhost:7000", WrapString("Cluster endpoints as a comma-separated list of host:port pairs"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 5000, WrapString("Request timeout in milliseconds"))

	key = "username"
	cmd.PersistentFlags().String(key, "", WrapString("Username to authenticate with"))

	key = "password"
	cmd.PersistentFlags().String(key, "", WrapString("Password to authenticate with (prefer QUANTA_PASSWORD over the flag)"))

	key = "token"
	cmd.PersistentFlags().String(key, "", WrapString("Pre-issued auth token, used instead of a password when set"))

	key = "tls"
	cmd.PersistentFlags().Bool(key, false, WrapString("Connect over TLS"))

	key = "tls-server-name"
	cmd.PersistentFlags().String(key, "", WrapString("Expected server name on the TLS certificate"))

	key = "tls-skip-verify"
	cmd.PersistentFlags().Bool(key, false, WrapString("Skip TLS certificate verification (testing only)"))

	key = "compression"
	cmd.PersistentFlags().Bool(key, false, WrapString("Compress message payloads above the compression threshold"))

	key = "compression-threshold"
	cmd.PersistentFlags().Int(key, 1024, WrapString("Minimum payload size in bytes before compression kicks in"))

	key = "pool-min-conns"
	cmd.PersistentFlags().Int(key, 1, WrapString("Connections opened eagerly on connect"))

	key = "pool-max-conns"
	cmd.PersistentFlags().Int(key, 20, WrapString("Maximum simultaneous connections"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry a failed request"))

	key = "retry-backoff"
	cmd.PersistentFlags().Int(key, 100, WrapString("Initial retry backoff in milliseconds, doubled per attempt"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("Log level (debug, info, warn, error)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("quanta")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *config.ClientConfig {
	conf := config.DefaultConfig()

	conf.Hosts = strings.Split(viper.GetString("hosts"), ",")
	conf.TimeoutMs = uint64(viper.GetInt("timeout"))
	conf.UseTLS = viper.GetBool("tls")
	conf.TLSServerName = viper.GetString("tls-server-name")
	conf.TLSSkipVerify = viper.GetBool("tls-skip-verify")
	conf.CompressionEnabled = viper.GetBool("compression")
	conf.CompressionThreshold = viper.GetInt("compression-threshold")
	conf.Pool.MinConnections = viper.GetInt("pool-min-conns")
	conf.Pool.MaxConnections = viper.GetInt("pool-max-conns")
	conf.Retry.MaxRetries = viper.GetInt("retries")
	conf.Retry.InitialBackoffMs = uint64(viper.GetInt("retry-backoff"))
	conf.LogLevel = viper.GetString("log-level")

	return conf
}

// GetCredentials reads auth credentials from viper. A token takes
// precedence over a password.
func GetCredentials() auth.Credentials {
	username := viper.GetString("username")
	if token := viper.GetString("token"); token != "" {
		return auth.NewTokenCredentials(username, token)
	}
	return auth.NewPasswordCredentials(username, viper.GetString("password"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
