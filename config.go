package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Query parameters carrying the per-request Jenkins connection.
const (
	paramJenkinsURL   = "jenkins_url"
	paramJenkinsUser  = "jenkins_user"
	paramJenkinsToken = "jenkins_token"
)

const (
	envPrefix      = "JENKINS_MCP"
	configFileName = "jenkins-mcp-proxy"

	defaultListen            = ":10080"
	defaultRequestTimeout    = 30 * time.Second
	defaultLogsTimeout       = 120 * time.Second
	defaultQueueWaitTimeout  = 60 * time.Second
	defaultQueuePollInterval = 2 * time.Second
	defaultBuildPollInterval = 5 * time.Second
	defaultRetryAttempts     = 2

	shutdownTimeout = 10 * time.Second
)

// Config is the process-wide configuration. It never contains per-request
// credentials; the Jenkins* fields are only consulted in stdio mode, where no
// query string exists.
type Config struct {
	Listen string `mapstructure:"listen"`
	Stdio  bool   `mapstructure:"stdio"`
	Debug  bool   `mapstructure:"debug"`

	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`

	JenkinsURL   string `mapstructure:"jenkins-url"`
	JenkinsUser  string `mapstructure:"jenkins-user"`
	JenkinsToken string `mapstructure:"jenkins-token"`

	RequestTimeout   time.Duration `mapstructure:"request-timeout"`
	LogsTimeout      time.Duration `mapstructure:"logs-timeout"`
	QueueWaitTimeout time.Duration `mapstructure:"queue-wait-timeout"`
	RetryAttempts    uint          `mapstructure:"retry-attempts"`
}

// loadConfig builds the process configuration from flags, environment
// variables (JENKINS_MCP_*) and an optional YAML config file, in that order
// of precedence.
func loadConfig(args []string) (Config, error) {
	fs := pflag.NewFlagSet(serverName, pflag.ContinueOnError)
	fs.String("listen", defaultListen, "HTTP listen address for the MCP endpoint")
	fs.Bool("stdio", false, "serve a single MCP session over stdio instead of HTTP")
	fs.Bool("debug", false, "enable debug logging and MCP transport tracing")
	fs.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	fs.String("log-format", "text", "log format (text or json)")
	fs.String("jenkins-url", "", "Jenkins URL (stdio mode only)")
	fs.String("jenkins-user", "", "Jenkins user (stdio mode only)")
	fs.String("jenkins-token", "", "Jenkins API token (stdio mode only)")
	fs.Duration("request-timeout", defaultRequestTimeout, "timeout for Jenkins API requests")
	fs.Duration("logs-timeout", defaultLogsTimeout, "timeout for Jenkins log requests")
	fs.Duration("queue-wait-timeout", defaultQueueWaitTimeout, "how long a triggered build may sit in the queue before start_job returns without a build number")
	fs.Uint("retry-attempts", defaultRetryAttempts, "attempts for idempotent Jenkins requests on transport failures")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, errors.Wrap(err, "binding flags")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/" + configFileName)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, errors.Wrap(err, "reading config file")
		}
	} else {
		log.WithField("file", v.ConfigFileUsed()).Info("Loaded configuration file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshaling configuration")
	}
	return cfg, nil
}

// ConnectionConfig is the validated per-request Jenkins connection. It is
// created fresh for every request, passed by value, and never stored outside
// the request scope.
type ConnectionConfig struct {
	URL   string
	User  string
	Token string
}

// Host returns the Jenkins host for log fields. Never log the token.
func (c ConnectionConfig) Host() string {
	if u, err := url.Parse(c.URL); err == nil && u.Host != "" {
		return u.Host
	}
	return c.URL
}

// resolveConnection validates the connection query parameters and produces a
// ConnectionConfig. It is pure: no logging, no outbound calls.
func resolveConnection(q url.Values) (ConnectionConfig, error) {
	rawURL := strings.TrimSpace(q.Get(paramJenkinsURL))
	if rawURL == "" {
		return ConnectionConfig{}, &ConfigurationError{Param: paramJenkinsURL}
	}
	user := strings.TrimSpace(q.Get(paramJenkinsUser))
	if user == "" {
		return ConnectionConfig{}, &ConfigurationError{Param: paramJenkinsUser}
	}
	token := strings.TrimSpace(q.Get(paramJenkinsToken))
	if token == "" {
		return ConnectionConfig{}, &ConfigurationError{Param: paramJenkinsToken}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ConnectionConfig{}, &ConfigurationError{Param: paramJenkinsURL, Reason: "not a valid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ConnectionConfig{}, &ConfigurationError{Param: paramJenkinsURL, Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return ConnectionConfig{}, &ConfigurationError{Param: paramJenkinsURL, Reason: "missing host"}
	}

	return ConnectionConfig{
		URL:   strings.TrimRight(rawURL, "/"),
		User:  user,
		Token: token,
	}, nil
}

// stdioConnection validates the startup flags through the same resolver the
// HTTP path uses.
func (c Config) stdioConnection() (ConnectionConfig, error) {
	q := url.Values{}
	q.Set(paramJenkinsURL, c.JenkinsURL)
	q.Set(paramJenkinsUser, c.JenkinsUser)
	q.Set(paramJenkinsToken, c.JenkinsToken)
	return resolveConnection(q)
}

type connectionKey struct{}

// contextWithConnection attaches the resolved connection to the request
// context. The context is the only place the config lives between the
// middleware and the per-request server factory.
func contextWithConnection(ctx context.Context, conn ConnectionConfig) context.Context {
	return context.WithValue(ctx, connectionKey{}, conn)
}

func connectionFromContext(ctx context.Context) (ConnectionConfig, bool) {
	conn, ok := ctx.Value(connectionKey{}).(ConnectionConfig)
	return conn, ok
}
