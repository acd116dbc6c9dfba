package flowconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/c360/flowmesh/ferrors"
)

// NodeIdentity is a parsed "name@host" pair naming a worker or master
// to connect to at start.
type NodeIdentity struct {
	Name string
	Host string
}

func (n NodeIdentity) String() string {
	return n.Name + "@" + n.Host
}

// ParseNodeIdentity parses "name@host" into a NodeIdentity.
func ParseNodeIdentity(s string) (NodeIdentity, error) {
	name, host, found := strings.Cut(s, "@")
	if !found || name == "" || host == "" {
		return NodeIdentity{}, fmt.Errorf("%q is not a valid name@host identity", s)
	}
	return NodeIdentity{Name: name, Host: host}, nil
}

// Config is a flowmesh node's complete environment-driven configuration.
type Config struct {
	MasterWorkers      []NodeIdentity
	WorkerMaster       *NodeIdentity
	ShutdownWithMaster bool
	Cookie             string
	NodeName           string
	NATSURL            string
	LogLevel           string
	LogFormat          string
	MetricsPort        int
}

const (
	envMasterWorkers      = "FLOWMESH_MASTER_WORKERS"
	envWorkerMaster       = "FLOWMESH_WORKER_MASTER"
	envShutdownWithMaster = "FLOWMESH_SHUTDOWN_WITH_MASTER"
	envCookie             = "FLOWMESH_COOKIE"
	envNodeName           = "FLOWMESH_NODE_NAME"
	envNATSURL            = "FLOWMESH_NATS_URL"
	envLogLevel           = "FLOWMESH_LOG_LEVEL"
	envLogFormat          = "FLOWMESH_LOG_FORMAT"
	envMetricsPort        = "FLOWMESH_METRICS_PORT"
)

// Load reads every FLOWMESH_* variable from the process environment and
// returns the resulting Config. It reports only values it cannot parse
// (a malformed name@host identity, a non-boolean
// FLOWMESH_SHUTDOWN_WITH_MASTER) as a *ferrors.DefinitionError, still
// returning the Config; the field checks are Validate's, called
// separately after loading.
func Load() (*Config, error) {
	cfg := &Config{
		Cookie:      os.Getenv(envCookie),
		NodeName:    os.Getenv(envNodeName),
		NATSURL:     getEnv(envNATSURL, "nats://localhost:4222"),
		LogLevel:    getEnv(envLogLevel, "info"),
		LogFormat:   getEnv(envLogFormat, "json"),
		MetricsPort: getEnvInt(envMetricsPort, 9090),
	}

	var problems []ferrors.Problem

	if raw := os.Getenv(envMasterWorkers); raw != "" {
		for _, tok := range strings.Fields(raw) {
			id, err := ParseNodeIdentity(tok)
			if err != nil {
				problems = append(problems, ferrors.Problem{Path: envMasterWorkers, Message: err.Error()})
				continue
			}
			cfg.MasterWorkers = append(cfg.MasterWorkers, id)
		}
	}

	if raw := os.Getenv(envWorkerMaster); raw != "" {
		id, err := ParseNodeIdentity(raw)
		if err != nil {
			problems = append(problems, ferrors.Problem{Path: envWorkerMaster, Message: err.Error()})
		} else {
			cfg.WorkerMaster = &id
		}
	}

	if raw := os.Getenv(envShutdownWithMaster); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, ferrors.Problem{Path: envShutdownWithMaster, Message: fmt.Sprintf("not a bool: %v", err)})
		} else {
			cfg.ShutdownWithMaster = b
		}
	}

	if len(problems) > 0 {
		return cfg, &ferrors.DefinitionError{Problems: problems}
	}
	return cfg, nil
}

// Validate checks every field, collecting every problem it finds
// rather than returning on the first one, into ferrors.DefinitionError's
// accumulation shape.
func (c *Config) Validate() error {
	var problems []ferrors.Problem

	if c.Cookie == "" {
		problems = append(problems, ferrors.Problem{Path: "cookie", Message: "must not be empty"})
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, ferrors.Problem{Path: "log_level", Message: fmt.Sprintf("invalid level %q", c.LogLevel)})
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		problems = append(problems, ferrors.Problem{Path: "log_format", Message: fmt.Sprintf("invalid format %q", c.LogFormat)})
	}

	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		problems = append(problems, ferrors.Problem{Path: "metrics_port", Message: fmt.Sprintf("out of range: %d", c.MetricsPort)})
	}

	if c.NATSURL == "" {
		problems = append(problems, ferrors.Problem{Path: "nats_url", Message: "must not be empty"})
	}

	for i, id := range c.MasterWorkers {
		if id.Name == "" || id.Host == "" {
			problems = append(problems, ferrors.Problem{Path: fmt.Sprintf("master_workers[%d]", i), Message: "incomplete identity"})
		}
	}

	if len(problems) > 0 {
		return &ferrors.DefinitionError{Problems: problems}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
