package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIConfig holds the command-line surface: a mode, a command, and the
// rest of the flags, named verbatim.
type CLIConfig struct {
	Mode    string
	Command string

	Cookie             string
	Name               string
	NoLog              bool
	ShutdownWithMaster bool
	WorkingDir         string
	WorkerFile         string
	Stop               bool
}

var validModes = map[string]bool{
	"deploy": true, "local": true, "worker": true, "master": true,
}

var validCommands = map[string]bool{
	"start": true, "start_iex": true, "daemon": true, "daemon_iex": true,
	"remote": true, "restart": true, "stop": true, "pid": true,
}

func parseFlags(args []string) (*CLIConfig, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: flowmeshd <mode> <command> [flags]")
	}

	cfg := &CLIConfig{Mode: args[0], Command: args[1]}
	if !validModes[cfg.Mode] {
		return nil, fmt.Errorf("invalid mode %q (want deploy, local, worker, master)", cfg.Mode)
	}
	if !validCommands[cfg.Command] {
		return nil, fmt.Errorf("invalid command %q", cfg.Command)
	}

	fs := flag.NewFlagSet("flowmeshd", flag.ContinueOnError)
	fs.StringVar(&cfg.Cookie, "cookie", "", "distribution cookie (overrides FLOWMESH_COOKIE)")
	fs.StringVar(&cfg.Name, "name", "", "node name (overrides FLOWMESH_NODE_NAME)")
	fs.BoolVar(&cfg.NoLog, "no-log", false, "suppress log output")
	fs.BoolVar(&cfg.ShutdownWithMaster, "shutdown-with-master", false, "worker exits when its master disconnects")
	fs.StringVar(&cfg.WorkingDir, "working-dir", ".", "directory for the pid file and other runtime state")
	fs.StringVar(&cfg.WorkerFile, "worker-file", "", "file listing name@host workers to connect, one per line, for deploy mode")
	fs.BoolVar(&cfg.Stop, "stop", false, "stop the running instance instead of starting one")

	if err := fs.Parse(args[2:]); err != nil {
		return nil, err
	}

	return cfg, nil
}

func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `flowmeshd - distributed reactive dataflow runtime

Usage: flowmeshd <mode> <command> [flags]

Modes:    deploy | local | worker | master
Commands: start | start_iex | daemon | daemon_iex | remote | restart | stop | pid

Flags:
  --cookie string                distribution cookie
  --name string                  node name
  --no-log                       suppress log output
  --shutdown-with-master         worker exits when its master disconnects
  --working-dir string           runtime state directory (default ".")
  --worker-file string           name@host workers to connect, for deploy mode
  --stop                         stop the running instance
`)
}
