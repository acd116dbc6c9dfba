// Command flowmeshd is the flowmesh node entry point: it starts a
// master, a worker, a single local node, or (in deploy mode) a master
// plus the workers named in a worker file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/flowmesh/flowconfig"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\n%s\n", r, buf[:n])
			os.Exit(2)
		}
	}()

	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cliCfg, err := parseFlags(args)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		printUsage()
		return 1
	}

	cfg, err := flowconfig.Load()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "flowmeshd: invalid configuration:", err)
		return 1
	}
	if cliCfg.Cookie != "" {
		cfg.Cookie = cliCfg.Cookie
	}
	if cliCfg.Name != "" {
		cfg.NodeName = cliCfg.Name
	}
	if cliCfg.ShutdownWithMaster {
		cfg.ShutdownWithMaster = true
	}
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "flowmeshd: invalid configuration:", err)
		return 1
	}

	if cliCfg.Stop || cliCfg.Command == "stop" {
		if err := stopRunningInstance(cliCfg.WorkingDir); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "flowmeshd: stop:", err)
			return 1
		}
		return 0
	}

	if cliCfg.Command == "pid" {
		pid, err := readPID(cliCfg.WorkingDir)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "flowmeshd: pid:", err)
			return 2
		}
		fmt.Println(pid)
		return 0
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat, cliCfg.NoLog)
	slog.SetDefault(logger)

	// start_iex/daemon_iex/remote have no interactive shell to attach to
	// in this port; they degrade to a plain start.
	switch cliCfg.Command {
	case "start", "start_iex", "daemon", "daemon_iex", "remote", "restart":
		// fall through to start the node below
	default:
		_, _ = fmt.Fprintln(os.Stderr, "flowmeshd: unsupported command:", cliCfg.Command)
		return 1
	}

	if err := writePIDFile(cliCfg.WorkingDir); err != nil {
		logger.Warn("failed to write pid file", "error", err)
	}
	defer removePIDFile(cliCfg.WorkingDir)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var runErr error
	switch cliCfg.Mode {
	case "master":
		runErr = runMaster(ctx, cfg, logger)
	case "worker":
		runErr = runWorker(ctx, cfg, logger)
	case "local":
		runErr = runLocal(ctx, cfg, logger)
	case "deploy":
		runErr = runDeploy(ctx, cfg, cliCfg.WorkerFile, logger)
	}

	if runErr != nil {
		logger.Error("flowmeshd: fatal", "error", runErr)
		return 1
	}
	return 0
}
