package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ironsheep/redeye-mcp/internal/config"
	"github.com/ironsheep/redeye-mcp/internal/logging"
	"github.com/ironsheep/redeye-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage(fs *pflag.FlagSet) {
	fmt.Println("redeye-mcp - MCP server for red-eye detection and correction")
	fmt.Println()
	fmt.Println("Usage: redeye-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Print(fs.FlagUsages())
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %s_LOG_LEVEL=debug           Enable debug logging\n", config.EnvPrefix)
	fmt.Printf("  %s_DETECT_MIN_RED_VALUE=40   Any config key, dots replaced by underscores\n", config.EnvPrefix)
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

func main() {
	fs := pflag.NewFlagSet("redeye-mcp", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	showVersion := fs.BoolP("version", "v", false, "print version information")
	showHelp := fs.BoolP("help", "h", false, "print this help message")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if *showVersion {
		fmt.Printf("redeye-mcp %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}
	if *showHelp {
		usage(fs)
		return
	}

	configPath, _ := fs.GetString("config")
	cfg, err := config.Load(configPath, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// stdout is for the MCP protocol
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("redeye MCP server starting")

	srv := server.New(cfg, logger)
	if err := srv.Run(); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}
