package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// homeEnvVar overrides the lnfee home directory (default ~/.lnfee).
const homeEnvVar = "LNFEE_HOME"

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return true
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// resolveHome returns the lnfee home directory.
func resolveHome() (string, error) {
	if dir := os.Getenv(homeEnvVar); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".lnfee"), nil
}

func main() {
	// Handle --help/--version before opening anything
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	baseDir, err := resolveHome()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	env, err := newEnv(context.Background(), baseDir, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	err = newCLIApp(env).Run(os.Args)
	env.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
