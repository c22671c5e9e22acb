// Package register adds the codexr MCP server to an MCP client configuration
// file, either per project (.mcp.json) or per user (~/.claude.json).
package register

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Scope selects which client configuration file is written.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeUser    Scope = "user"
)

// ServeCommand is the subcommand MCP clients launch.
const ServeCommand = "serve"

// ParseScope validates a scope name.
func ParseScope(name string) (Scope, error) {
	switch Scope(name) {
	case ScopeProject, ScopeUser:
		return Scope(name), nil
	default:
		return "", fmt.Errorf("unknown scope %q (must be %q or %q)", name, ScopeProject, ScopeUser)
	}
}

// Options describes one registration.
type Options struct {
	ServerName string
	Scope      Scope
	// Directory holds .mcp.json for project scope; empty means the working directory.
	Directory string
	// BinaryPath defaults to the running executable.
	BinaryPath string
	// ServerArgs are appended after "serve", e.g. roots or flags.
	ServerArgs []string
}

type mcpServerEntry struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Register writes or updates the server entry and returns the config file path.
// An empty ServerName is derived from the binary name.
func Register(options Options) (string, error) {
	if _, err := ParseScope(string(options.Scope)); err != nil {
		return "", err
	}

	binaryPath := options.BinaryPath
	if binaryPath == "" {
		var err error
		if binaryPath, err = detectBinaryPath(); err != nil {
			return "", err
		}
	}
	serverName := options.ServerName
	if serverName == "" {
		serverName = DeriveServerName(binaryPath)
	}

	configPath, err := resolveConfigPath(options.Scope, options.Directory)
	if err != nil {
		return "", err
	}

	serverArgs := append([]string{ServeCommand}, options.ServerArgs...)
	if err := writeConfig(configPath, serverName, buildEntry(binaryPath, serverArgs)); err != nil {
		return "", err
	}
	return configPath, nil
}

// DeriveServerName extracts a server name from a binary path by stripping .exe and -mcp suffixes.
func DeriveServerName(binaryPath string) string {
	name := filepath.Base(binaryPath)
	name = strings.TrimSuffix(name, ".exe")
	name = strings.TrimSuffix(name, "-mcp")
	return name
}

// SplitArgs separates positional arguments from those after "--". dashAt is the
// index of the first argument after "--", or -1 when there was none (cobra's
// ArgsLenAtDash).
func SplitArgs(args []string, dashAt int) (positional []string, serverArgs []string) {
	if dashAt < 0 || dashAt > len(args) {
		return args, nil
	}
	return args[:dashAt], args[dashAt:]
}

func detectBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("getting executable path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %s: %w", exe, err)
	}
	return resolved, nil
}

func resolveConfigPath(scope Scope, directory string) (string, error) {
	if scope == ScopeProject {
		if directory == "" {
			directory = "."
		}
		absDir, err := filepath.Abs(directory)
		if err != nil {
			return "", fmt.Errorf("resolving directory %s: %w", directory, err)
		}
		return filepath.Join(absDir, ".mcp.json"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".claude.json"), nil
}

func buildEntry(binaryPath string, serverArgs []string) mcpServerEntry {
	if runtime.GOOS == "windows" {
		return mcpServerEntry{
			Command: "cmd",
			Args:    append([]string{"/C", binaryPath}, serverArgs...),
		}
	}
	return mcpServerEntry{Command: binaryPath, Args: serverArgs}
}

// writeConfig merges the entry into the file's mcpServers object, keeping
// every other key as it was.
func writeConfig(configPath string, serverName string, entry mcpServerEntry) error {
	config := map[string]any{}
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("parsing existing config %s: %w", configPath, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("reading config %s: %w", configPath, err)
	}

	servers, ok := config["mcpServers"].(map[string]any)
	if !ok {
		if _, present := config["mcpServers"]; present {
			return fmt.Errorf("mcpServers in %s is not an object", configPath)
		}
		servers = map[string]any{}
		config["mcpServers"] = servers
	}
	servers[serverName] = entry

	output, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	output = append(output, '\n')
	return writeFileAtomic(configPath, output)
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".mcp-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file %s: %w", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
