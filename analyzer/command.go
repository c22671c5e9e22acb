package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/aMonteSl/codexr-mcp/model"
	"golang.org/x/time/rate"
)

// FilePlaceholder in a command argument is replaced by the file's absolute path.
const FilePlaceholder = "{file}"

// Command runs an external analyzer process per file and decodes the metrics
// it prints as JSON on stdout.
type Command struct {
	name    string
	args    []string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewCommand creates a command analyzer from argv. When no argument contains
// the {file} placeholder the path is appended as the last argument.
// launchesPerSecond > 0 limits how often processes are started.
func NewCommand(argv []string, launchesPerSecond float64, logger *slog.Logger) (*Command, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("analyzer command is empty")
	}
	c := &Command{
		name:   argv[0],
		args:   append([]string(nil), argv[1:]...),
		logger: logger,
	}
	if launchesPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(launchesPerSecond), 1)
	}
	return c, nil
}

// Analyze runs the command for one file.
func (c *Command) Analyze(ctx context.Context, absolutePath string) (*model.CodeMetrics, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	args := c.expandArgs(absolutePath)
	cmd := exec.CommandContext(ctx, c.name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	c.logger.Debug("analyzer command finished", "command", c.name, "file", absolutePath, "duration", time.Since(start))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("analyzer command %s failed: %w: %s", c.name, err, strings.TrimSpace(stderr.String()))
	}

	var metrics model.CodeMetrics
	if err := json.Unmarshal(stdout.Bytes(), &metrics); err != nil {
		return nil, fmt.Errorf("decoding analyzer output for %s: %w", absolutePath, err)
	}
	return &metrics, nil
}

func (c *Command) expandArgs(absolutePath string) []string {
	args := make([]string, 0, len(c.args)+1)
	replaced := false
	for _, arg := range c.args {
		if strings.Contains(arg, FilePlaceholder) {
			arg = strings.ReplaceAll(arg, FilePlaceholder, absolutePath)
			replaced = true
		}
		args = append(args, arg)
	}
	if !replaced {
		args = append(args, absolutePath)
	}
	return args
}
