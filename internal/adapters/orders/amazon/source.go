// Package amazon provides an orders.Source that fetches Amazon order history
// by shelling out to the amazon-order-scraper CLI (npm package).
//
// The CLI must be installed globally or available via npx:
//
//	npm install -g amazon-order-scraper
//
// Authentication is managed by the CLI - run `amazon-scraper --login` to authenticate.
package amazon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/eshaffer321/itemize-reconcile/internal/adapters/orders"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

// ErrLoginRequired is returned when the CLI exits asking for a fresh login.
var ErrLoginRequired = errors.New("amazon login required: run 'amazon-scraper --login' to authenticate")

// defaultLookbackDays is the window used when no year is requested.
const defaultLookbackDays = 14

// validProfilePattern matches alphanumeric, dash, and underscore characters only
var validProfilePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// isValidProfile checks if a profile name is safe to pass to the CLI
func isValidProfile(profile string) bool {
	if profile == "" {
		return true
	}
	return validProfilePattern.MatchString(profile)
}

// Config holds configuration for the Amazon source
type Config struct {
	Command  string // Explicit CLI path; found on PATH when empty
	Profile  string // Profile name for multi-account support
	Headless bool   // Run in headless mode (for automated/cron runs)
}

// Source implements orders.Source over the scraper CLI
type Source struct {
	logger   *slog.Logger
	command  string
	profile  string
	headless bool
}

var _ orders.Source = (*Source)(nil)

// NewSource creates a new Amazon order source
func NewSource(logger *slog.Logger, cfg *Config) *Source {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Source{logger: logger.With(slog.String("source", "amazon"))}
	if cfg != nil {
		// Validate profile name to prevent command injection
		if cfg.Profile != "" {
			if isValidProfile(cfg.Profile) {
				s.profile = cfg.Profile
			} else {
				logger.Warn("invalid profile name ignored (must be alphanumeric, dash, or underscore)",
					slog.String("profile", cfg.Profile))
			}
		}
		s.command = cfg.Command
		s.headless = cfg.Headless
	}
	return s
}

// ListOrders fetches the orders of one calendar year, or the default
// lookback window when year is 0.
func (s *Source) ListOrders(ctx context.Context, year int) ([]model.Order, error) {
	s.logger.Info("fetching orders", slog.Int("year", year))

	output, err := s.executeCLI(ctx, s.buildCLIArgs(year))
	if err != nil {
		return nil, err
	}

	cliOutput, err := ParseCLIOutput(output)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CLI output: %w", err)
	}

	result := make([]model.Order, 0, len(cliOutput.Orders))
	for _, cliOrder := range cliOutput.Orders {
		order, err := ConvertCLIOrder(cliOrder)
		if err != nil {
			s.logger.Warn("failed to parse order, skipping",
				slog.String("order_id", cliOrder.OrderID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if year != 0 && order.Date.Year() != year {
			continue
		}
		result = append(result, order)
	}

	s.logger.Info("fetched orders", slog.Int("year", year), slog.Int("count", len(result)))
	return result, nil
}

// buildCLIArgs builds the command line arguments for amazon-order-scraper
func (s *Source) buildCLIArgs(year int) []string {
	var args []string

	if year != 0 {
		args = append(args,
			"--since", fmt.Sprintf("%04d-01-01", year),
			"--until", fmt.Sprintf("%04d-12-31", year),
		)
	} else {
		args = append(args, "--days", strconv.Itoa(defaultLookbackDays))
	}

	if s.profile != "" {
		args = append(args, "--profile", s.profile)
	}
	if s.headless {
		args = append(args, "--headless")
	}

	// Always output to stdout for parsing
	args = append(args, "--stdout")

	return args
}

// executeCLI executes the scraper CLI and returns its stdout
func (s *Source) executeCLI(ctx context.Context, args []string) ([]byte, error) {
	cliPath, useNpx := s.findCLI()

	var cmd *exec.Cmd
	if useNpx {
		npxArgs := append([]string{"amazon-order-scraper"}, args...)
		cmd = exec.CommandContext(ctx, cliPath, npxArgs...)
		s.logger.Debug("executing CLI via npx", slog.Any("args", npxArgs))
	} else {
		cmd = exec.CommandContext(ctx, cliPath, args...)
		s.logger.Debug("executing CLI directly", slog.String("path", cliPath), slog.Any("args", args))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() == 2 {
				return nil, ErrLoginRequired
			}
			return nil, fmt.Errorf("CLI failed (exit %d): %s", exitErr.ExitCode(), stderr.String())
		}
		return nil, fmt.Errorf("failed to execute CLI: %w", err)
	}

	return stdout.Bytes(), nil
}

// findCLI locates the scraper CLI. It returns the path and whether to use npx.
func (s *Source) findCLI() (string, bool) {
	if s.command != "" {
		return s.command, false
	}
	if path, err := exec.LookPath("amazon-scraper"); err == nil {
		return path, false
	}
	if path, err := exec.LookPath("npx"); err == nil {
		return path, true
	}
	return "npx", true
}

// MerchantPatterns returns payee patterns that identify Amazon charges on a ledger
func MerchantPatterns() []string {
	return []string{
		`amazon`,
		`amzn`,
		`prime video`,
		`whole foods`,
	}
}
