// Package ffmpeg wraps the two ffmpeg invocations used on vocal takes:
// a denoise filter chain and a two-input mix against an instrumental.
package ffmpeg

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"encore/internal/logging"
	"encore/internal/runner"
	"encore/internal/services"
)

// Defaults for the ffmpeg filter chains.
const (
	DefaultBinary        = "ffmpeg"
	DefaultDenoiseFilter = "highpass=f=80,afftdn=nf=-25,dynaudnorm"
	DefaultMixFilter     = "amix=inputs=2:duration=shortest"
)

// Client invokes ffmpeg.
type Client struct {
	binary        string
	denoiseFilter string
	mixFilter     string
	logger        *slog.Logger
}

// New constructs a client. Empty values fall back to the defaults.
func New(binary, denoiseFilter, mixFilter string, logger *slog.Logger) *Client {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	if strings.TrimSpace(denoiseFilter) == "" {
		denoiseFilter = DefaultDenoiseFilter
	}
	if strings.TrimSpace(mixFilter) == "" {
		mixFilter = DefaultMixFilter
	}
	return &Client{
		binary:        binary,
		denoiseFilter: denoiseFilter,
		mixFilter:     mixFilter,
		logger:        logging.NewComponentLogger(logger, "ffmpeg"),
	}
}

// DenoiseArgs builds the denoise invocation.
func (c *Client) DenoiseArgs(input, output string) []string {
	return []string{"-i", input, "-af", c.denoiseFilter, "-y", output}
}

// MixArgs builds the two-input mix invocation.
func (c *Client) MixArgs(instrumental, vocal, output string) []string {
	return []string{"-i", instrumental, "-i", vocal, "-filter_complex", c.mixFilter, "-y", output}
}

// Denoise filters input into output.
func (c *Client) Denoise(ctx context.Context, input, output string) error {
	return c.run(ctx, "denoise", c.DenoiseArgs(input, output), output)
}

// Mix combines instrumental and vocal into output, truncated to the shorter input.
func (c *Client) Mix(ctx context.Context, instrumental, vocal, output string) error {
	return c.run(ctx, "mix", c.MixArgs(instrumental, vocal, output), output)
}

func (c *Client) run(ctx context.Context, operation string, args []string, output string) error {
	logger := logging.WithContext(ctx, c.logger)
	tail := runner.NewTail(3)
	outcome := runner.Run(ctx, c.binary, args, "", func(line string) {
		tail.Add(line)
		logger.Debug("ffmpeg output",
			logging.String(logging.FieldEventType, "tool_output"),
			logging.String("operation", operation),
			logging.String("line", line),
		)
	})
	if err := services.OutcomeError("recording", c.binary, operation, outcome, tail.String()); err != nil {
		return err
	}
	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrOutputNotFound, "recording", operation, "ffmpeg produced no output at "+output, err)
	}
	return nil
}
