package demucs

import (
	"context"
	"strings"

	"encore/internal/runner"
	"encore/internal/services"
)

// Defaults mirror the demucs CLI.
const (
	DefaultBinary = "demucs"
	DefaultModel  = "htdemucs"
	TwoStems      = "vocals"
)

// Client invokes demucs.
type Client struct {
	binary string
	model  string
}

// New constructs a client. Empty values fall back to the defaults.
func New(binary, model string) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Client{binary: binary, model: model}
}

// Binary returns the executable name or path.
func (c *Client) Binary() string { return c.binary }

// Model returns the separation model, which is also the output subfolder.
func (c *Client) Model() string { return c.model }

// Probe runs a no-op invocation and reports ErrToolUnavailable when demucs
// cannot be launched or does not answer --help.
func (c *Client) Probe(ctx context.Context) error {
	outcome := runner.Run(ctx, c.binary, []string{"--help"}, "", nil)
	if outcome.OK() {
		return nil
	}
	if outcome.Kind == runner.LaunchFailed {
		return services.OutcomeError("separation", c.binary, "probe", outcome, "")
	}
	return services.Wrap(services.ErrToolUnavailable, "separation", "probe", outcome.String(), outcome.Err)
}

// Args builds the separation argument list.
func (c *Client) Args(source, outputRoot string) []string {
	return []string{"-n", c.model, "--two-stems=" + TwoStems, source, "-o", outputRoot}
}

// Start launches a separation run of source into outputRoot.
func (c *Client) Start(ctx context.Context, source, outputRoot string) (*runner.Process, error) {
	return runner.Start(ctx, c.binary, c.Args(source, outputRoot), "")
}
