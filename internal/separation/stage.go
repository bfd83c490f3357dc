// Package separation extracts an instrumental track from a mixed source file
// by driving demucs and following its progress output.
package separation

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"encore/internal/locate"
	"encore/internal/logging"
	"encore/internal/progress"
	"encore/internal/runner"
	"encore/internal/services"
	"encore/internal/services/demucs"
)

const stageName = "separation"

// Stage runs one separation per call.
type Stage struct {
	client  *demucs.Client
	suffix  string
	grammar progress.Grammar
	logger  *slog.Logger
}

// Option customizes a Stage.
type Option func(*Stage)

// WithGrammar replaces the progress grammar applied to tool output.
func WithGrammar(g progress.Grammar) Option {
	return func(s *Stage) {
		if g != nil {
			s.grammar = g
		}
	}
}

// New constructs a separation stage. stemSuffix names the instrumental file
// demucs writes, e.g. "no_vocals.wav".
func New(client *demucs.Client, stemSuffix string, logger *slog.Logger, opts ...Option) *Stage {
	s := &Stage{
		client:  client,
		suffix:  stemSuffix,
		grammar: progress.Percent,
		logger:  logging.NewComponentLogger(logger, stageName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stem returns the name demucs uses for source's output folder.
func Stem(source string) string {
	base := filepath.Base(source)
	if idx := strings.LastIndexByte(base, '.'); idx > 0 {
		return base[:idx]
	}
	return base
}

// Run separates source into outputRoot and returns the instrumental path.
// report receives each strictly higher percentage in emission order.
func (s *Stage) Run(ctx context.Context, source, outputRoot string, report func(int)) (string, error) {
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, s.logger)

	if err := s.client.Probe(ctx); err != nil {
		return "", err
	}

	proc, err := s.client.Start(ctx, source, outputRoot)
	if err != nil {
		var launchErr *runner.LaunchError
		if errors.As(err, &launchErr) {
			return "", services.Wrap(services.ErrToolUnavailable, stageName, "start", s.client.Binary()+" could not be launched", err)
		}
		return "", services.Wrap(services.ErrIO, stageName, "start", "", err)
	}
	defer proc.Close()

	logger.Info("separation started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("source", source),
		logging.String("model", s.client.Model()),
	)

	tracker := &progress.Tracker{}
	sampler := logging.NewProgressSampler(10)
	tail := runner.NewTail(5)
	for line := range proc.Lines() {
		tail.Add(line)
		logger.Debug("demucs output",
			logging.String(logging.FieldEventType, "tool_output"),
			logging.String("line", line),
		)
		percent, ok := s.grammar(line)
		if !ok || !tracker.Observe(percent) {
			continue
		}
		if report != nil {
			report(tracker.Current())
		}
		if sampler.ShouldLog(stageName, tracker.Current()) {
			logger.Info("separation progress", logging.Progress(tracker.Current()))
		}
	}

	outcome := proc.Wait()
	if err := services.OutcomeError(stageName, s.client.Binary(), "run", outcome, tail.String()); err != nil {
		return "", err
	}

	path, err := locate.Locate(outputRoot, s.client.Model(), Stem(source), s.suffix)
	if err != nil {
		return "", services.Wrap(services.ErrOutputNotFound, stageName, "locate", "", err)
	}
	logger.Info("separation completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("instrumental", path),
	)
	return path, nil
}
