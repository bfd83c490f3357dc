// Package transcription derives time-aligned lyrics from a source file.
//
// The stage is atomic: whisper either yields a full transcript or the stage
// fails with services.ErrTranscriptionFailed. Segment order is whatever the
// model returned; text is trimmed and nothing is re-sorted.
package transcription

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"encore/internal/logging"
	"encore/internal/runner"
	"encore/internal/services"
	"encore/internal/services/whisper"
	"encore/internal/store"
)

const stageName = "transcription"

// Stage runs one transcription per call.
type Stage struct {
	client   *whisper.Client
	workRoot string
	logger   *slog.Logger
}

// New constructs a transcription stage. Scratch output lands in temporary
// directories under workRoot, or the system temp dir when empty.
func New(client *whisper.Client, workRoot string, logger *slog.Logger) *Stage {
	return &Stage{
		client:   client,
		workRoot: workRoot,
		logger:   logging.NewComponentLogger(logger, stageName),
	}
}

// Run transcribes source.
func (s *Stage) Run(ctx context.Context, source string) ([]store.Segment, error) {
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, s.logger)

	if s.workRoot != "" {
		if err := os.MkdirAll(s.workRoot, 0o755); err != nil {
			return nil, services.Wrap(services.ErrIO, stageName, "prepare", "create work root", err)
		}
	}
	workDir, err := os.MkdirTemp(s.workRoot, "whisper-*")
	if err != nil {
		return nil, services.Wrap(services.ErrIO, stageName, "prepare", "create scratch dir", err)
	}
	defer os.RemoveAll(workDir)

	logger.Info("transcription started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("source", source),
		logging.String("model", s.client.Model()),
	)

	tail := runner.NewTail(5)
	jsonPath, outcome := s.client.Transcribe(ctx, source, workDir, func(line string) {
		tail.Add(line)
		logger.Debug("whisper output",
			logging.String(logging.FieldEventType, "tool_output"),
			logging.String("line", line),
		)
	})
	if err := services.OutcomeError(stageName, s.client.Binary(), "run", outcome, tail.String()); err != nil {
		return nil, services.Wrap(services.ErrTranscriptionFailed, stageName, "run", "", err)
	}

	raw, err := whisper.LoadSegments(jsonPath)
	if err != nil {
		return nil, services.Wrap(services.ErrTranscriptionFailed, stageName, "load transcript", "", err)
	}

	segments := make([]store.Segment, 0, len(raw))
	for _, seg := range raw {
		segments = append(segments, store.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	logger.Info("transcription completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("segments", len(segments)),
	)
	return segments, nil
}
