package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"murmur/internal/domain"
	"murmur/internal/ports"
)

type transcriptFinalizer struct {
	rules     ports.RulesEngine
	committer ports.TextCommitter
	events    ports.EventSink
	logger    *slog.Logger
}

func newTranscriptFinalizer(rules ports.RulesEngine, committer ports.TextCommitter, events ports.EventSink, logger *slog.Logger) transcriptFinalizer {
	return transcriptFinalizer{rules: rules, committer: committer, events: events, logger: logger}
}

// Finalize applies rules to raw and hands the result to the committer.
// Neither a rules failure nor an injection failure stops the commit: the
// former falls back to the raw text, the latter is only reported.
func (f transcriptFinalizer) Finalize(ctx context.Context, sessionID string, path domain.CommitPath, raw string) domain.Commit {
	final := raw
	if raw != "" && f.rules != nil {
		transformed, err := f.rules.Apply(raw)
		if err != nil {
			f.logger.Warn("rules failed; committing raw transcript", "session_id", sessionID, "err", err)
			f.events.SessionError(domain.ErrorCodeRules, err.Error())
		} else {
			final = transformed
		}
	}

	if err := f.committer.Commit(ctx, final); err != nil {
		f.logger.Error("text injection failed", "session_id", sessionID, "err", err)
		f.events.SessionError(domain.ErrorCodeInjection, fmt.Sprintf("failed to insert transcript: %v", err))
	}

	commit := domain.Commit{
		SessionID: sessionID,
		Path:      path,
		Raw:       raw,
		Final:     final,
	}
	f.events.FinalTranscript(commit)
	return commit
}
