package jobs

import (
	"fmt"
	"reflect"
)

// validateCommit checks next against the previously committed prev. A nil
// prev means next is being created.
func validateCommit(prev, next *Job) error {
	if next.ID == "" {
		return invariant("job id is required")
	}
	if prev == nil {
		if next.Status != StatusQueued && next.Status != StatusFailed {
			return fmt.Errorf("%w: new job must start queued, got %s", ErrIllegalTransition, next.Status)
		}
		return validateShape(next)
	}

	if next.ID != prev.ID {
		return invariant("id changed from %s to %s", prev.ID, next.ID)
	}
	if !CanTransition(prev.Status, next.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, prev.Status, next.Status)
	}
	if err := validateShape(next); err != nil {
		return err
	}
	if !next.CreatedAt.Equal(prev.CreatedAt) {
		return invariant("createdAt is immutable")
	}
	if len(next.Logs) < len(prev.Logs) {
		return invariant("logs shrank from %d to %d", len(prev.Logs), len(next.Logs))
	}
	for i := range prev.Logs {
		if next.Logs[i].Message != prev.Logs[i].Message || !next.Logs[i].Time.Equal(prev.Logs[i].Time) {
			return invariant("log entry %d was rewritten", i)
		}
	}
	if len(prev.Transcript) > 0 && !reflect.DeepEqual(prev.Transcript, next.Transcript) {
		return invariant("transcript is immutable once set")
	}
	if len(next.Candidates) < len(prev.Candidates) {
		return invariant("candidates shrank")
	}
	for i := range prev.Candidates {
		if !reflect.DeepEqual(prev.Candidates[i], next.Candidates[i]) {
			return invariant("existing candidates were modified")
		}
	}
	if prev.Details != nil && !reflect.DeepEqual(prev.Details, next.Details) {
		return invariant("details are set once")
	}
	if prev.DraftURL != "" && next.DraftURL != prev.DraftURL {
		return invariant("draftUrl is set once")
	}
	if prev.FinalURL != "" && next.FinalURL != prev.FinalURL {
		return invariant("finalUrl is set once")
	}
	return nil
}

// validateShape checks field combinations that must hold in every snapshot.
func validateShape(j *Job) error {
	if (j.Status == StatusFailed) != (j.Error != nil) {
		return invariant("error must be set exactly when status is failed")
	}
	if len(j.Candidates) > 0 && j.Details == nil {
		return invariant("candidates require completed analysis")
	}
	if j.FinalURL != "" && j.DraftURL == "" {
		return invariant("finalUrl requires draftUrl")
	}
	if j.DraftURL != "" && statusIndex[j.Status] < statusIndex[StatusDraftReady] && j.Status != StatusFailed {
		return invariant("draftUrl set before draft_ready")
	}
	if j.FinalURL != "" && j.Status != StatusDone && j.Status != StatusFailed {
		return invariant("finalUrl set before done")
	}
	if j.AwaitingRender && j.Status != StatusAnalyzing {
		return invariant("awaitingRender is only valid while analyzing")
	}
	return nil
}
