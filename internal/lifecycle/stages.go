// Package lifecycle holds the fixed stage sequence an opportunity moves through
// and the position/progress calculations the dashboard renders from it.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
)

// Stages is the ordered lifecycle. Index in this slice is the stage position.
var Stages = []domain.Stage{
	domain.StageIntake,
	domain.StageProduct,
	domain.StageEngineering,
	domain.StagePlatform,
	domain.StageImplementation,
	domain.StageSupport,
}

// PositionOf returns the index of stage in Stages.
func PositionOf(stage domain.Stage) (int, error) {
	for i, s := range Stages {
		if s == stage {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", domain.ErrUnknownStage, stage)
}

// Valid reports whether stage is part of the lifecycle.
func Valid(stage domain.Stage) bool {
	_, err := PositionOf(stage)
	return err == nil
}

// ProgressView marks every stage before current as completed, current as
// current and the rest as upcoming.
func ProgressView(current domain.Stage) ([]domain.StageProgress, error) {
	pos, err := PositionOf(current)
	if err != nil {
		return nil, err
	}

	view := make([]domain.StageProgress, len(Stages))
	for i, s := range Stages {
		state := domain.StageUpcoming
		switch {
		case i < pos:
			state = domain.StageCompleted
		case i == pos:
			state = domain.StageCurrent
		}
		view[i] = domain.StageProgress{Stage: s, State: state}
	}
	return view, nil
}

// Next returns the stage after s. ok is false at the last stage or for an
// unknown stage.
func Next(s domain.Stage) (next domain.Stage, ok bool) {
	pos, err := PositionOf(s)
	if err != nil || pos == len(Stages)-1 {
		return "", false
	}
	return Stages[pos+1], true
}

// CheckTransition validates a stage move. Any known target is accepted,
// including jumps and rollbacks; only the target has to belong to the lifecycle.
func CheckTransition(from, to domain.Stage) error {
	if _, err := PositionOf(to); err != nil {
		return err
	}
	if from != "" {
		if _, err := PositionOf(from); err != nil {
			return err
		}
	}
	return nil
}

// TimeInStage is how long o has been in its current stage at now.
func TimeInStage(o domain.Opportunity, now time.Time) time.Duration {
	entered := o.StageEnteredAt
	if entered.IsZero() {
		entered = o.CreatedAt
	}
	if entered.IsZero() || now.Before(entered) {
		return 0
	}
	return now.Sub(entered)
}

// Annotate builds the rendering view of o.
func Annotate(o domain.Opportunity, now time.Time) (domain.OpportunityView, error) {
	pos, err := PositionOf(o.Stage)
	if err != nil {
		return domain.OpportunityView{}, err
	}
	progress, err := ProgressView(o.Stage)
	if err != nil {
		return domain.OpportunityView{}, err
	}
	return domain.OpportunityView{
		Opportunity: o,
		Position:    pos,
		Progress:    progress,
		TimeInStage: int64(TimeInStage(o, now) / time.Second),
	}, nil
}
