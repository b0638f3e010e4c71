package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewStageState(t *testing.T) {
	st := NewStageState("subject-1", "research", 0)

	assert.Equal(t, StatusPending, st.Status)
	assert.Equal(t, 1, st.MaxIterations)
	assert.Empty(t, st.Results)
	assert.False(t, st.Status.Terminal())
}

func TestStageState_CloneIsolation(t *testing.T) {
	st := NewStageState("subject-1", "research", 3)
	st.SetResult("score", 0.5)
	st.SetContext("input", "desc")
	st.Error = &StageError{Stage: "research", Kind: KindValidation}

	c := st.Clone()
	c.SetResult("score", 0.9)
	c.Error.Step = "changed"

	v, _ := st.Result("score")
	assert.Equal(t, 0.5, v)
	assert.Empty(t, st.Error.Step)
}

func TestStageState_Duration(t *testing.T) {
	st := NewStageState("s", "icp", 1)
	assert.Zero(t, st.Duration())

	st.StartedAt = time.Unix(100, 0)
	st.CompletedAt = time.Unix(103, 0)
	assert.Equal(t, 3*time.Second, st.Duration())
}

func TestResultOf(t *testing.T) {
	st := NewStageState("s", "positioning", 1)
	st.Status = StatusCompleted
	st.SetResult("validation_score", 0.7)

	res := ResultOf(st, []Warning{{Kind: WarningUnsupportedClaim, Stage: "positioning"}})
	res.Results["validation_score"] = 0.1

	v, _ := st.Result("validation_score")
	assert.Equal(t, 0.7, v)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Len(t, res.Warnings, 1)
}
