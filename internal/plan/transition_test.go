package plan

import (
	"testing"

	"github.com/sitesmith/sitesmith/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkWalksFullLifecycle(t *testing.T) {
	t.Parallel()

	p := planOf(task(1))

	p, err := Mark(p, 1, model.StatusReady, nil)
	require.NoError(t, err)
	p, err = Mark(p, 1, model.StatusInProgress, nil)
	require.NoError(t, err)

	res := &model.TaskResult{TaskID: 1, ArtifactPaths: []string{"index.html"}}
	p, err = Mark(p, 1, model.StatusCompleted, res)
	require.NoError(t, err)

	got := p.Task(1)
	assert.Equal(t, model.StatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, []string{"index.html"}, got.Result.ArtifactPaths)
}

func TestMarkAllowsFailedRequeue(t *testing.T) {
	t.Parallel()

	p := planOf(task(1))
	p, err := Mark(p, 1, model.StatusInProgress, nil)
	require.NoError(t, err)
	p, err = Mark(p, 1, model.StatusFailed, nil)
	require.NoError(t, err)
	p, err = Mark(p, 1, model.StatusReady, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, p.Task(1).Status)
}

func TestMarkRejectsInvalidTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		from model.TaskStatus
		to   model.TaskStatus
	}{
		{"pending to completed", model.StatusPending, model.StatusCompleted},
		{"completed to ready", model.StatusCompleted, model.StatusReady},
		{"completed to in_progress", model.StatusCompleted, model.StatusInProgress},
		{"failed to completed", model.StatusFailed, model.StatusCompleted},
		{"ready to pending", model.StatusReady, model.StatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tk := task(1)
			tk.Status = tc.from
			_, err := Mark(planOf(tk), 1, tc.to, nil)
			var invalid *InvalidTransitionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tc.from, invalid.From)
			assert.Equal(t, tc.to, invalid.To)
		})
	}
}

func TestMarkUnknownTask(t *testing.T) {
	t.Parallel()

	_, err := Mark(planOf(task(1)), 2, model.StatusReady, nil)
	require.Error(t, err)
}

func TestMarkDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	p := planOf(task(1))
	_, err := Mark(p, 1, model.StatusReady, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, p.Task(1).Status)
}
