package protocol

import (
	"encoding/json"
	"testing"

	"github.com/sitesmith/sitesmith/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeAssignsUniqueIDsAndTimestamps(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		msg, err := Compose(TypePlanRequest, RoleOrchestrator, RolePlanningAgent, &PlanRequest{Requirement: "build a site"})
		require.NoError(t, err)
		assert.False(t, seen[msg.ID], "id %s repeated", msg.ID)
		seen[msg.ID] = true
		assert.False(t, msg.Timestamp.IsZero())
	}
}

func TestComposeRejectsMismatchedPayload(t *testing.T) {
	t.Parallel()

	_, err := Compose(TypeTaskResult, RoleOrchestrator, RolePlanningAgent, &PlanRequest{Requirement: "x"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestComposeRejectsUnknownType(t *testing.T) {
	t.Parallel()

	_, err := Compose(Type("telemetry"), RoleOrchestrator, RolePlanningAgent, &PlanRequest{Requirement: "x"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestComposeRejectsInvalidPayloadShape(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		typ     Type
		payload Payload
	}{
		{"empty requirement", TypePlanRequest, &PlanRequest{}},
		{"empty plan", TypePlanResponse, &PlanResponse{}},
		{"missing task id", TypeTaskAssignment, &TaskAssignment{Task: model.Task{Title: "t"}}},
		{"missing result id", TypeTaskResult, &TaskResult{}},
		{"blank artifact path", TypeEvaluationRequest, &EvaluationRequest{ArtifactPaths: []string{""}}},
		{"score out of range", TypeEvaluationReport, &EvaluationReport{
			Report: model.EvaluationReport{Score: 120, Findings: []string{}, Verdict: model.VerdictPass},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compose(tc.typ, RoleOrchestrator, RolePlanningAgent, tc.payload)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestComposeAcceptsEmptyArtifactSet(t *testing.T) {
	t.Parallel()

	msg, err := Compose(TypeEvaluationRequest, RoleOrchestrator, RoleEvaluationAgent, &EvaluationRequest{})
	require.NoError(t, err)
	req, ok := msg.Payload.(*EvaluationRequest)
	require.True(t, ok)
	assert.Empty(t, req.ArtifactPaths)
}

func TestMessageRoundTripPreservesPayloadType(t *testing.T) {
	t.Parallel()

	original, err := Compose(TypeTaskAssignment, RoleOrchestrator, RoleCodeGenerationAgent, &TaskAssignment{
		Task: model.Task{ID: 2, Title: "Create homepage", TargetPath: "index.html", Dependencies: []int{1}},
		Context: TaskContext{
			ProjectName:     "arxiv-cs-daily",
			RecentArtifacts: []string{"data/papers.json"},
		},
	})
	require.NoError(t, err)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, TypeTaskAssignment, decoded.Type)
	assignment, ok := decoded.Payload.(*TaskAssignment)
	require.True(t, ok, "payload decoded as %T", decoded.Payload)
	assert.Equal(t, 2, assignment.Task.ID)
	assert.Equal(t, "index.html", assignment.Task.TargetPath)
	assert.Equal(t, []string{"data/papers.json"}, assignment.Context.RecentArtifacts)
}

func TestMessageUnmarshalRejectsUnknownType(t *testing.T) {
	t.Parallel()

	raw := `{"id":"m1","type":"telemetry","sender":"Orchestrator","receiver":"PlanningAgent","payload":{},"timestamp":"2026-01-02T15:04:05Z"}`
	var msg Message
	err := json.Unmarshal([]byte(raw), &msg)
	require.Error(t, err)
}

func TestEvaluationReportRoundTrip(t *testing.T) {
	t.Parallel()

	original, err := Compose(TypeEvaluationReport, RoleEvaluationAgent, RoleOrchestrator, &EvaluationReport{
		Report: model.EvaluationReport{Score: 82, Findings: []string{"looks good"}, Verdict: model.VerdictPass},
	})
	require.NoError(t, err)

	data, err := json.Marshal(original)
	require.NoError(t, err)
	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))

	report, ok := decoded.Payload.(*EvaluationReport)
	require.True(t, ok)
	assert.Equal(t, 82, report.Report.Score)
	assert.Equal(t, model.VerdictPass, report.Report.Verdict)
}
