// Package protocol defines the immutable message envelope exchanged between
// the orchestrator and its agents.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sitesmith/sitesmith/internal/model"
)

// Type identifies the kind of message. The enumeration is closed: Compose
// rejects any other value.
type Type string

const (
	TypePlanRequest       Type = "plan_request"
	TypePlanResponse      Type = "plan_response"
	TypeTaskAssignment    Type = "task_assignment"
	TypeTaskResult        Type = "task_result"
	TypeEvaluationRequest Type = "evaluation_request"
	TypeEvaluationReport  Type = "evaluation_report"
)

// Role identifies a party in the exchange.
type Role string

const (
	RoleOrchestrator        Role = "Orchestrator"
	RolePlanningAgent       Role = "PlanningAgent"
	RoleCodeGenerationAgent Role = "CodeGenerationAgent"
	RoleEvaluationAgent     Role = "EvaluationAgent"
)

// ValidationError reports a malformed message at compose time.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message: %s", e.Reason)
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Payload is the closed set of per-type message bodies. Implementations live
// in this package only.
type Payload interface {
	PayloadType() Type
	validate() error
}

// Message is the envelope exchanged between any two parties. Messages are
// write-once values: replies are new messages correlated by task id inside
// the payload, never mutations of the original.
type Message struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Sender    Role      `json:"sender"`
	Receiver  Role      `json:"receiver"`
	Payload   Payload   `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Compose builds a message with a fresh unique id and the current UTC time.
// It fails with a *ValidationError when typ is outside the closed
// enumeration or payload does not match the shape required for typ.
func Compose(typ Type, sender, receiver Role, payload Payload) (Message, error) {
	switch typ {
	case TypePlanRequest, TypePlanResponse, TypeTaskAssignment,
		TypeTaskResult, TypeEvaluationRequest, TypeEvaluationReport:
	default:
		return Message{}, validationErrorf("unknown type %q", typ)
	}
	if sender == "" || receiver == "" {
		return Message{}, validationErrorf("sender and receiver are required")
	}
	if payload == nil {
		return Message{}, validationErrorf("payload is required for %q", typ)
	}
	if payload.PayloadType() != typ {
		return Message{}, validationErrorf("payload shape %q does not match type %q", payload.PayloadType(), typ)
	}
	if err := payload.validate(); err != nil {
		return Message{}, err
	}
	return Message{
		ID:        uuid.NewString(),
		Type:      typ,
		Sender:    sender,
		Receiver:  receiver,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}, nil
}

// UnmarshalJSON decodes the envelope and dispatches the payload on the
// message type, so messages round-trip through the snapshot.
func (m *Message) UnmarshalJSON(data []byte) error {
	var envelope struct {
		ID        string          `json:"id"`
		Type      Type            `json:"type"`
		Sender    Role            `json:"sender"`
		Receiver  Role            `json:"receiver"`
		Payload   json.RawMessage `json:"payload"`
		Timestamp time.Time       `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decode message envelope: %w", err)
	}

	payload, err := decodePayload(envelope.Type, envelope.Payload)
	if err != nil {
		return err
	}

	m.ID = envelope.ID
	m.Type = envelope.Type
	m.Sender = envelope.Sender
	m.Receiver = envelope.Receiver
	m.Payload = payload
	m.Timestamp = envelope.Timestamp
	return nil
}

func decodePayload(typ Type, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		return nil, validationErrorf("missing payload for %q", typ)
	}
	var payload Payload
	switch typ {
	case TypePlanRequest:
		payload = &PlanRequest{}
	case TypePlanResponse:
		payload = &PlanResponse{}
	case TypeTaskAssignment:
		payload = &TaskAssignment{}
	case TypeTaskResult:
		payload = &TaskResult{}
	case TypeEvaluationRequest:
		payload = &EvaluationRequest{}
	case TypeEvaluationReport:
		payload = &EvaluationReport{}
	default:
		return nil, validationErrorf("unknown type %q", typ)
	}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", typ, err)
	}
	return payload, nil
}

// PlanRequest asks the planner to decompose a requirement.
type PlanRequest struct {
	Requirement string `json:"requirement"`
}

func (*PlanRequest) PayloadType() Type { return TypePlanRequest }

func (p *PlanRequest) validate() error {
	if p.Requirement == "" {
		return validationErrorf("plan_request requires a requirement")
	}
	return nil
}

// PlanResponse carries the planner's decomposition back to the orchestrator.
type PlanResponse struct {
	Plan model.Plan `json:"plan"`
	// Fallback marks a plan substituted after a structural planner failure.
	Fallback bool `json:"fallback,omitempty"`
}

func (*PlanResponse) PayloadType() Type { return TypePlanResponse }

func (p *PlanResponse) validate() error {
	if len(p.Plan.Tasks) == 0 {
		return validationErrorf("plan_response requires at least one task")
	}
	return nil
}

// TaskContext is the bounded context handed to the generator with an
// assignment: recent history only, never the full run.
type TaskContext struct {
	ProjectName       string       `json:"project_name"`
	ArchitectureNotes string       `json:"architecture_notes,omitempty"`
	RecentTasks       []model.Task `json:"recent_tasks,omitempty"`
	RecentArtifacts   []string     `json:"recent_artifacts,omitempty"`
}

// TaskAssignment dispatches one task to the generator.
type TaskAssignment struct {
	Task    model.Task  `json:"task"`
	Context TaskContext `json:"context"`
}

func (*TaskAssignment) PayloadType() Type { return TypeTaskAssignment }

func (p *TaskAssignment) validate() error {
	if p.Task.ID <= 0 {
		return validationErrorf("task_assignment requires a task with a positive id")
	}
	if p.Task.Title == "" {
		return validationErrorf("task_assignment requires a task title")
	}
	return nil
}

// TaskResult reports the outcome of one executed task.
type TaskResult struct {
	Result model.TaskResult `json:"result"`
	Failed bool             `json:"failed,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

func (*TaskResult) PayloadType() Type { return TypeTaskResult }

func (p *TaskResult) validate() error {
	if p.Result.TaskID <= 0 {
		return validationErrorf("task_result requires a positive task id")
	}
	return nil
}

// EvaluationRequest asks the evaluator to review the artifact set. The set
// may be empty when every artifact-producing task was skipped.
type EvaluationRequest struct {
	ArtifactPaths []string `json:"artifact_paths"`
}

func (*EvaluationRequest) PayloadType() Type { return TypeEvaluationRequest }

func (p *EvaluationRequest) validate() error {
	for _, path := range p.ArtifactPaths {
		if path == "" {
			return validationErrorf("evaluation_request artifact paths must be non-empty")
		}
	}
	return nil
}

// EvaluationReport carries the evaluator's scored report.
type EvaluationReport struct {
	Report model.EvaluationReport `json:"report"`
}

func (*EvaluationReport) PayloadType() Type { return TypeEvaluationReport }

func (p *EvaluationReport) validate() error {
	if p.Report.Score < 0 || p.Report.Score > 100 {
		return validationErrorf("evaluation_report score %d out of range", p.Report.Score)
	}
	if p.Report.Findings == nil {
		return validationErrorf("evaluation_report requires a findings list")
	}
	switch p.Report.Verdict {
	case model.VerdictPass, model.VerdictRefine, model.VerdictFail:
	default:
		return validationErrorf("evaluation_report verdict %q unknown", p.Report.Verdict)
	}
	return nil
}
