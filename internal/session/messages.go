package session

import (
	"encoding/json"
	"fmt"

	"github.com/openw3/world3/internal/model"
)

// Wire message tags. Every message is a tagged JSON object; the tag field
// is "type". Field names and nesting are load-bearing for the frontend and
// persistence collaborators.
const (
	TypeStartSimulation = "start_simulation"
	TypeUpdateParams    = "update_params"
	TypeStopSimulation  = "stop_simulation"

	TypeSimStep     = "sim_step"
	TypeSimComplete = "sim_complete"
	TypeSimError    = "sim_error"
	TypeParamsAck   = "params_ack"
)

// ClientMsg is a decoded client→server message.
type ClientMsg struct {
	Type       string                `json:"type"`
	ScenarioID string                `json:"scenario_id,omitempty"`
	// Params is optional for start_simulation (stored parameters are used
	// when absent) and required for update_params.
	Params *model.ScenarioParams `json:"params,omitempty"`
}

// ParseClientMsg decodes and validates a raw client message.
func ParseClientMsg(data []byte) (ClientMsg, error) {
	var msg ClientMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMsg{}, fmt.Errorf("invalid message: %w", err)
	}
	switch msg.Type {
	case TypeStartSimulation:
		if msg.ScenarioID == "" {
			return ClientMsg{}, fmt.Errorf("start_simulation: missing scenario_id")
		}
	case TypeUpdateParams:
		if msg.ScenarioID == "" {
			return ClientMsg{}, fmt.Errorf("update_params: missing scenario_id")
		}
		if msg.Params == nil {
			return ClientMsg{}, fmt.Errorf("update_params: missing params")
		}
	case TypeStopSimulation:
	default:
		return ClientMsg{}, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return msg, nil
}

// ServerMsg is any server→client message.
type ServerMsg interface {
	MsgType() string
}

// StepMsg carries one integration step.
type StepMsg struct {
	Type  string           `json:"type"`
	Year  float64          `json:"year"`
	State model.WorldState `json:"state"`
}

// CompleteMsg signals a run that reached its end year.
type CompleteMsg struct {
	Type       string `json:"type"`
	ScenarioID string `json:"scenario_id"`
	TotalSteps int    `json:"total_steps"`
}

// ErrorMsg signals a failed run (or an unparseable client message).
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AckMsg acknowledges an update_params, sent before the debounce fires.
type AckMsg struct {
	Type       string `json:"type"`
	ScenarioID string `json:"scenario_id"`
}

func (m StepMsg) MsgType() string     { return m.Type }
func (m CompleteMsg) MsgType() string { return m.Type }
func (m ErrorMsg) MsgType() string    { return m.Type }
func (m AckMsg) MsgType() string      { return m.Type }

func newStep(s model.WorldState) StepMsg {
	return StepMsg{Type: TypeSimStep, Year: s.Time, State: s}
}

func newComplete(scenarioID string, total int) CompleteMsg {
	return CompleteMsg{Type: TypeSimComplete, ScenarioID: scenarioID, TotalSteps: total}
}

func newError(message string) ErrorMsg {
	return ErrorMsg{Type: TypeSimError, Message: message}
}

// NewClientError reports a malformed or invalid client message without
// touching session state.
func NewClientError(err error) ErrorMsg {
	return newError(err.Error())
}

func newAck(scenarioID string) AckMsg {
	return AckMsg{Type: TypeParamsAck, ScenarioID: scenarioID}
}
