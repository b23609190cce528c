package models

// NodeStatus is published to the realtime channel as a node executes.
type NodeStatus string

const (
	NodeStatusLoading NodeStatus = "loading"
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusError   NodeStatus = "error"
)

// Built-in node (executor) types.
const (
	NodeTypeCreateTask    = "createTask"
	NodeTypeSendEmail     = "sendEmail"
	NodeTypeSendSms       = "sendSms"
	NodeTypeUpdateContact = "updateContact"
	NodeTypeAI            = "aiNode"
)

// NodeRequest is the sole input handed to an executor.
type NodeRequest struct {
	NodeID  string           `json:"node_id" validate:"required"`
	Type    string           `json:"type"    validate:"required"`
	Config  map[string]any   `json:"config"`
	Context ExecutionContext `json:"context"`
}

// WorkflowNode is a node instance inside a stored workflow definition.
type WorkflowNode struct {
	ID      string         `json:"id"      validate:"required"`
	Type    string         `json:"type"    validate:"required"`
	Name    string         `json:"name"    validate:"required,min=1"`
	Config  map[string]any `json:"config"`
	Enabled bool           `json:"enabled"`
}
