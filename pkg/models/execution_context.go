// Package models defines the core domain records shared across the workflow
// execution engine, the enrollment engine and the persistence layer.
package models

// ExecutionContext is the data bag threaded through a chain of node
// executions. Executors never mutate it in place: each one returns a delta
// map and the chain runner folds it in with Merge, so keys written by earlier
// nodes survive later ones.
type ExecutionContext struct {
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspace_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
	Values      map[string]any `json:"values,omitempty"`
}

// Merge returns a new context holding the previous values plus the deltas.
// Delta keys win on conflict. The receiver is left untouched.
func (c ExecutionContext) Merge(deltas map[string]any) ExecutionContext {
	merged := make(map[string]any, len(c.Values)+len(deltas))
	for k, v := range c.Values {
		merged[k] = v
	}

	for k, v := range deltas {
		merged[k] = v
	}

	next := c
	next.Values = merged

	return next
}

// Value looks up a key in the open mapping.
func (c ExecutionContext) Value(key string) (any, bool) {
	v, ok := c.Values[key]

	return v, ok
}

// String returns the value under key if it is a non-empty string.
func (c ExecutionContext) String(key string) (string, bool) {
	s, ok := c.Values[key].(string)
	if !ok || s == "" {
		return "", false
	}

	return s, true
}

// ContactID extracts the originating contact from the context, checking the
// well-known keys trigger payloads and executors write.
func (c ExecutionContext) ContactID() (string, bool) {
	for _, key := range []string{"contactId", "contact_id"} {
		if id, ok := c.String(key); ok {
			return id, true
		}

		if id, ok := c.TriggerData[key].(string); ok && id != "" {
			return id, true
		}
	}

	return "", false
}
