package models

import "fmt"

// ActionResult is what an action handler reports back to the engine. Success=false is a
// logical failure: the step still completes and the graph advances.
type ActionResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func Succeeded(format string, args ...any) ActionResult {
	return ActionResult{Success: true, Message: fmt.Sprintf(format, args...)}
}

func Failed(format string, args ...any) ActionResult {
	return ActionResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

// With attaches a data entry to the result.
func (r ActionResult) With(key string, value any) ActionResult {
	if r.Data == nil {
		r.Data = make(map[string]any)
	}

	r.Data[key] = value

	return r
}

// ToMap renders the result as the execution result bag.
func (r ActionResult) ToMap() map[string]any {
	result := map[string]any{
		"success": r.Success,
		"message": r.Message,
	}

	if len(r.Data) > 0 {
		result["data"] = r.Data
	}

	return result
}
