package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Invocation contract violations. These surface as Go errors from Execute;
// everything the tool itself reports (missing data, bad lookups) travels
// inside Response instead.
var (
	// ErrInvalidParameters signals the parameter map did not match the
	// tool's declared contract.
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrCapabilityNotFound signals the tool does not support the
	// requested operation.
	ErrCapabilityNotFound = errors.New("method not found")
)

// Response is the uniform envelope every capability returns.
// Success=false carries a tool-reported failure in Error.
type Response struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Ok builds a successful response carrying the tool payload.
func Ok(data map[string]any) Response {
	return Response{Success: true, Data: data}
}

// Fail builds a tool-reported failure.
func Fail(format string, args ...any) Response {
	return Response{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Tool defines the interface for all agent capabilities.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's inputs
	Execute(ctx context.Context, params map[string]any) (Response, error)
}

// DecodeParams binds a loose parameter map onto a typed argument struct.
// A mismatch (wrong type, malformed value) is an ErrInvalidParameters.
func DecodeParams(params map[string]any, dst any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return nil
}

// StringParam reads a string value from a parameter map, tolerating
// aliases (e.g. identifier / cik_or_ticker / ticker).
func StringParam(params map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := params[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// IntParam reads an integer value, accepting the float64 that
// encoding/json produces for plain numbers.
func IntParam(params map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := params[k].(type) {
		case int:
			return v, true
		case float64:
			return int(v), true
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return int(n), true
			}
		}
	}
	return 0, false
}

// Registry manages the set of available tools. Registration is last-wins;
// it happens once at startup from a fixed, non-conflicting set.
type Registry struct {
	Tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		Tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) {
	r.Tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.Tools[name]
}

// Names returns registered tool names (unordered).
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Tools))
	for name := range r.Tools {
		names = append(names, name)
	}
	return names
}
