package sdk

import (
	"errors"
	"fmt"
)

// ErrNoContent is returned when a tool result contains no content items.
var ErrNoContent = errors.New("buraco: empty tool result")

// ErrNoImage is returned when an Image has neither a path nor data.
var ErrNoImage = errors.New("buraco: image needs a path or data")

// ErrImageTooLarge is returned before sending an inline image above the
// client's limit.
var ErrImageTooLarge = errors.New("buraco: image too large")

// ToolError is returned when a tool call returns an error result.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("buraco: tool %s: %s", e.Tool, e.Message)
}
