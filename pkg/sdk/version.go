package sdk

import (
	"context"
	"fmt"
	"strings"
)

// SupportedSchemaMajor is the tool schema major version whose results this
// SDK decodes. Minor versions only add fields.
const SupportedSchemaMajor = "1"

// IncompatibleError reports a server whose tool results this SDK cannot
// decode.
type IncompatibleError struct {
	ServerSchema string
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("buraco: server schema %s (major %s), sdk supports major %s",
		e.ServerSchema, majorVersion(e.ServerSchema), SupportedSchemaMajor)
}

// Compatible reads buraco://prompt and checks the server's schema major
// version. Call it once after Initialize.
func (c *Client) Compatible(ctx context.Context) error {
	info, err := c.GetPrompt(ctx)
	if err != nil {
		return fmt.Errorf("check compatibility: %w", err)
	}
	if majorVersion(info.SchemaVersion) != SupportedSchemaMajor {
		return &IncompatibleError{ServerSchema: info.SchemaVersion}
	}
	return nil
}

func majorVersion(v string) string {
	major, _, _ := strings.Cut(v, ".")
	return major
}
