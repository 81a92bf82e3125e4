// Package sdk provides a typed Go client for the Buraco MCP server.
//
// The client wraps mcp-go/client.CallTool with one method per MCP tool
// and retries transport failures via fortify.
//
// Usage:
//
//	transport, _ := client.NewStdioTransport("buraco", "mcp")
//	c := sdk.NewClient(transport)
//	defer c.Close()
//
//	_, _ = c.Initialize(ctx)
//	res, _ := c.AnalyzeImage(ctx, sdk.ImageFile("buraco.jpg"), false)
//	fmt.Println(*res.Severity, res.Feedback.Deadline)
package sdk
