// Package mcptool exposes the execution runner as Model Context Protocol
// tools over stdio, so an assistant can run code through CodeSphere.
package mcptool

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sakif/codesphere/internal/language"
	"github.com/sakif/codesphere/internal/report"
	"github.com/sakif/codesphere/internal/service"
)

// maxToolOutput keeps tool results small enough for a model context.
const maxToolOutput = 8000

// Tools holds the dependencies of the tool handlers.
type Tools struct {
	svc        *service.ExecutionService
	toolchains *language.Registry
}

// New returns an MCP server with the code_run and list_languages tools.
func New(svc *service.ExecutionService, toolchains *language.Registry, version string) *server.MCPServer {
	t := &Tools{svc: svc, toolchains: toolchains}

	s := server.NewMCPServer("codesphere", version)

	var names []string
	for _, tc := range toolchains.All() {
		names = append(names, string(tc.Language))
	}

	s.AddTool(mcp.Tool{
		Name: "code_run",
		Description: fmt.Sprintf("Compile and run a program with the local toolchain and return its output "+
			"and exit code. Supported languages: %s.", strings.Join(names, ", ")),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"language": map[string]any{
					"type":        "string",
					"description": "Programming language (" + strings.Join(names, ", ") + ")",
				},
				"code": map[string]any{
					"type":        "string",
					"description": "Complete source code to run",
				},
			},
			Required: []string{"language", "code"},
		},
	}, t.handleCodeRun)

	s.AddTool(mcp.Tool{
		Name:        "list_languages",
		Description: "List the supported languages with their compile and run commands.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, t.handleListLanguages)

	return s
}

// ServeStdio serves s on stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func (t *Tools) handleCodeRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return errResult("error: invalid arguments"), nil
	}

	// An empty program is valid; only the keys themselves are required.
	lang, _ := args["language"].(string)
	code, hasCode := args["code"].(string)
	if lang == "" || !hasCode {
		return errResult("error: 'language' and 'code' are required"), nil
	}

	res, err := t.svc.Execute(ctx, code, lang)
	text := truncate(report.Of(res, err), maxToolOutput)

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: report.Failed(res, err),
	}, nil
}

func (t *Tools) handleListLanguages(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	for _, tc := range t.toolchains.All() {
		fmt.Fprintf(&b, "%s (%s)\n", tc.Language, tc.DisplayName)
		if tc.Compiled() {
			fmt.Fprintf(&b, "  compile: %s\n", strings.Join(tc.Compile, " "))
		}
		fmt.Fprintf(&b, "  run:     %s\n", strings.Join(tc.Run, " "))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: b.String()}},
	}, nil
}

// truncate cuts text to at most limit bytes without splitting a UTF-8
// sequence, and marks the cut.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n... (output truncated)"
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
