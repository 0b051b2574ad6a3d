package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"chatflow-backend/internal/services"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server exposes read-only chatflow tools over the Model Context Protocol so
// agent frontends can inspect workspaces without going through the REST API.
type Server struct {
	mcpServer *server.MCPServer
	chatflows *services.ChatflowService
}

func NewServer(chatflows *services.ChatflowService) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Chatflow Service",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		chatflows: chatflows,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_chatflows",
			mcp.WithDescription("List the chatflows in a workspace"),
			mcp.WithString("workspace_slug", mcp.Required(), mcp.Description("The slug of the workspace")),
		),
		s.handleListChatflows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"generation_status",
			mcp.WithDescription("Report whether a chatflow's schema generation has completed"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The ID of the chatflow")),
		),
		s.handleGenerationStatus,
	)
}

func (s *Server) handleListChatflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	slug, ok := args["workspace_slug"].(string)
	if !ok || slug == "" {
		return mcp.NewToolResultError("Missing required parameter: workspace_slug"), nil
	}

	items, err := s.chatflows.WorkspaceChatflows(ctx, slug)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list chatflows: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(items)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGenerationStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}

	status, err := s.chatflows.GenerationStatus(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get generation status: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(status)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
