package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"folder", "profile", "context", "usage", "organize"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"folder_create": {
		def:     folderCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderCreate },
	},
	"folder_add_apps": {
		def:     folderAddAppsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderAddApps },
	},
	"folder_remove_app": {
		def:     folderRemoveAppToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderRemoveApp },
	},
	"folder_rename": {
		def:     folderRenameToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderRename },
	},
	"folder_set_kind": {
		def:     folderSetKindToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderSetKind },
	},
	"folder_delete": {
		def:     folderDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderDelete },
	},
	"folder_list": {
		def:     folderListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderList },
	},
	"folder_show": {
		def:     folderShowToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderShow },
	},
	"folder_refresh": {
		def:     folderRefreshToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderRefresh },
	},
	"profile_create": {
		def:     profileCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProfileCreate },
	},
	"profile_update": {
		def:     profileUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProfileUpdate },
	},
	"profile_delete": {
		def:     profileDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProfileDelete },
	},
	"profile_list": {
		def:     profileListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProfileList },
	},
	"profile_current": {
		def:     profileCurrentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProfileCurrent },
	},
	"profile_use": {
		def:     profileUseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProfileUse },
	},
	"profile_folders": {
		def:     profileFoldersToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProfileFolders },
	},
	"context_evaluate": {
		def:     contextEvaluateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContextEvaluate },
	},
	"usage_record": {
		def:     usageRecordToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUsageRecord },
	},
	"usage_stats": {
		def:     usageStatsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUsageStats },
	},
	"organize_suggest": {
		def:     organizeSuggestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOrganizeSuggest },
	},
	"organize_apply": {
		def:     organizeApplyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOrganizeApply },
	},
	"organize_folder": {
		def:     organizeFolderToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOrganizeFolder },
	},
	"organize_command": {
		def:     organizeCommandToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOrganizeCommand },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "folder_create" → "folder").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	// Build set of types for O(1) lookup
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	// Collect tools belonging to disabled types
	tools := make([]string, 0)
	for name := range toolRegistry {
		typ := GetTypeForTool(name)
		if typeSet[typ] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with Shelf tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(env *ops.Env, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"shelf",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(reloadMiddleware(env)),
	)

	h := NewHandlers(env)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// reloadMiddleware brings env up to date with storage before every tool call,
// so the server sees what CLI invocations and the watcher saved.
func reloadMiddleware(env *ops.Env) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			env.Reload(ctx)
			return next(ctx, req)
		}
	}
}

// Run starts the MCP server using stdio transport.
func Run(env *ops.Env, cfg *config.Config, version string) error {
	s := NewServer(env, cfg, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
