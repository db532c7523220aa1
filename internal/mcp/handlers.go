package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types for each tool

// RefRequest addresses a folder or profile.
type RefRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func (r RefRequest) folder() ops.FolderRef   { return ops.FolderRef{ID: r.ID, Name: r.Name} }
func (r RefRequest) profile() ops.ProfileRef { return ops.ProfileRef{ID: r.ID, Name: r.Name} }

func folderRefs(refs []RefRequest) []ops.FolderRef {
	out := make([]ops.FolderRef, len(refs))
	for i, r := range refs {
		out[i] = r.folder()
	}
	return out
}

// FolderCreateRequest represents the arguments for folder_create.
type FolderCreateRequest struct {
	Name     string   `json:"name"`
	Category string   `json:"category,omitempty"`
	Rule     string   `json:"rule,omitempty"`
	Apps     []string `json:"apps,omitempty"`
}

// FolderAddAppsRequest represents the arguments for folder_add_apps.
type FolderAddAppsRequest struct {
	RefRequest
	Apps []string `json:"apps"`
}

// FolderRemoveAppRequest represents the arguments for folder_remove_app.
type FolderRemoveAppRequest struct {
	RefRequest
	App string `json:"app"`
}

// FolderRenameRequest represents the arguments for folder_rename.
type FolderRenameRequest struct {
	RefRequest
	NewName string `json:"new_name"`
}

// FolderSetKindRequest represents the arguments for folder_set_kind.
type FolderSetKindRequest struct {
	RefRequest
	Smart bool   `json:"smart"`
	Rule  string `json:"rule,omitempty"`
}

// FolderListRequest represents the arguments for folder_list.
type FolderListRequest struct {
	Category string `json:"category,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// ProfileCreateRequest represents the arguments for profile_create.
type ProfileCreateRequest struct {
	Name    string          `json:"name"`
	Folders []RefRequest    `json:"folders,omitempty"`
	Rules   []ops.RuleInput `json:"rules,omitempty"`
}

// ProfileUpdateRequest represents the arguments for profile_update.
type ProfileUpdateRequest struct {
	RefRequest
	NewName       *string          `json:"new_name,omitempty"`
	AddFolders    []RefRequest     `json:"add_folders,omitempty"`
	RemoveFolders []RefRequest     `json:"remove_folders,omitempty"`
	Rules         *[]ops.RuleInput `json:"rules,omitempty"`
	AddRules      []ops.RuleInput  `json:"add_rules,omitempty"`
}

// ContextEvaluateRequest represents the arguments for context_evaluate.
type ContextEvaluateRequest struct {
	At          string   `json:"at,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	LaunchedApp string   `json:"launched_app,omitempty"`
}

// UsageRecordRequest represents the arguments for usage_record.
type UsageRecordRequest struct {
	App      string `json:"app"`
	Evaluate bool   `json:"evaluate,omitempty"`
}

// UsageStatsRequest represents the arguments for usage_stats.
type UsageStatsRequest struct {
	Limit     int `json:"limit,omitempty"`
	Threshold int `json:"threshold,omitempty"`
}

// OrganizeFolderRequest represents the arguments for organize_folder.
type OrganizeFolderRequest struct {
	Name string `json:"name"`
}

// OrganizeCommandRequest represents the arguments for organize_command.
type OrganizeCommandRequest struct {
	Text string `json:"text"`
}

// Handler implementations

// HandleFolderCreate handles the folder_create tool call.
func (h *Handlers) HandleFolderCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FolderCreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.CreateFolder(ctx, h.env, ops.CreateFolderInput{
		Name:     input.Name,
		Category: input.Category,
		Rule:     input.Rule,
		Apps:     input.Apps,
	}))
}

// HandleFolderAddApps handles the folder_add_apps tool call.
func (h *Handlers) HandleFolderAddApps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FolderAddAppsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.AddApps(ctx, h.env, ops.AddAppsInput{Folder: input.folder(), Apps: input.Apps}))
}

// HandleFolderRemoveApp handles the folder_remove_app tool call.
func (h *Handlers) HandleFolderRemoveApp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FolderRemoveAppRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.RemoveApp(ctx, h.env, ops.RemoveAppInput{Folder: input.folder(), App: input.App}))
}

// HandleFolderRename handles the folder_rename tool call.
func (h *Handlers) HandleFolderRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FolderRenameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.RenameFolder(ctx, h.env, ops.RenameFolderInput{Folder: input.folder(), NewName: input.NewName}))
}

// HandleFolderSetKind handles the folder_set_kind tool call.
func (h *Handlers) HandleFolderSetKind(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FolderSetKindRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.SetFolderKind(ctx, h.env, ops.SetFolderKindInput{
		Folder: input.folder(),
		Smart:  input.Smart,
		Rule:   input.Rule,
	}))
}

// HandleFolderDelete handles the folder_delete tool call.
func (h *Handlers) HandleFolderDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RefRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.DeleteFolder(ctx, h.env, input.folder()))
}

// HandleFolderList handles the folder_list tool call.
func (h *Handlers) HandleFolderList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FolderListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.ListFolders(ctx, h.env, ops.ListFoldersInput{
		Category: input.Category,
		Kind:     input.Kind,
		Limit:    input.Limit,
		Offset:   input.Offset,
	}))
}

// HandleFolderShow handles the folder_show tool call.
func (h *Handlers) HandleFolderShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RefRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.ShowFolder(ctx, h.env, input.folder()))
}

// HandleFolderRefresh handles the folder_refresh tool call.
func (h *Handlers) HandleFolderRefresh(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(ops.RefreshFolders(ctx, h.env))
}

// HandleProfileCreate handles the profile_create tool call.
func (h *Handlers) HandleProfileCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProfileCreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.CreateProfile(ctx, h.env, ops.CreateProfileInput{
		Name:    input.Name,
		Folders: folderRefs(input.Folders),
		Rules:   input.Rules,
	}))
}

// HandleProfileUpdate handles the profile_update tool call.
func (h *Handlers) HandleProfileUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProfileUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.UpdateProfile(ctx, h.env, ops.UpdateProfileInput{
		Profile:       input.profile(),
		NewName:       input.NewName,
		AddFolders:    folderRefs(input.AddFolders),
		RemoveFolders: folderRefs(input.RemoveFolders),
		Rules:         input.Rules,
		AddRules:      input.AddRules,
	}))
}

// HandleProfileDelete handles the profile_delete tool call.
func (h *Handlers) HandleProfileDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RefRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.DeleteProfile(ctx, h.env, input.profile()))
}

// HandleProfileList handles the profile_list tool call.
func (h *Handlers) HandleProfileList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(ops.ListProfiles(ctx, h.env))
}

// HandleProfileCurrent handles the profile_current tool call.
func (h *Handlers) HandleProfileCurrent(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(ops.CurrentProfile(ctx, h.env))
}

// HandleProfileUse handles the profile_use tool call.
func (h *Handlers) HandleProfileUse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RefRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.UseProfile(ctx, h.env, input.profile()))
}

// HandleProfileFolders handles the profile_folders tool call.
func (h *Handlers) HandleProfileFolders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RefRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.ProfileFolders(ctx, h.env, input.profile()))
}

// HandleContextEvaluate handles the context_evaluate tool call.
func (h *Handlers) HandleContextEvaluate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ContextEvaluateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	in := ops.EvaluateInput{
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		LaunchedApp: input.LaunchedApp,
	}
	if input.At != "" {
		at, err := time.Parse(time.RFC3339, input.At)
		if err != nil {
			return errorResult(errors.NewInvalidRequest("at must be an RFC 3339 timestamp")), nil
		}
		in.At = &at
	}
	return respond(ops.Evaluate(ctx, h.env, in))
}

// HandleUsageRecord handles the usage_record tool call.
func (h *Handlers) HandleUsageRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UsageRecordRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.RecordLaunch(ctx, h.env, ops.RecordLaunchInput{App: input.App, Evaluate: input.Evaluate}))
}

// HandleUsageStats handles the usage_stats tool call.
func (h *Handlers) HandleUsageStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UsageStatsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.UsageStats(ctx, h.env, ops.UsageStatsInput{Limit: input.Limit, Threshold: input.Threshold}))
}

// HandleOrganizeSuggest handles the organize_suggest tool call.
func (h *Handlers) HandleOrganizeSuggest(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(ops.Suggest(ctx, h.env))
}

// HandleOrganizeApply handles the organize_apply tool call.
func (h *Handlers) HandleOrganizeApply(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(ops.ApplySuggestions(ctx, h.env))
}

// HandleOrganizeFolder handles the organize_folder tool call.
func (h *Handlers) HandleOrganizeFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OrganizeFolderRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.Organize(ctx, h.env, ops.OrganizeInput{Name: input.Name}))
}

// HandleOrganizeCommand handles the organize_command tool call.
func (h *Handlers) HandleOrganizeCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OrganizeCommandRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.RunCommand(ctx, h.env, ops.RunCommandInput{Text: input.Text}))
}

// Result helpers

// respond converts an ops result pair into a tool result.
func respond[T any](out T, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var shelfErr *errors.ShelfError
	if stderrors.As(err, &shelfErr) {
		msg := shelfErr.Message
		if err != error(shelfErr) {
			// keep wrapper context such as "items[2]: ..."
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    shelfErr.Code,
			"message": msg,
			"status":  shelfErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if shelfErr.Code != errors.ErrInternal && shelfErr.Details != nil {
			errorObj["details"] = shelfErr.Details
		}
		if shelfErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
