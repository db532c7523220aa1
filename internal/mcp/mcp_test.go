package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/shelf/internal/catalog"
	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/ops"
	"github.com/hpungsan/shelf/internal/storage"
)

// Tuesday morning.
var testNow = time.Date(2026, 5, 5, 8, 30, 0, 0, time.UTC)

// testSetup creates an in-memory environment and config for testing.
func testSetup(t *testing.T) (*ops.Env, *config.Config) {
	t.Helper()

	cfg := config.DefaultConfig()
	cat := catalog.NewStatic([]catalog.App{
		{AppRef: "com.apple.mobilemail", Name: "Mail"},
		{AppRef: "com.chess", Name: "Chess Game"},
		{AppRef: "com.golf", Name: "Golf Game"},
		{AppRef: "com.apple.Maps", Name: "Maps"},
	})
	env := ops.NewEnv(context.Background(), storage.NewMemory(), cfg, cat,
		ops.WithClock(func() time.Time { return testNow }))
	return env, cfg
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestHandleFolderCreate(t *testing.T) {
	env, _ := testSetup(t)
	h := NewHandlers(env)
	ctx := context.Background()

	tests := []struct {
		name     string
		args     map[string]any
		wantErr  string
		wantKind string
	}{
		{
			name:     "static with apps",
			args:     map[string]any{"name": "Work", "apps": []any{"Mail", "com.slack"}},
			wantKind: "static",
		},
		{
			name:     "dynamic",
			args:     map[string]any{"name": "Top", "rule": "most_used:3"},
			wantKind: "dynamic",
		},
		{
			name:    "duplicate name",
			args:    map[string]any{"name": "work"},
			wantErr: string(errors.ErrNameAlreadyExists),
		},
		{
			name:    "missing name",
			args:    map[string]any{},
			wantErr: string(errors.ErrInvalidRequest),
		},
		{
			name:    "unknown argument",
			args:    map[string]any{"name": "X", "colour": "red"},
			wantErr: string(errors.ErrInvalidRequest),
		},
		{
			name:    "bad category",
			args:    map[string]any{"name": "X", "category": "hobbies"},
			wantErr: string(errors.ErrInvalidRequest),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleFolderCreate(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != "" {
				assertErrorCode(t, result, tt.wantErr)
				return
			}
			output := parseOutput(t, result)
			folder := output["folder"].(map[string]any)
			if folder["kind"] != tt.wantKind {
				t.Errorf("kind = %v, want %s", folder["kind"], tt.wantKind)
			}
			if folder["id"] == "" {
				t.Error("expected id")
			}
		})
	}
}

func TestHandleFolderLifecycle(t *testing.T) {
	env, _ := testSetup(t)
	h := NewHandlers(env)
	ctx := context.Background()

	result, _ := h.HandleFolderCreate(ctx, makeRequest(map[string]any{"name": "Play", "category": "entertainment"}))
	id := parseOutput(t, result)["folder"].(map[string]any)["id"].(string)

	result, _ = h.HandleFolderAddApps(ctx, makeRequest(map[string]any{"id": id, "apps": []any{"Chess Game", "com.golf"}}))
	apps := parseOutput(t, result)["folder"].(map[string]any)["apps"].([]any)
	if len(apps) != 2 || apps[0] != "com.chess" {
		t.Errorf("apps = %v, want [com.chess com.golf]", apps)
	}

	result, _ = h.HandleFolderRemoveApp(ctx, makeRequest(map[string]any{"name": "play", "app": "com.golf"}))
	parseOutput(t, result)

	result, _ = h.HandleFolderRename(ctx, makeRequest(map[string]any{"id": id, "new_name": "Games"}))
	if got := parseOutput(t, result)["folder"].(map[string]any)["name"]; got != "Games" {
		t.Errorf("name = %v, want Games", got)
	}

	result, _ = h.HandleFolderShow(ctx, makeRequest(map[string]any{"name": "Games"}))
	output := parseOutput(t, result)
	shown := output["apps"].([]any)
	if len(shown) != 1 || shown[0].(map[string]any)["name"] != "Chess Game" {
		t.Errorf("apps = %v, want Chess Game only", shown)
	}

	result, _ = h.HandleFolderSetKind(ctx, makeRequest(map[string]any{"id": id, "smart": true, "rule": "by_category:games"}))
	folder := parseOutput(t, result)["folder"].(map[string]any)
	if folder["kind"] != "dynamic" || len(folder["apps"].([]any)) != 2 {
		t.Errorf("folder = %v, want dynamic with both games", folder)
	}

	result, _ = h.HandleFolderList(ctx, makeRequest(map[string]any{"kind": "dynamic", "limit": float64(10)}))
	output = parseOutput(t, result)
	if items := output["items"].([]any); len(items) != 1 {
		t.Errorf("items = %d, want 1", len(items))
	}

	result, _ = h.HandleFolderRefresh(ctx, makeRequest(nil))
	parseOutput(t, result)

	result, _ = h.HandleFolderDelete(ctx, makeRequest(map[string]any{"id": id}))
	if parseOutput(t, result)["deleted"] != true {
		t.Error("expected deleted=true")
	}

	result, _ = h.HandleFolderShow(ctx, makeRequest(map[string]any{"id": id}))
	assertErrorCode(t, result, string(errors.ErrNotFound))

	result, _ = h.HandleFolderShow(ctx, makeRequest(map[string]any{"id": id, "name": "Games"}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))
}

func TestReloadMiddleware_SeesOtherWriters(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cat := catalog.NewStatic(nil)
	mem := storage.NewMemory()
	srv := ops.NewEnv(ctx, mem, cfg, cat)
	cli := ops.NewEnv(ctx, mem, cfg, cat)

	_, err := ops.CreateFolder(ctx, cli, ops.CreateFolderInput{Name: "Work"})
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}

	list := reloadMiddleware(srv)(NewHandlers(srv).HandleFolderList)
	result, err := list(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items := parseOutput(t, result)["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["name"] != "Work" {
		t.Errorf("items = %v, want Work", items)
	}
}

func TestHandleProfiles(t *testing.T) {
	env, _ := testSetup(t)
	h := NewHandlers(env)
	ctx := context.Background()

	_, _ = h.HandleFolderCreate(ctx, makeRequest(map[string]any{"name": "Work"}))

	result, _ := h.HandleProfileCreate(ctx, makeRequest(map[string]any{
		"name":    "Desk",
		"folders": []any{map[string]any{"name": "Work"}},
		"rules": []any{
			map[string]any{"type": "time_window", "start": "08:00", "end": "12:00", "days": "mon-fri"},
		},
	}))
	profile := parseOutput(t, result)["profile"].(map[string]any)
	if len(profile["folder_ids"].([]any)) != 1 {
		t.Errorf("folder_ids = %v, want one id", profile["folder_ids"])
	}

	result, _ = h.HandleProfileCreate(ctx, makeRequest(map[string]any{
		"name":  "Broken",
		"rules": []any{map[string]any{"type": "time_window", "start": "8am"}},
	}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))

	result, _ = h.HandleProfileList(ctx, makeRequest(nil))
	items := parseOutput(t, result)["items"].([]any)
	if len(items) != 4 {
		t.Fatalf("items = %d, want 3 defaults + Desk", len(items))
	}

	result, _ = h.HandleContextEvaluate(ctx, makeRequest(map[string]any{"at": "2026-05-05T09:15:00Z"}))
	output := parseOutput(t, result)
	if output["changed"] != true || output["current"].(map[string]any)["name"] != "Desk" {
		t.Errorf("evaluate = %v, want Desk activated", output)
	}

	result, _ = h.HandleProfileCurrent(ctx, makeRequest(nil))
	current := parseOutput(t, result)["current"].(map[string]any)
	if len(current["folders"].([]any)) != 1 {
		t.Errorf("current folders = %v, want Work", current["folders"])
	}

	newName := "Office"
	result, _ = h.HandleProfileUpdate(ctx, makeRequest(map[string]any{"name": "Desk", "new_name": newName, "rules": []any{}}))
	profile = parseOutput(t, result)["profile"].(map[string]any)
	if profile["name"] != newName {
		t.Errorf("name = %v, want %s", profile["name"], newName)
	}

	result, _ = h.HandleProfileUse(ctx, makeRequest(map[string]any{"name": "Travel Mode"}))
	parseOutput(t, result)

	result, _ = h.HandleProfileFolders(ctx, makeRequest(map[string]any{"name": "Office"}))
	if folders := parseOutput(t, result)["folders"].([]any); len(folders) != 1 {
		t.Errorf("folders = %d, want 1", len(folders))
	}

	result, _ = h.HandleProfileDelete(ctx, makeRequest(map[string]any{"name": "Travel Mode"}))
	if parseOutput(t, result)["was_current"] != true {
		t.Error("expected was_current=true")
	}
}

func TestHandleContextEvaluate_Validation(t *testing.T) {
	env, _ := testSetup(t)
	h := NewHandlers(env)
	ctx := context.Background()

	result, _ := h.HandleContextEvaluate(ctx, makeRequest(map[string]any{"at": "tomorrow"}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))

	result, _ = h.HandleContextEvaluate(ctx, makeRequest(map[string]any{"latitude": 48.85}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))

	result, _ = h.HandleContextEvaluate(ctx, makeRequest(map[string]any{"latitude": 48.85, "longitude": 2.35}))
	output := parseOutput(t, result)
	if output["matched"] != false {
		t.Errorf("matched = %v, want false with no rules", output["matched"])
	}
}

func TestHandleUsage(t *testing.T) {
	env, _ := testSetup(t)
	h := NewHandlers(env)
	ctx := context.Background()

	for range 3 {
		result, _ := h.HandleUsageRecord(ctx, makeRequest(map[string]any{"app": "Maps"}))
		parseOutput(t, result)
	}
	result, _ := h.HandleUsageRecord(ctx, makeRequest(map[string]any{"app": "com.golf", "evaluate": true}))
	output := parseOutput(t, result)
	if _, ok := output["activation"]; !ok {
		t.Error("expected activation result when evaluate=true")
	}

	result, _ = h.HandleUsageRecord(ctx, makeRequest(map[string]any{}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))

	result, _ = h.HandleUsageStats(ctx, makeRequest(map[string]any{}))
	output = parseOutput(t, result)
	mostUsed := output["most_used"].([]any)
	if len(mostUsed) != 1 || mostUsed[0].(map[string]any)["app"] != "com.apple.Maps" {
		t.Errorf("most_used = %v, want Maps only", mostUsed)
	}
	if infrequent := output["infrequent"].([]any); len(infrequent) != 1 || infrequent[0] != "com.golf" {
		t.Errorf("infrequent = %v, want [com.golf]", infrequent)
	}
}

func TestHandleOrganize(t *testing.T) {
	env, _ := testSetup(t)
	h := NewHandlers(env)
	ctx := context.Background()

	result, _ := h.HandleOrganizeSuggest(ctx, makeRequest(nil))
	if s := parseOutput(t, result)["suggestions"].([]any); len(s) != 0 {
		t.Errorf("suggestions = %v, want none without usage", s)
	}

	result, _ = h.HandleOrganizeApply(ctx, makeRequest(nil))
	if c := parseOutput(t, result)["created"].([]any); len(c) != 0 {
		t.Errorf("created = %v, want none", c)
	}

	result, _ = h.HandleOrganizeFolder(ctx, makeRequest(map[string]any{"name": "Morning"}))
	output := parseOutput(t, result)
	if output["action"] != "organize" {
		t.Errorf("action = %v, want organize", output["action"])
	}

	result, _ = h.HandleOrganizeCommand(ctx, makeRequest(map[string]any{"text": "move games to Fun"}))
	output = parseOutput(t, result)
	folders := output["folders"].([]any)
	if len(folders) != 1 || len(folders[0].(map[string]any)["apps"].([]any)) != 2 {
		t.Errorf("folders = %v, want Fun with two games", folders)
	}

	result, _ = h.HandleOrganizeCommand(ctx, makeRequest(map[string]any{"text": "juggle"}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))
}

func TestServerRegistration(t *testing.T) {
	env, cfg := testSetup(t)

	s := NewServer(env, cfg, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"folder_create", "folder_add_apps", "folder_remove_app", "folder_rename",
		"folder_set_kind", "folder_delete", "folder_list", "folder_show", "folder_refresh",
		"profile_create", "profile_update", "profile_delete", "profile_list",
		"profile_current", "profile_use", "profile_folders",
		"context_evaluate",
		"usage_record", "usage_stats",
		"organize_suggest", "organize_apply", "organize_folder", "organize_command",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}

	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	env, cfg := testSetup(t)

	cfg.DisabledTools = []string{"folder_delete", "profile_delete", "profile_delete"}
	s := NewServer(env, cfg, "test")
	tools := s.ListTools()

	if len(tools) != 21 {
		t.Errorf("registered tool count = %d, want 21", len(tools))
	}
	for _, name := range []string{"folder_delete", "profile_delete"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	env, cfg := testSetup(t)

	cfg.DisabledTypes = []string{"organize", "usage"}
	s := NewServer(env, cfg, "test")
	tools := s.ListTools()

	if len(tools) != 17 {
		t.Errorf("registered tool count = %d, want 17", len(tools))
	}
	for name := range tools {
		if typ := GetTypeForTool(name); typ == "organize" || typ == "usage" {
			t.Errorf("tool %q of disabled type should not be registered", name)
		}
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	env, cfg := testSetup(t)

	cfg.DisabledTools = AllToolNames()
	s := NewServer(env, cfg, "test")
	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabled(t *testing.T) {
	if unknown := ValidateDisabledTools([]string{"folder_list", "dock_pin"}); !slices.Equal(unknown, []string{"dock_pin"}) {
		t.Errorf("ValidateDisabledTools() = %v", unknown)
	}
	if unknown := ValidateDisabledTypes([]string{"context", "widget"}); !slices.Equal(unknown, []string{"widget"}) {
		t.Errorf("ValidateDisabledTypes() = %v", unknown)
	}
	if unknown := ValidateDisabledTools(AllToolNames()); len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
}

func TestToolTypesAreKnown(t *testing.T) {
	for _, name := range AllToolNames() {
		if typ := GetTypeForTool(name); !slices.Contains(KnownTypes, typ) {
			t.Errorf("tool %q has unknown type %q", name, typ)
		}
		if toolRegistry[name].def.Name != name {
			t.Errorf("tool %q is defined as %q", name, toolRegistry[name].def.Name)
		}
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
	if strings.Contains(errObj["message"].(string), "secret.db") {
		t.Fatal("expected INTERNAL message to be generic")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrapped := fmt.Errorf("items[2]: %w", errors.NewNotFound("folder", "Work"))

	errObj := errorObject(t, errorResult(wrapped))
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if msg := errObj["message"].(string); !strings.Contains(msg, "items[2]") {
		t.Errorf("message should contain wrapper context 'items[2]', got: %s", msg)
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("boom")))
	if errObj["code"] != "INTERNAL" || errObj["message"] != "an internal error occurred" {
		t.Errorf("error = %v, want generic INTERNAL", errObj)
	}
}

// Helper functions

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	return payload["error"].(map[string]any)
}

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error %s, got success: %s", expectedCode, extractErrorMessage(result))
		return
	}
	if code, _ := errorObject(t, result)["code"].(string); code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
