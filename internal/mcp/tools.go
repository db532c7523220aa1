package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Shared argument descriptions
const (
	descFolderID    = "Folder ID (ULID). Use either id or name."
	descFolderName  = "Folder name, case-insensitive. Use either id or name."
	descProfileID   = "Profile ID (ULID). Use either id or name."
	descProfileName = "Profile name, case-insensitive. Use either id or name."
	descApps        = "App bundle identifiers or installed app display names."
	descDynamicRule = `Dynamic rule: "most_used:N", "recently_used:N" or "by_category:LABEL".`
)

var stringItems = mcp.Items(map[string]any{"type": "string"})

var folderRefItems = mcp.Items(map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":   map[string]any{"type": "string"},
		"name": map[string]any{"type": "string"},
	},
})

var ruleItems = mcp.Items(map[string]any{
	"type": "object",
	"properties": map[string]any{
		"type":          map[string]any{"type": "string", "enum": []string{"time_window", "location", "app_launch"}},
		"start":         map[string]any{"type": "string", "description": "HH:MM, inclusive"},
		"end":           map[string]any{"type": "string", "description": "HH:MM, exclusive; before start wraps past midnight"},
		"days":          map[string]any{"type": "string", "description": `e.g. "mon-fri" or "sat,sun"; empty means every day`},
		"latitude":      map[string]any{"type": "number"},
		"longitude":     map[string]any{"type": "number"},
		"radius_meters": map[string]any{"type": "number"},
		"app":           map[string]any{"type": "string"},
	},
	"required": []string{"type"},
})

// Folder tools

var folderCreateToolDef = mcp.NewTool("folder_create",
	mcp.WithDescription("Create a folder. Without a rule the folder is static and holds the given apps; with a rule it is dynamic and refilled after every activation pass."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Folder name")),
	mcp.WithString("category", mcp.Description("social, productivity, fitness, entertainment, travel, work, custom, suggested or dynamic")),
	mcp.WithString("rule", mcp.Description(descDynamicRule)),
	mcp.WithArray("apps", stringItems, mcp.Description(descApps)),
)

var folderAddAppsToolDef = mcp.NewTool("folder_add_apps",
	mcp.WithDescription("Append apps to a folder. Apps already present are skipped."),
	mcp.WithString("id", mcp.Description(descFolderID)),
	mcp.WithString("name", mcp.Description(descFolderName)),
	mcp.WithArray("apps", mcp.Required(), stringItems, mcp.Description(descApps)),
)

var folderRemoveAppToolDef = mcp.NewTool("folder_remove_app",
	mcp.WithDescription("Remove an app from a folder. Removing an absent app succeeds."),
	mcp.WithString("id", mcp.Description(descFolderID)),
	mcp.WithString("name", mcp.Description(descFolderName)),
	mcp.WithString("app", mcp.Required(), mcp.Description("App bundle identifier or display name")),
)

var folderRenameToolDef = mcp.NewTool("folder_rename",
	mcp.WithDescription("Rename a folder. Its id and icon are kept."),
	mcp.WithString("id", mcp.Description(descFolderID)),
	mcp.WithString("name", mcp.Description(descFolderName)),
	mcp.WithString("new_name", mcp.Required(), mcp.Description("New folder name")),
)

var folderSetKindToolDef = mcp.NewTool("folder_set_kind",
	mcp.WithDescription("Make a folder dynamic (smart=true) or static (smart=false). A static folder keeps its current apps."),
	mcp.WithString("id", mcp.Description(descFolderID)),
	mcp.WithString("name", mcp.Description(descFolderName)),
	mcp.WithBoolean("smart", mcp.Required(), mcp.Description("true for dynamic, false for static")),
	mcp.WithString("rule", mcp.Description(descDynamicRule+" Required unless the folder already has one.")),
)

var folderDeleteToolDef = mcp.NewTool("folder_delete",
	mcp.WithDescription("Delete a folder. Profiles keep the reference and ignore it."),
	mcp.WithString("id", mcp.Description(descFolderID)),
	mcp.WithString("name", mcp.Description(descFolderName)),
)

var folderListToolDef = mcp.NewTool("folder_list",
	mcp.WithDescription("List folders in creation order, without their apps."),
	mcp.WithString("category", mcp.Description("Only folders in this category")),
	mcp.WithString("kind", mcp.Description("static or dynamic"), mcp.Enum("static", "dynamic")),
	mcp.WithNumber("limit", mcp.Description("Max items (default 50, max 500)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var folderShowToolDef = mcp.NewTool("folder_show",
	mcp.WithDescription("Show a folder with app display names."),
	mcp.WithString("id", mcp.Description(descFolderID)),
	mcp.WithString("name", mcp.Description(descFolderName)),
)

var folderRefreshToolDef = mcp.NewTool("folder_refresh",
	mcp.WithDescription("Recompute every dynamic folder from current usage."),
)

// Profile tools

var profileCreateToolDef = mcp.NewTool("profile_create",
	mcp.WithDescription("Create a profile. Profiles are evaluated in creation order and the first whose rules match becomes current."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Profile name")),
	mcp.WithArray("folders", folderRefItems, mcp.Description("Folders shown while the profile is current")),
	mcp.WithArray("rules", ruleItems, mcp.Description("Activation rules; any one matching activates the profile")),
)

var profileUpdateToolDef = mcp.NewTool("profile_update",
	mcp.WithDescription("Edit a profile. Omitted fields are unchanged."),
	mcp.WithString("id", mcp.Description(descProfileID)),
	mcp.WithString("name", mcp.Description(descProfileName)),
	mcp.WithString("new_name", mcp.Description("New profile name")),
	mcp.WithArray("add_folders", folderRefItems),
	mcp.WithArray("remove_folders", folderRefItems),
	mcp.WithArray("rules", ruleItems, mcp.Description("Replaces all rules; an empty list clears them")),
	mcp.WithArray("add_rules", ruleItems, mcp.Description("Appended after rules is applied")),
)

var profileDeleteToolDef = mcp.NewTool("profile_delete",
	mcp.WithDescription("Delete a profile. If it was current it stays current until the next switch."),
	mcp.WithString("id", mcp.Description(descProfileID)),
	mcp.WithString("name", mcp.Description(descProfileName)),
)

var profileListToolDef = mcp.NewTool("profile_list",
	mcp.WithDescription("List profiles in priority order with the current one flagged."),
)

var profileCurrentToolDef = mcp.NewTool("profile_current",
	mcp.WithDescription("Show the current profile and its folders."),
)

var profileUseToolDef = mcp.NewTool("profile_use",
	mcp.WithDescription("Make a profile current until an activation pass selects another."),
	mcp.WithString("id", mcp.Description(descProfileID)),
	mcp.WithString("name", mcp.Description(descProfileName)),
)

var profileFoldersToolDef = mcp.NewTool("profile_folders",
	mcp.WithDescription("Show a profile's folders that still exist, in profile order."),
	mcp.WithString("id", mcp.Description(descProfileID)),
	mcp.WithString("name", mcp.Description(descProfileName)),
)

// Context and usage tools

var contextEvaluateToolDef = mcp.NewTool("context_evaluate",
	mcp.WithDescription("Run one activation pass: pick the first matching profile and refresh dynamic folders."),
	mcp.WithString("at", mcp.Description("RFC 3339 timestamp (default: now)")),
	mcp.WithNumber("latitude", mcp.Description("Give with longitude (default: configured location)")),
	mcp.WithNumber("longitude", mcp.Description("Give with latitude")),
	mcp.WithString("launched_app", mcp.Description("App just launched, for app_launch rules")),
)

var usageRecordToolDef = mcp.NewTool("usage_record",
	mcp.WithDescription("Count one launch of an app."),
	mcp.WithString("app", mcp.Required(), mcp.Description("App bundle identifier or display name")),
	mcp.WithBoolean("evaluate", mcp.Description("Also run an activation pass for the launch")),
)

var usageStatsToolDef = mcp.NewTool("usage_stats",
	mcp.WithDescription("Most used apps and apps launched fewer than threshold times."),
	mcp.WithNumber("limit", mcp.Description("Most-used entries (default 10)")),
	mcp.WithNumber("threshold", mcp.Description("Launch count separating frequent apps (default 3)")),
)

// Organize tools

var organizeSuggestToolDef = mcp.NewTool("organize_suggest",
	mcp.WithDescription("Propose folders grouping frequently used apps. Changes nothing."),
)

var organizeApplyToolDef = mcp.NewTool("organize_apply",
	mcp.WithDescription("Create a suggested folder for every current suggestion."),
)

var organizeFolderToolDef = mcp.NewTool("organize_folder",
	mcp.WithDescription("Fill a suggested folder with apps predicted for the current time and location, creating it if needed."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Folder name")),
)

var organizeCommandToolDef = mcp.NewTool("organize_command",
	mcp.WithDescription(`Run a short command: "move games to Fun", "create Travel with Maps", "organize" or "organize Morning".`),
	mcp.WithString("text", mcp.Required(), mcp.Description("Command text")),
)
