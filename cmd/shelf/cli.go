package main

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/shelf/internal/activation"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/logger"
	"github.com/hpungsan/shelf/internal/model"
	"github.com/hpungsan/shelf/internal/ops"
	"github.com/hpungsan/shelf/internal/watch"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "shelf",
		Usage:   "Context-aware home screen folders",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Usage: "Override the configured log level: debug|info|warn|error"},
		},
		Before: func(c *cli.Context) error {
			if level := c.String("log-level"); level != "" {
				logger.Setup(level)
			}
			return nil
		},
		Commands: []*cli.Command{
			folderCmd(env),
			profileCmd(env),
			launchCmd(env),
			usageCmd(env),
			evaluateCmd(env),
			suggestCmd(env),
			organizeCmd(env),
			commandCmd(env),
			watchCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// Folder commands

func folderCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "folder",
		Usage: "Manage folders",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a folder",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Folder category (default custom)"},
					&cli.StringFlag{Name: "rule", Aliases: []string{"r"}, Usage: "Dynamic rule: most_used:N, recently_used:N or by_category:LABEL"},
					&cli.StringFlag{Name: "apps", Aliases: []string{"a"}, Usage: "Comma-separated apps for a static folder"},
				},
				Action: func(c *cli.Context) error {
					return run(ops.CreateFolder(c.Context, env, ops.CreateFolderInput{
						Name:     strings.Join(c.Args().Slice(), " "),
						Category: c.String("category"),
						Rule:     c.String("rule"),
						Apps:     parseList(c.String("apps")),
					}))
				},
			},
			{
				Name:      "add",
				Usage:     "Add apps to a folder",
				ArgsUsage: "<folder> <app>...",
				Flags:     []cli.Flag{idFlag()},
				Action: func(c *cli.Context) error {
					ref, rest := folderRef(c)
					return run(ops.AddApps(c.Context, env, ops.AddAppsInput{Folder: ref, Apps: rest}))
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove an app from a folder",
				ArgsUsage: "<folder> <app>",
				Flags:     []cli.Flag{idFlag()},
				Action: func(c *cli.Context) error {
					ref, rest := folderRef(c)
					return run(ops.RemoveApp(c.Context, env, ops.RemoveAppInput{Folder: ref, App: strings.Join(rest, " ")}))
				},
			},
			{
				Name:      "rename",
				Usage:     "Rename a folder",
				ArgsUsage: "<folder> <new name>",
				Flags:     []cli.Flag{idFlag()},
				Action: func(c *cli.Context) error {
					ref, rest := folderRef(c)
					return run(ops.RenameFolder(c.Context, env, ops.RenameFolderInput{Folder: ref, NewName: strings.Join(rest, " ")}))
				},
			},
			{
				Name:      "kind",
				Usage:     "Make a folder dynamic (--smart) or static",
				ArgsUsage: "<folder>",
				Flags: []cli.Flag{
					idFlag(),
					&cli.BoolFlag{Name: "smart", Usage: "Make the folder dynamic"},
					&cli.StringFlag{Name: "rule", Aliases: []string{"r"}, Usage: "Dynamic rule"},
				},
				Action: func(c *cli.Context) error {
					ref, _ := folderRef(c)
					return run(ops.SetFolderKind(c.Context, env, ops.SetFolderKindInput{
						Folder: ref,
						Smart:  c.Bool("smart"),
						Rule:   c.String("rule"),
					}))
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a folder",
				ArgsUsage: "<folder>",
				Flags:     []cli.Flag{idFlag()},
				Action: func(c *cli.Context) error {
					ref, _ := folderRef(c)
					return run(ops.DeleteFolder(c.Context, env, ref))
				},
			},
			{
				Name:  "list",
				Usage: "List folders",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Filter by category"},
					&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Filter by kind: static|dynamic"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items"},
					&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
				},
				Action: func(c *cli.Context) error {
					return run(ops.ListFolders(c.Context, env, ops.ListFoldersInput{
						Category: c.String("category"),
						Kind:     c.String("kind"),
						Limit:    c.Int("limit"),
						Offset:   c.Int("offset"),
					}))
				},
			},
			{
				Name:      "show",
				Usage:     "Show a folder and its apps",
				ArgsUsage: "<folder>",
				Flags:     []cli.Flag{idFlag()},
				Action: func(c *cli.Context) error {
					ref, _ := folderRef(c)
					return run(ops.ShowFolder(c.Context, env, ref))
				},
			},
			{
				Name:  "refresh",
				Usage: "Recompute dynamic folders",
				Action: func(c *cli.Context) error {
					return run(ops.RefreshFolders(c.Context, env))
				},
			},
		},
	}
}

// Profile commands

func profileCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Manage profiles",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a profile",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folders", Aliases: []string{"f"}, Usage: "Comma-separated folder names"},
					&cli.StringSliceFlag{Name: "rule", Aliases: []string{"r"}, Usage: ruleUsage},
				},
				Action: func(c *cli.Context) error {
					rules, err := parseRules(c.StringSlice("rule"))
					if err != nil {
						return outputError(err)
					}
					return run(ops.CreateProfile(c.Context, env, ops.CreateProfileInput{
						Name:    strings.Join(c.Args().Slice(), " "),
						Folders: folderNames(c.String("folders")),
						Rules:   rules,
					}))
				},
			},
			{
				Name:      "update",
				Usage:     "Edit a profile",
				ArgsUsage: "<profile>",
				Flags: []cli.Flag{
					idFlag(),
					&cli.StringFlag{Name: "rename", Usage: "New profile name"},
					&cli.StringFlag{Name: "add-folders", Usage: "Comma-separated folder names to add"},
					&cli.StringFlag{Name: "remove-folders", Usage: "Comma-separated folder names to remove"},
					&cli.StringSliceFlag{Name: "rule", Aliases: []string{"r"}, Usage: "Replace all rules. " + ruleUsage},
					&cli.BoolFlag{Name: "clear-rules", Usage: "Remove all rules"},
					&cli.StringSliceFlag{Name: "add-rule", Usage: "Append a rule"},
				},
				Action: func(c *cli.Context) error {
					ref := profileRef(c)
					input := ops.UpdateProfileInput{
						Profile:       ref,
						AddFolders:    folderNames(c.String("add-folders")),
						RemoveFolders: folderNames(c.String("remove-folders")),
					}
					if c.IsSet("rename") {
						name := c.String("rename")
						input.NewName = &name
					}
					if c.IsSet("rule") || c.Bool("clear-rules") {
						rules, err := parseRules(c.StringSlice("rule"))
						if err != nil {
							return outputError(err)
						}
						input.Rules = &rules
					}
					added, err := parseRules(c.StringSlice("add-rule"))
					if err != nil {
						return outputError(err)
					}
					input.AddRules = added
					return run(ops.UpdateProfile(c.Context, env, input))
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a profile",
				ArgsUsage: "<profile>",
				Flags:     []cli.Flag{idFlag()},
				Action: func(c *cli.Context) error {
					return run(ops.DeleteProfile(c.Context, env, profileRef(c)))
				},
			},
			{
				Name:  "list",
				Usage: "List profiles in priority order",
				Action: func(c *cli.Context) error {
					return run(ops.ListProfiles(c.Context, env))
				},
			},
			{
				Name:  "current",
				Usage: "Show the current profile",
				Action: func(c *cli.Context) error {
					return run(ops.CurrentProfile(c.Context, env))
				},
			},
			{
				Name:      "use",
				Usage:     "Switch to a profile",
				ArgsUsage: "<profile>",
				Flags:     []cli.Flag{idFlag()},
				Action: func(c *cli.Context) error {
					return run(ops.UseProfile(c.Context, env, profileRef(c)))
				},
			},
			{
				Name:      "folders",
				Usage:     "Show a profile's folders",
				ArgsUsage: "<profile>",
				Flags:     []cli.Flag{idFlag()},
				Action: func(c *cli.Context) error {
					return run(ops.ProfileFolders(c.Context, env, profileRef(c)))
				},
			},
		},
	}
}

// Activity commands

func launchCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "launch",
		Usage:     "Record an app launch",
		ArgsUsage: "<app>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "evaluate", Aliases: []string{"e"}, Usage: "Run an activation pass for the launch"},
		},
		Action: func(c *cli.Context) error {
			return run(ops.RecordLaunch(c.Context, env, ops.RecordLaunchInput{
				App:      strings.Join(c.Args().Slice(), " "),
				Evaluate: c.Bool("evaluate"),
			}))
		},
	}
}

func usageCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "usage",
		Usage: "Show usage statistics",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Most-used entries (default 10)"},
			&cli.IntFlag{Name: "threshold", Aliases: []string{"t"}, Usage: "Launches separating frequent apps (default 3)"},
		},
		Action: func(c *cli.Context) error {
			return run(ops.UsageStats(c.Context, env, ops.UsageStatsInput{
				Limit:     c.Int("limit"),
				Threshold: c.Int("threshold"),
			}))
		},
	}
}

func evaluateCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "evaluate",
		Usage: "Pick the current profile for a context and refresh dynamic folders",
		Flags: []cli.Flag{
			&cli.TimestampFlag{Name: "at", Layout: time.RFC3339, Usage: "Evaluation time (default now)"},
			&cli.StringFlag{Name: "location", Aliases: []string{"l"}, Usage: "LAT,LON (default configured location)"},
			&cli.StringFlag{Name: "app", Usage: "App just launched"},
		},
		Action: func(c *cli.Context) error {
			input := ops.EvaluateInput{At: c.Timestamp("at"), LaunchedApp: c.String("app")}
			if s := c.String("location"); s != "" {
				coord, err := parseCoordinate(s)
				if err != nil {
					return outputError(err)
				}
				input.Latitude, input.Longitude = &coord.Latitude, &coord.Longitude
			}
			return run(ops.Evaluate(c.Context, env, input))
		},
	}
}

// Organize commands

func suggestCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "suggest",
		Usage: "Suggest folders from usage",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "apply", Usage: "Create the suggested folders"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("apply") {
				return runPartial(ops.ApplySuggestions(c.Context, env))
			}
			return run(ops.Suggest(c.Context, env))
		},
	}
}

func organizeCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "organize",
		Usage:     "Fill a folder with predicted apps, or apply suggestions when no folder is named",
		ArgsUsage: "[folder]",
		Action: func(c *cli.Context) error {
			name := strings.Join(c.Args().Slice(), " ")
			if name == "" {
				return runPartial(ops.RunCommand(c.Context, env, ops.RunCommandInput{Text: "organize"}))
			}
			return run(ops.Organize(c.Context, env, ops.OrganizeInput{Name: name}))
		},
	}
}

func commandCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "command",
		Usage:     `Run a short command, e.g. "move games to Fun"`,
		ArgsUsage: "<text>",
		Action: func(c *cli.Context) error {
			return runPartial(ops.RunCommand(c.Context, env, ops.RunCommandInput{Text: strings.Join(c.Args().Slice(), " ")}))
		},
	}
}

// watchCmd re-evaluates on a schedule and prints every profile switch. When stdin
// is piped it also reads events, one per line: "launch <app>", "location <lat>,<lon>"
// or "tick".
func watchCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Re-evaluate profiles on a schedule and print switches",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "schedule", Aliases: []string{"s"}, Usage: "Cron spec (default from config, @every 1m)"},
			&cli.DurationFlag{Name: "for", Usage: "Stop after this long (default: until interrupted)"},
		},
		Action: func(c *cli.Context) error {
			schedule := c.String("schedule")
			if schedule == "" {
				schedule = env.Config.TickSchedule
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if d := c.Duration("for"); d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			w := watch.New(env.Engine, env.Usage,
				watch.WithSchedule(schedule),
				watch.WithLocation(env.ConfiguredLocation()),
				watch.WithClock(env.Now),
				watch.WithResultHook(func(snap model.Snapshot, res activation.Result) {
					if res.Changed {
						_ = outputJSON(map[string]any{"trigger": snap.Trigger, "at": snap.Now, "current": res.Current})
					}
				}),
			)
			if err := w.Start(ctx); err != nil {
				return outputError(err)
			}
			defer w.Stop()

			w.SubmitTick()
			if stdinHasData() {
				go readEvents(ctx, os.Stdin, w)
			}
			<-ctx.Done()
			return nil
		},
	}
}

func readEvents(ctx context.Context, r io.Reader, w *watch.Watcher) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		verb, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		arg = strings.TrimSpace(arg)
		var err error
		switch verb {
		case "":
			continue
		case "tick":
			w.SubmitTick()
		case "launch":
			err = w.SubmitLaunch(ctx, arg)
		case "location":
			var coord model.Coordinate
			if coord, err = parseCoordinate(arg); err == nil {
				err = w.SubmitLocation(ctx, coord)
			}
		default:
			err = errors.NewInvalidRequest(fmt.Sprintf("unknown event %q", verb))
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

// Helper functions

const ruleUsage = `Activation rule: "time:HH:MM-HH:MM[@days]", "location:LAT,LON,METERS" or "launch:APP"`

func idFlag() cli.Flag {
	return &cli.StringFlag{Name: "id", Usage: "Address by ID instead of name"}
}

// folderRef reads the folder from --id or the first argument and returns the
// remaining arguments.
func folderRef(c *cli.Context) (ops.FolderRef, []string) {
	args := c.Args().Slice()
	if id := c.String("id"); id != "" {
		return ops.FolderRef{ID: id}, args
	}
	if len(args) == 0 {
		return ops.FolderRef{}, nil
	}
	return ops.FolderRef{Name: args[0]}, args[1:]
}

func profileRef(c *cli.Context) ops.ProfileRef {
	if id := c.String("id"); id != "" {
		return ops.ProfileRef{ID: id}
	}
	return ops.ProfileRef{Name: strings.Join(c.Args().Slice(), " ")}
}

func folderNames(s string) []ops.FolderRef {
	names := parseList(s)
	refs := make([]ops.FolderRef, len(names))
	for i, n := range names {
		refs[i] = ops.FolderRef{Name: n}
	}
	return refs
}

// parseRules parses rule flags in order.
func parseRules(specs []string) ([]ops.RuleInput, error) {
	rules := make([]ops.RuleInput, 0, len(specs))
	for _, s := range specs {
		r, err := parseRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// parseRule parses "time:09:00-17:00@mon-fri", "location:52.52,13.40,500" or
// "launch:com.apple.Maps".
func parseRule(s string) (ops.RuleInput, error) {
	kind, arg, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ops.RuleInput{}, errors.NewInvalidRequest(fmt.Sprintf("invalid rule %q, want type:argument", s))
	}
	switch kind {
	case "time":
		window, days, _ := strings.Cut(arg, "@")
		start, end, ok := strings.Cut(window, "-")
		if !ok {
			return ops.RuleInput{}, errors.NewInvalidRequest(fmt.Sprintf("invalid time rule %q, want time:HH:MM-HH:MM", s))
		}
		return ops.RuleInput{Type: string(model.RuleTimeWindow), Start: start, End: end, Days: days}, nil
	case "location":
		parts := strings.Split(arg, ",")
		if len(parts) != 3 {
			return ops.RuleInput{}, errors.NewInvalidRequest(fmt.Sprintf("invalid location rule %q, want location:LAT,LON,METERS", s))
		}
		var nums [3]float64
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return ops.RuleInput{}, errors.NewInvalidRequest(fmt.Sprintf("invalid number %q in rule %q", p, s))
			}
			nums[i] = f
		}
		return ops.RuleInput{Type: string(model.RuleLocation), Latitude: nums[0], Longitude: nums[1], RadiusMeters: nums[2]}, nil
	case "launch":
		return ops.RuleInput{Type: string(model.RuleAppLaunch), App: arg}, nil
	default:
		return ops.RuleInput{}, errors.NewInvalidRequest(fmt.Sprintf("unknown rule type %q (want time, location or launch)", kind))
	}
}

// parseCoordinate parses "LAT,LON".
func parseCoordinate(s string) (model.Coordinate, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return model.Coordinate{}, errors.NewInvalidRequest(fmt.Sprintf("invalid location %q, want LAT,LON", s))
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err := stderrors.Join(err1, err2); err != nil {
		return model.Coordinate{}, errors.NewInvalidRequest(fmt.Sprintf("invalid location %q, want LAT,LON", s))
	}
	c := model.Coordinate{Latitude: lat, Longitude: lon}
	if !c.Valid() {
		return model.Coordinate{}, errors.NewInvalidRequest("location out of range")
	}
	return c, nil
}

// run prints an ops result or converts its error for the CLI.
func run[T any](out T, err error) error {
	if err != nil {
		return outputError(err)
	}
	return outputJSON(out)
}

// runPartial is run for operations that may fail after changing something: the
// partial output, when there is one, is printed before the error.
func runPartial[T any](out *T, err error) error {
	if err != nil {
		if out != nil {
			_ = outputJSON(out)
		}
		return outputError(err)
	}
	return outputJSON(out)
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var shelfErr *errors.ShelfError
	if stderrors.As(err, &shelfErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", shelfErr.Code, shelfErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// parseList splits a comma-separated string, dropping empty entries.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
