package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hpungsan/shelf/internal/catalog"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/model"
	"github.com/hpungsan/shelf/internal/predict"
	"github.com/hpungsan/shelf/internal/registry"
	"github.com/hpungsan/shelf/internal/suggest"
)

// Outcome reports what a dispatched command did.
type Outcome struct {
	Intent  Intent         `json:"intent"`
	Action  string         `json:"action"`
	Folders []model.Folder `json:"folders"`
	Message string         `json:"message"`
}

// Dispatcher executes intents against the folder registry.
type Dispatcher struct {
	Folders   *registry.Folders
	Catalog   catalog.AppCatalog
	Suggester *suggest.Engine
	Usage     suggest.UsageReader
	Predictor predict.UsagePredictor

	// Now and Location feed the predictor for organize commands
	Now      func() time.Time
	Location *model.Coordinate
}

// Run interprets text with in and dispatches the result.
func (d *Dispatcher) Run(ctx context.Context, in Interpreter, text string) (Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return Outcome{}, errors.NewInvalidRequest("command text must not be empty")
	}
	if in == nil {
		in = Simple{}
	}
	return d.Dispatch(ctx, in.Interpret(text))
}

// Dispatch executes one intent.
//
//	move|put <app words> to <folder>   add matching installed apps to a folder
//	create <folder> [<app names>]      create a custom folder
//	organize [<folder>]                fill a suggested folder with predicted apps,
//	                                   or apply usage-based suggestions
func (d *Dispatcher) Dispatch(ctx context.Context, in Intent) (Outcome, error) {
	slog.Debug("Dispatching command", "verb", in.Verb, "nouns", in.Nouns, "target", in.Target)

	switch in.Verb {
	case VerbMove, VerbPut:
		return d.move(ctx, in)
	case VerbCreate:
		return d.create(ctx, in)
	case VerbOrganize:
		return d.organize(ctx, in)
	case "":
		return Outcome{}, errors.NewInvalidRequest("command text must not be empty")
	default:
		return Outcome{}, errors.NewInvalidRequest(fmt.Sprintf("unknown command %q (want move, put, create or organize)", in.Verb))
	}
}

func (d *Dispatcher) move(ctx context.Context, in Intent) (Outcome, error) {
	subjects := in.Subjects()
	name := in.FolderName()
	if len(subjects) == 0 || name == "" {
		return Outcome{}, errors.NewInvalidRequest("move needs apps and a folder, e.g. \"move games to Fun\"")
	}

	var apps []string
	for _, s := range subjects {
		apps = append(apps, d.matchApps(s)...)
	}
	apps = model.Dedupe(apps)
	if len(apps) == 0 {
		return Outcome{}, errors.NewInvalidRequest(fmt.Sprintf("no installed app matches %q", strings.Join(subjects, " ")))
	}

	f, created, err := d.ensureFolder(ctx, name, model.CategoryCustom)
	if err != nil {
		return Outcome{}, err
	}
	f, err = d.Folders.AddApps(ctx, f.ID, apps)
	if err != nil {
		return Outcome{}, err
	}

	msg := fmt.Sprintf("Moved %d app(s) to %s", len(apps), f.Name)
	if created {
		msg += " (new folder)"
	}
	return Outcome{Intent: in, Action: VerbMove, Folders: []model.Folder{f}, Message: msg}, nil
}

func (d *Dispatcher) create(ctx context.Context, in Intent) (Outcome, error) {
	name := in.FolderName()
	if name == "" {
		return Outcome{}, errors.NewInvalidRequest("create needs a folder name")
	}

	f, err := d.Folders.Create(ctx, name, model.CategoryCustom)
	if err != nil {
		return Outcome{}, err
	}

	var apps []string
	for _, s := range in.Subjects() {
		if ref, ok := catalog.BundleFor(d.Catalog, s); ok {
			apps = append(apps, ref)
		}
	}
	if len(apps) > 0 {
		if f, err = d.Folders.AddApps(ctx, f.ID, apps); err != nil {
			return Outcome{}, err
		}
	}
	return Outcome{Intent: in, Action: VerbCreate, Folders: []model.Folder{f}, Message: "Created folder " + f.Name}, nil
}

func (d *Dispatcher) organize(ctx context.Context, in Intent) (Outcome, error) {
	name := in.FolderName()
	if name == "" {
		if d.Suggester == nil {
			return Outcome{Intent: in, Action: VerbOrganize, Folders: []model.Folder{}, Message: "Nothing to organize"}, nil
		}
		suggestions := d.Suggester.Suggest(d.Usage, d.Folders.All())
		created, err := suggest.Apply(ctx, d.Folders, suggestions)
		return Outcome{
			Intent:  in,
			Action:  VerbOrganize,
			Folders: created,
			Message: fmt.Sprintf("Created %d suggested folder(s)", len(created)),
		}, err
	}

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	apps := model.Dedupe(predict.Safe(d.Predictor).Predict(now(), d.Location))

	f, _, err := d.ensureFolder(ctx, name, model.CategorySuggested)
	if err != nil {
		return Outcome{}, err
	}
	if f, err = d.Folders.AddApps(ctx, f.ID, apps); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Intent:  in,
		Action:  VerbOrganize,
		Folders: []model.Folder{f},
		Message: fmt.Sprintf("Organized %d predicted app(s) into %s", len(apps), f.Name),
	}, nil
}

// ensureFolder returns the folder named name, creating it in category when absent.
func (d *Dispatcher) ensureFolder(ctx context.Context, name string, category model.Category) (model.Folder, bool, error) {
	if f, ok := d.Folders.ByName(name); ok {
		return f, false, nil
	}
	f, err := d.Folders.Create(ctx, name, category)
	return f, err == nil, err
}

// matchApps finds installed apps whose display name contains word, or whose
// category label is word. A trailing plural "s" is ignored.
func (d *Dispatcher) matchApps(word string) []string {
	if d.Catalog == nil {
		return nil
	}
	word = strings.ToLower(word)
	stem := word
	if len(stem) > 3 {
		stem = strings.TrimSuffix(stem, "s")
	}

	var out []string
	for _, app := range d.Catalog.AllInstalledApps() {
		name := strings.ToLower(app.Name)
		if name == "" {
			continue
		}
		label := app.Category
		if label == "" {
			label = catalog.Classify(app.Name)
		}
		if strings.Contains(name, stem) || strings.EqualFold(label, word) {
			out = append(out, app.AppRef)
		}
	}
	return out
}
