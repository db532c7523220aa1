package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/shelf/internal/command"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/model"
	"github.com/hpungsan/shelf/internal/suggest"
)

// SuggestOutput contains the result of the Suggest operation.
type SuggestOutput struct {
	Suggestions []suggest.Suggestion `json:"suggestions"`
}

// Suggest proposes folders from usage without changing anything.
func Suggest(_ context.Context, env *Env) (*SuggestOutput, error) {
	return &SuggestOutput{Suggestions: env.Suggester.Suggest(env.Usage, env.Folders.All())}, nil
}

// ApplySuggestionsOutput contains the result of the ApplySuggestions operation.
type ApplySuggestionsOutput struct {
	Created []model.Folder `json:"created"`
}

// ApplySuggestions creates a suggested folder for every current suggestion. On
// failure the folders created before it are returned along with the error.
func ApplySuggestions(ctx context.Context, env *Env) (*ApplySuggestionsOutput, error) {
	suggestions := env.Suggester.Suggest(env.Usage, env.Folders.All())
	created, err := suggest.Apply(ctx, env.Folders, suggestions)
	if err != nil && len(created) == 0 {
		return nil, err
	}
	return &ApplySuggestionsOutput{Created: created}, err
}

// OrganizeInput contains parameters for the Organize operation.
type OrganizeInput struct {
	Name string // folder to fill with predicted apps, required
}

// Organize fills a suggested folder with the apps predicted for the current time
// and configured location. The folder is created if needed.
func Organize(ctx context.Context, env *Env, input OrganizeInput) (*command.Outcome, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	out, err := env.Dispatcher().Dispatch(ctx, command.Intent{
		Verb:   command.VerbOrganize,
		Nouns:  strings.Fields(name),
		Target: name,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RunCommandInput contains parameters for the RunCommand operation.
type RunCommandInput struct {
	Text string // e.g. "move games to Fun", required
}

// RunCommand interprets and executes a free-text command. When a command fails
// after creating folders, the outcome listing them is returned with the error.
func RunCommand(ctx context.Context, env *Env, input RunCommandInput) (*command.Outcome, error) {
	out, err := env.Dispatcher().Run(ctx, command.Simple{}, input.Text)
	if err != nil {
		if len(out.Folders) > 0 {
			return &out, err
		}
		return nil, err
	}
	return &out, nil
}
