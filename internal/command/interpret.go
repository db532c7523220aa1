// Package command turns short free-text commands into folder operations.
package command

import (
	"strings"
)

// Verbs understood by Dispatcher.
const (
	VerbMove     = "move"
	VerbPut      = "put"
	VerbCreate   = "create"
	VerbOrganize = "organize"
)

// Intent is a parsed command.
type Intent struct {
	Verb string `json:"verb"`

	// Nouns are the remaining words in order. Stop words are removed before the
	// target phrase; the target phrase is kept as typed.
	Nouns []string `json:"nouns"`

	// Target is the phrase after the last "to", "into", "called" or "named", if any
	Target string `json:"target,omitempty"`
}

// Interpreter parses free text into an Intent.
type Interpreter interface {
	Interpret(text string) Intent
}

// Simple splits on whitespace: the first word is the verb and the remaining
// non-stop words are nouns.
type Simple struct{}

var _ Interpreter = Simple{}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "my": true, "all": true, "and": true,
	"to": true, "into": true, "in": true, "called": true, "named": true,
	"folder": true, "app": true, "apps": true, "please": true, "new": true,
}

var targetMarkers = map[string]bool{"to": true, "into": true, "called": true, "named": true}

// Interpret implements Interpreter.
func (Simple) Interpret(text string) Intent {
	words := strings.Fields(text)
	if len(words) == 0 {
		return Intent{Nouns: []string{}}
	}

	in := Intent{Verb: strings.ToLower(words[0]), Nouns: []string{}}
	rest := words[1:]

	targetAt := -1
	for i, w := range rest {
		if targetMarkers[strings.ToLower(w)] {
			targetAt = i
		}
	}

	var target []string
	for i, w := range rest {
		if targetAt >= 0 && i > targetAt {
			in.Nouns = append(in.Nouns, w)
			target = append(target, w)
			continue
		}
		if stopWords[strings.ToLower(w)] {
			continue
		}
		in.Nouns = append(in.Nouns, w)
	}
	in.Target = strings.Join(target, " ")
	return in
}

// FolderName is the folder a command refers to: the target phrase, or the last noun.
func (in Intent) FolderName() string {
	if in.Target != "" {
		return in.Target
	}
	if len(in.Nouns) == 0 {
		return ""
	}
	return in.Nouns[len(in.Nouns)-1]
}

// Subjects are the nouns before the target phrase.
func (in Intent) Subjects() []string {
	n := len(in.Nouns)
	if in.Target != "" {
		n -= len(strings.Fields(in.Target))
	} else if n > 0 {
		n--
	}
	if n < 0 {
		n = 0
	}
	return in.Nouns[:n]
}
