package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/elk-language/go-prompt"
	istrings "github.com/elk-language/go-prompt/strings"

	"github.com/quocvuong92/kshell/internal/constants"
	"github.com/quocvuong92/kshell/internal/tree"
)

// InteractiveSession holds the state of the interactive prompt.
type InteractiveSession struct {
	app         *App
	shell       *Shell
	ctx         context.Context
	inputBuffer []string // Buffer for multiline input
}

// completer suggests the children of the command typed so far, walking the
// command tree one word at a time.
func (s *InteractiveSession) completer(d prompt.Document) ([]prompt.Suggest, istrings.RuneNumber, istrings.RuneNumber) {
	endIndex := d.CurrentRuneIndex()
	w := d.GetWordBeforeCursor()
	startIndex := endIndex - istrings.RuneCountInString(w)

	return suggest(s.shell.Tree(), d.TextBeforeCursor()), startIndex, endIndex
}

// suggest lists completions for the last word of text. Nothing is suggested
// once a flag or a quoted word appears.
func suggest(t *tree.Tree, text string) []prompt.Suggest {
	words := strings.Fields(text)
	w := ""
	if len(words) > 0 && !strings.HasSuffix(text, " ") {
		w = words[len(words)-1]
		words = words[:len(words)-1]
	}
	for _, word := range words {
		if strings.HasPrefix(word, "-") || strings.ContainsAny(word, `"'`) {
			return nil
		}
	}
	if strings.HasPrefix(w, "-") {
		return nil
	}

	var suggestions []prompt.Suggest
	for _, c := range t.Children(tree.Route(words...)) {
		desc := c.Docs
		if c.Synonym != "" {
			desc = strings.TrimSpace(desc + " (alias of " + strings.ReplaceAll(strings.TrimPrefix(c.Synonym, "/"), "/", " ") + ")")
		}
		suggestions = append(suggestions, prompt.Suggest{Text: c.Name, Description: desc})
	}
	return prompt.FilterHasPrefix(suggestions, w, true)
}

// runInteractive reads command lines until quit, exit, Ctrl+D on an empty
// line, or Ctrl+C at the prompt. Ctrl+C while a command runs cancels only
// that command.
func (app *App) runInteractive(ctx context.Context, sh *Shell) error {
	fmt.Fprintf(app.out, "%s %s - Interactive Mode\n", constants.AppName, constants.AppVersion)
	fmt.Fprintln(app.out, "Type help for commands, Tab to complete, Ctrl+D to quit")
	fmt.Fprintln(app.out, "End a line with \\ for multiline input")
	fmt.Fprintln(app.out)

	session := &InteractiveSession{app: app, shell: sh, ctx: ctx}

	p := prompt.New(
		session.executor,
		prompt.WithCompleter(session.completer),
		prompt.WithPrefix(app.cfg.Prompt),
		prompt.WithTitle(constants.AppName),
		prompt.WithPrefixTextColor(prompt.Green),
		prompt.WithSuggestionBGColor(prompt.DarkBlue),
		prompt.WithSuggestionTextColor(prompt.White),
		prompt.WithSelectedSuggestionBGColor(prompt.Cyan),
		prompt.WithSelectedSuggestionTextColor(prompt.Black),
		prompt.WithDescriptionBGColor(prompt.DarkBlue),
		prompt.WithDescriptionTextColor(prompt.LightGray),
		prompt.WithSelectedDescriptionBGColor(prompt.Cyan),
		prompt.WithSelectedDescriptionTextColor(prompt.Black),
		prompt.WithScrollbarBGColor(prompt.DarkGray),
		prompt.WithScrollbarThumbColor(prompt.White),
		prompt.WithMaxSuggestion(15),
		prompt.WithCompletionOnDown(),
		prompt.WithExitChecker(func(in string, breakline bool) bool {
			return sh.Quitting()
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(p *prompt.Prompt) bool {
				fmt.Fprintln(app.out, "\nBye!")
				sh.Quit()
				return false
			},
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlD,
			Fn: func(p *prompt.Prompt) bool {
				if p.Buffer().Text() == "" {
					fmt.Fprintln(app.out, "Bye!")
					sh.Quit()
				}
				return false
			},
		}),
	)

	p.Run()
	return nil
}

// executor runs one input line, joining backslash-continued lines first.
func (s *InteractiveSession) executor(input string) {
	if s.shell.Quitting() {
		return
	}

	line, complete := s.join(input)
	if !complete {
		fmt.Fprint(s.app.out, "... ") // Show continuation prompt
		return
	}
	if strings.TrimSpace(line) == "" {
		return
	}

	ctx, stop := signal.NotifyContext(s.ctx, os.Interrupt)
	defer stop()
	_ = s.shell.Run(ctx, line)
}

// join buffers lines ending in a backslash. It returns the full line and
// true once a line without a trailing backslash arrives.
func (s *InteractiveSession) join(input string) (string, bool) {
	if strings.HasSuffix(input, "\\") {
		s.inputBuffer = append(s.inputBuffer, strings.TrimSuffix(input, "\\"))
		return "", false
	}
	if len(s.inputBuffer) > 0 {
		s.inputBuffer = append(s.inputBuffer, input)
		input = strings.Join(s.inputBuffer, " ")
		s.inputBuffer = nil
	}
	return input, true
}
