package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/term"
)

// Prompter is the interactive sink used to collect answers.
type Prompter interface {
	Prompt(ctx context.Context, text, def string, choices []string) (string, error)
	Confirm(ctx context.Context, text string, def bool) (bool, error)
	Password(ctx context.Context, text, def string) (string, error)
}

// ErrNoInput is returned when input ends before a valid answer was given.
var ErrNoInput = errors.New("no input available")

// LinePrompter reads one line of input per question.
type LinePrompter struct {
	in  *bufio.Reader
	raw io.Reader
	out io.Writer
}

// NewLinePrompter builds a prompter reading from in and rendering to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), raw: in, out: out}
}

// Prompt asks for a free-form value. When choices are declared, input
// outside of them is rejected and the question is asked again.
func (p *LinePrompter) Prompt(ctx context.Context, text, def string, choices []string) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		fmt.Fprint(p.out, renderQuestion(text, def, choices))
		line, err := p.readLine()
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return "", ErrNoInput
			}
			return "", err
		}

		value := strings.TrimSpace(line)
		if value == "" {
			value = def
		}
		if len(choices) > 0 && !slices.Contains(choices, value) {
			fmt.Fprintln(p.out, invalidStyle.Render("Please select one of the available options"))
			continue
		}
		return value, nil
	}
}

// Confirm asks a yes/no question.
func (p *LinePrompter) Confirm(ctx context.Context, text string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		fmt.Fprintf(p.out, "%s [%s]: ", text, hint)
		line, err := p.readLine()
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return false, ErrNoInput
			}
			return false, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(p.out, invalidStyle.Render("Please enter Y or N"))
		}
	}
}

// Password asks for a secret. Input is hidden when reading from a terminal.
// An empty answer keeps def.
func (p *LinePrompter) Password(ctx context.Context, text, def string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prompt := text
	if def != "" {
		prompt += " (leave empty to keep the current value)"
	}
	fmt.Fprint(p.out, prompt+": ")

	var (
		line string
		err  error
	)
	if f, ok := p.raw.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		var secret []byte
		secret, err = term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		line = string(secret)
	} else {
		line, err = p.readLine()
	}
	if err != nil && line == "" && !errors.Is(err, io.EOF) {
		return "", err
	}

	value := strings.TrimSpace(line)
	if value == "" {
		if def == "" && errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return def, nil
	}
	return value, nil
}

func (p *LinePrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

func renderQuestion(text, def string, choices []string) string {
	var b strings.Builder
	b.WriteString(text)
	if len(choices) > 0 {
		b.WriteString(" [" + strings.Join(choices, "/") + "]")
	}
	if def != "" {
		b.WriteString(" " + defaultStyle.Render("("+def+")"))
	}
	b.WriteString(": ")
	return b.String()
}

// AutoPrompter answers every question with its default and never blocks.
type AutoPrompter struct{}

// Prompt returns def.
func (AutoPrompter) Prompt(_ context.Context, _ string, def string, _ []string) (string, error) {
	return def, nil
}

// Confirm returns def.
func (AutoPrompter) Confirm(_ context.Context, _ string, def bool) (bool, error) {
	return def, nil
}

// Password returns def.
func (AutoPrompter) Password(_ context.Context, _ string, def string) (string, error) {
	return def, nil
}

var (
	_ Prompter = (*LinePrompter)(nil)
	_ Prompter = AutoPrompter{}
)
