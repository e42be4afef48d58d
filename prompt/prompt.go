// Package prompt asks the operator questions on a terminal.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/ll2l/esmigrate/dates"
	"github.com/ll2l/esmigrate/migrate"
)

type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", errors.New("no answer: input closed")
		}
		return "", errors.Trace(err)
	}
	return strings.TrimSpace(line), nil
}

// Date asks until the answer is a valid YYYY-MM-DD date.
func (p *Prompter) Date(label string) (time.Time, error) {
	for {
		answer, err := p.ask(label + " (YYYY-MM-DD): ")
		if err != nil {
			return time.Time{}, err
		}
		d, err := dates.Parse(answer)
		if err == nil {
			return d, nil
		}
		fmt.Fprintf(p.out, "invalid date %q\n", answer)
	}
}

// Confirm returns true only for an explicit yes.
func (p *Prompter) Confirm(question string) (bool, error) {
	answer, err := p.ask(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Choose shows numbered options and returns the zero-based pick.
func (p *Prompter) Choose(question string, options ...string) (int, error) {
	fmt.Fprintln(p.out, question)
	for i, o := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, o)
	}
	for {
		answer, err := p.ask("choice: ")
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(p.out, "enter a number between 1 and %d\n", len(options))
	}
}

// Resolve asks what to do with a destination index that already exists.
func (p *Prompter) Resolve(ctx context.Context, u migrate.Unit) (migrate.Decision, error) {
	if err := ctx.Err(); err != nil {
		return migrate.DecisionSkip, errors.Trace(err)
	}
	fmt.Fprintf(p.out, "index %s already exists on the destination\n", u.Index)
	for {
		answer, err := p.ask("[d]elete and restore, [s]kip, skip [a]ll remaining: ")
		if err != nil {
			return migrate.DecisionSkip, err
		}
		switch strings.ToLower(answer) {
		case "d", "delete":
			return migrate.DecisionOverwrite, nil
		case "s", "skip":
			return migrate.DecisionSkip, nil
		case "a", "all":
			return migrate.DecisionSkipAll, nil
		}
	}
}

var _ migrate.ConflictResolver = (*Prompter)(nil)
