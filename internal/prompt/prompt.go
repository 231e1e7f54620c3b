package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Confirmer asks yes/no questions.
type Confirmer interface {
	Confirm(question string, defaultValue bool) bool
}

// Asker asks for free text.
type Asker interface {
	Ask(question string) (string, error)
}

// Prompter implements Confirmer and Asker on top of a line reader.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// ErrNoInput is returned by Ask when the input ends before any text was typed.
var ErrNoInput = errors.New("no input")

// NewPrompter creates a prompter bound to stdin and stdout.
func NewPrompter() *Prompter {
	return NewPrompterWithIO(os.Stdin, os.Stdout)
}

// NewPrompterWithIO creates a prompter with custom input and output.
func NewPrompterWithIO(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Confirm prints question and maps "y"/"n" (case-insensitive) to true/false.
// Any other answer returns defaultValue.
func (p *Prompter) Confirm(question string, defaultValue bool) bool {
	answer, err := p.readLine(question)
	if err != nil {
		return defaultValue
	}

	switch strings.ToLower(answer) {
	case "y":
		return true
	case "n":
		return false
	default:
		return defaultValue
	}
}

// Ask prints question and returns the trimmed line typed by the operator.
func (p *Prompter) Ask(question string) (string, error) {
	answer, err := p.readLine(question)
	if err != nil {
		return "", err
	}

	return answer, nil
}

func (p *Prompter) readLine(question string) (string, error) {
	_, _ = fmt.Fprintf(p.out, "%s > ", strings.TrimSpace(question))

	line, err := p.in.ReadString('\n')
	if err != nil {
		// A last line without a newline is still an answer.
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}

		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}

		return "", fmt.Errorf("read answer: %w", err)
	}

	return strings.TrimSpace(line), nil
}
