package userinteraction

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"portal-agent/internal/application/port/output"
	"portal-agent/internal/domain/entity"
)

var _ output.UserInteractionPort = (*ConsoleUserInteraction)(nil)

// ConsoleUserInteraction answers the agent's clarifying questions from
// stdin. Used by the CLI; the HTTP transport pauses runs instead.
type ConsoleUserInteraction struct {
	reader *bufio.Reader
}

func NewConsoleUserInteraction() *ConsoleUserInteraction {
	return &ConsoleUserInteraction{
		reader: bufio.NewReader(os.Stdin),
	}
}

func (u *ConsoleUserInteraction) AskQuestion(ctx context.Context, question string) (string, error) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Printf("\n[USER INPUT REQUIRED] %s\n", question)
	fmt.Print("> ")

	answer, err := u.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read user input: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// ChooseOption prints a numbered list and returns the zero-based index
// of the choice. An empty or unparsable reply selects the first option.
func (u *ConsoleUserInteraction) ChooseOption(ctx context.Context, question string, options []entity.Candidate) (int, error) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Printf("\n[CHOICE REQUIRED] %s\n", question)
	for i, opt := range options {
		label := opt.Text
		if label == "" {
			label = opt.Selector
		}
		fmt.Printf("  %d. [%s] %s\n", i+1, opt.Kind, label)
	}
	fmt.Print("> ")

	answer, err := u.reader.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("failed to read user input: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || n < 1 || n > len(options) {
		return 0, nil
	}
	return n - 1, nil
}

func (u *ConsoleUserInteraction) ConfirmDone(ctx context.Context, reason string) (bool, error) {
	green := color.New(color.FgGreen, color.Bold)
	green.Printf("\n[DONE?] %s\n", reason)
	fmt.Print("Accept this result? [Y/n] > ")

	answer, err := u.reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read user input: %w", err)
	}
	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "" || a == "y" || a == "yes", nil
}
