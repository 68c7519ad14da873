package output

import (
	"context"

	"portal-agent/internal/domain/entity"
)

// UserInteractionPort handles the interactive deployment mode:
// clarification questions on ambiguous matches and confirmation before
// a terminal finish. Fully automated builds run without it.
type UserInteractionPort interface {
	AskQuestion(ctx context.Context, question string) (string, error)
	ChooseOption(ctx context.Context, question string, options []entity.Candidate) (int, error)
	ConfirmDone(ctx context.Context, reason string) (bool, error)
}
