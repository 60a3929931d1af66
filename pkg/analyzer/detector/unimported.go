package detector

import (
	"context"
	"time"

	"github.com/panbanda/unused-cleaner/internal/runner"
)

// Unimported runs `unimported --json` to find files and imports that no
// entry point reaches.
type Unimported struct {
	Runner  runner.Runner
	Timeout time.Duration
}

type unimportedOutput struct {
	UnusedFiles   []string `json:"unusedFiles"`
	UnusedImports []string `json:"unusedImports"`
	UnusedExports []string `json:"unusedExports"`
}

func (u *Unimported) Name() string { return "unimported" }

func (u *Unimported) DetectFiles(ctx context.Context, root string) (*FileFindings, error) {
	res, runErr := npx(ctx, u.Runner, root, u.Timeout, "unimported", "--json")

	var out unimportedOutput
	err := acceptOutput(u.Name(), res, runErr, func(data []byte) error {
		return decodeValidated("unimported.json", data, &out)
	})
	if err != nil {
		return nil, err
	}

	return &FileFindings{
		UnusedFiles:   out.UnusedFiles,
		UnusedImports: out.UnusedImports,
		UnusedExports: out.UnusedExports,
	}, nil
}
