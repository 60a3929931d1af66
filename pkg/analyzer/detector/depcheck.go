package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/panbanda/unused-cleaner/internal/runner"
)

// Depcheck runs `depcheck --json` to find unused and missing dependencies.
type Depcheck struct {
	Runner  runner.Runner
	Timeout time.Duration
	// SkipDev leaves unused devDependencies out of the findings.
	SkipDev bool
}

// depcheck prints dependency lists as arrays; older releases and some
// wrappers print objects keyed by name. Both are accepted.
type depcheckOutput struct {
	Dependencies    json.RawMessage            `json:"dependencies"`
	DevDependencies json.RawMessage            `json:"devDependencies"`
	Missing         map[string]json.RawMessage `json:"missing"`
}

func (d *Depcheck) Name() string { return "depcheck" }

func (d *Depcheck) DetectDependencies(ctx context.Context, root string) (*DependencyFindings, error) {
	res, runErr := npx(ctx, d.Runner, root, d.Timeout, "depcheck", "--json")

	var out depcheckOutput
	err := acceptOutput(d.Name(), res, runErr, func(data []byte) error {
		return decodeValidated("depcheck.json", data, &out)
	})
	if err != nil {
		return nil, err
	}

	unused, err := names(out.Dependencies)
	if err != nil {
		return nil, err
	}
	if !d.SkipDev {
		dev, err := names(out.DevDependencies)
		if err != nil {
			return nil, err
		}
		unused = append(unused, dev...)
	}

	missing := make([]string, 0, len(out.Missing))
	for name := range out.Missing {
		missing = append(missing, name)
	}
	sort.Strings(missing)

	return &DependencyFindings{Unused: unused, Missing: missing}, nil
}

// names reads a dependency list given as an array of names or an object
// keyed by name.
func names(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '[' {
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	list := make([]string, 0, len(obj))
	for name := range obj {
		list = append(list, name)
	}
	sort.Strings(list)
	return list, nil
}
