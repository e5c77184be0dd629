package orchestrator

import (
	"fmt"

	"imgto3d/internal/api"
)

// GroupLimits bounds the number of images per job for one flow.
type GroupLimits struct {
	Min int
	Max int
}

// Flow-specific group bounds. Studio jobs are small and pre-paid; the
// authenticated API accepts the backend's full range.
var (
	StudioLimits = GroupLimits{Min: 3, Max: 6}
	APILimits    = GroupLimits{Min: 3, Max: 30}
)

// Valid reports whether n images satisfy the limits.
func (l GroupLimits) Valid(n int) bool {
	return n >= l.Min && n <= l.Max
}

func (l GroupLimits) check() error {
	if l.Min <= 0 || l.Max < l.Min {
		return fmt.Errorf("orchestrator: invalid group limits %d-%d", l.Min, l.Max)
	}
	return nil
}

// GroupFiles partitions accepted files into independently submittable groups.
// Files are consumed strictly in input order: a group closes when it reaches
// the maximum size, and a trailing remainder survives only if it still meets
// the minimum. Anything smaller is returned as dropped, never padded.
func GroupFiles(files []api.LocalFile, limits GroupLimits) (groups [][]api.LocalFile, dropped []api.LocalFile, err error) {
	if err := limits.check(); err != nil {
		return nil, nil, err
	}
	for len(files) >= limits.Max {
		groups = append(groups, files[:limits.Max])
		files = files[limits.Max:]
	}
	if len(files) >= limits.Min {
		groups = append(groups, files)
	} else if len(files) > 0 {
		dropped = files
	}
	return groups, dropped, nil
}
