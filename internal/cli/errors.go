package cli

import (
	"errors"

	"ompkg/pkg/pkgerr"
	"ompkg/pkg/registry"
)

var (
	// ErrNoPackages is returned when no packages are specified.
	ErrNoPackages = errors.New("no packages specified")

	// ErrNoProject is returned when a command needs ompkg.toml and there is none.
	ErrNoProject = errors.New("no project file in this workspace; run 'ompkg init' first")

	// ErrAborted is returned when the user aborts an operation.
	ErrAborted = errors.New("operation aborted by user")

	// ErrPartial is returned when a batch finished with failures.
	ErrPartial = errors.New("some packages failed")
)

// errorHint suggests a next step for the kind of err.
func errorHint(err error) string {
	var rle *registry.RateLimitError
	switch {
	case errors.As(err, &rle):
		return "Set GITHUB_TOKEN or registry.token in the config file for a higher rate limit."
	case errors.Is(err, ErrNoProject):
		return ""
	case errors.Is(err, pkgerr.ErrVersion):
		return "Constraints look like 1.2.3, ^1.2, ~1.2, >=1.0 <2.0 or *."
	case errors.Is(err, pkgerr.ErrNotFound):
		return "Check the repository name and run 'ompkg releases owner/name' to see the published tags."
	case errors.Is(err, pkgerr.ErrRegistry):
		return "Check the network connection and the repository name (owner/name)."
	case errors.Is(err, pkgerr.ErrExtraction):
		return "The release asset could not be unpacked; only .zip and .tar.gz archives are supported."
	case errors.Is(err, pkgerr.ErrConfig):
		return "Fix the file named above; ompkg did not change it."
	case errors.Is(err, pkgerr.ErrIO):
		return "Check the permissions of the workspace directory."
	}
	return ""
}
