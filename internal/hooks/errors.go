package hooks

import "errors"

var (
	errNoFrontMatter          = errors.New("hooks: HOOK.md has no YAML front matter")
	errUnterminatedFrontMatter = errors.New("hooks: HOOK.md front matter is not terminated")
)
