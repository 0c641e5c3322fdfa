//go:build windows

package engine

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func init() {
	registerPlatform(Windows, func() Platform { return windowsPlatform{} })
}

// windowsPlatform never enforces ownership.
type windowsPlatform struct{}

func (windowsPlatform) Kind() Kind { return Windows }

func (windowsPlatform) EnforcesOwnership() bool { return false }

func (windowsPlatform) Command(checksDir, path, args string) ([]string, error) {
	argv := []string{absolute(checksDir, path)}
	if args == "" {
		return argv, nil
	}
	split, err := windows.DecomposeCommandLine(args)
	if err != nil {
		return nil, fmt.Errorf("couldn't split arguments '%s': %w", args, err)
	}
	return append(argv, split...), nil
}

func (windowsPlatform) VerifyOwnership(string, string, string) error {
	return nil
}
