package engine

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Kind is a platform capability family.
type Kind int

const (
	Unix Kind = iota
	Windows
)

func (k Kind) String() string {
	switch k {
	case Unix:
		return "Unix"
	case Windows:
		return "Windows"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Platform builds check command lines and verifies check ownership.
type Platform interface {
	Kind() Kind
	// Command returns argv for path (joined to checksDir when relative)
	// followed by the split args.
	Command(checksDir, path, args string) ([]string, error)
	// VerifyOwnership fails unless file is owned by user and group.
	VerifyOwnership(file, user, group string) error
	// EnforcesOwnership reports whether ownership checks are supported.
	EnforcesOwnership() bool
}

var platforms = map[Kind]func() Platform{}

func registerPlatform(k Kind, ctor func() Platform) {
	platforms[k] = ctor
}

// DetectKind returns the platform family of the running OS.
func DetectKind() Kind {
	if runtime.GOOS == "windows" {
		return Windows
	}
	return Unix
}

// NewPlatform constructs the platform for k.
func NewPlatform(k Kind) (Platform, error) {
	ctor, ok := platforms[k]
	if !ok {
		return nil, fmt.Errorf("platform %s is not available on %s", k, runtime.GOOS)
	}
	return ctor(), nil
}

func absolute(checksDir, path string) string {
	if filepath.IsAbs(path) || checksDir == "" {
		return path
	}
	return filepath.Join(checksDir, path)
}
