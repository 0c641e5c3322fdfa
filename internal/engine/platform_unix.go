//go:build unix

package engine

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"syscall"

	"github.com/google/shlex"
)

func init() {
	registerPlatform(Unix, func() Platform { return unixPlatform{} })
}

type unixPlatform struct{}

func (unixPlatform) Kind() Kind { return Unix }

func (unixPlatform) EnforcesOwnership() bool { return true }

func (unixPlatform) Command(checksDir, path, args string) ([]string, error) {
	argv := []string{absolute(checksDir, path)}
	if args == "" {
		return argv, nil
	}
	split, err := shlex.Split(args)
	if err != nil {
		return nil, fmt.Errorf("couldn't split arguments '%s': %w", args, err)
	}
	return append(argv, split...), nil
}

func (unixPlatform) VerifyOwnership(file, userName, groupName string) error {
	info, err := os.Stat(file)
	if err != nil {
		return fmt.Errorf("filename : %s does not exist", file)
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fmt.Errorf("couldn't read ownership of %s", file)
	}

	u, err := user.Lookup(userName)
	if err != nil {
		return fmt.Errorf("user : '%s' doesn't exist", userName)
	}
	g, err := user.LookupGroup(groupName)
	if err != nil {
		return fmt.Errorf("group : '%s' doesn't exist", groupName)
	}

	uid, _ := strconv.ParseUint(u.Uid, 10, 32)
	gid, _ := strconv.ParseUint(g.Gid, 10, 32)
	if uint64(st.Uid) != uid || uint64(st.Gid) != gid {
		return fmt.Errorf("'%s' is not owned by user : %s / group : %s", file, userName, groupName)
	}
	return nil
}
