// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// fatalWatchError reports whether err leaves the watcher unable to recover.
// On Linux these are inotify resource limits: ENOSPC (max_user_watches),
// EMFILE and ENFILE.
func fatalWatchError(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
