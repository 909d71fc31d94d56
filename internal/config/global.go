// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces the platform config directory. Tests use it
// because os.UserHomeDir does not honor HOME on every platform.
var configDirOverride string

// SetConfigDirOverride makes ConfigDir return dir. An empty dir restores the
// platform default.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
