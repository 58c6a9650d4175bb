package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

// appDir is the directory name bakman files live under within each XDG
// base directory.
const appDir = "bakman"

// systemConfigDir is where a host-wide definitions file may live; bakman
// usually runs as root, so this is checked after the per-user locations.
const systemConfigDir = "/etc/bakman"

// Sentinel errors for path resolution.
var (
	// ErrHomeDirNotFound indicates the user's home directory could not be determined.
	ErrHomeDirNotFound = errors.New("home directory not found")
)

// DefaultDirPerm is the default permission for newly created directories (private).
const DefaultDirPerm = 0o700

// EnsureDir creates the directory and any necessary parents with specified permissions.
// If perm is 0, DefaultDirPerm (0700) is used.
// This function is idempotent; it returns nil if the directory already exists.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// Home returns the user's home directory.
// Note: It returns an empty string on error.
// Use ResolveHome for proper error handling.
func Home() string {
	h, _ := ResolveHome()
	return h
}

// ResolveHome returns the user's home directory.
// Returns ErrHomeDirNotFound if the directory cannot be determined.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(ErrHomeDirNotFound, err.Error())
	}
	return home, nil
}

// ConfigHome returns the XDG config home directory.
// On Linux: ~/.config (or /root/.config when run as root)
func ConfigHome() string {
	return xdg.ConfigHome
}

// ConfigDir returns the bakman config directory: <ConfigHome>/bakman.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appDir)
}

// StateDir returns the bakman state directory: <StateHome>/bakman.
// Run bookkeeping that survives between invocations lives here.
func StateDir() string {
	return filepath.Join(xdg.StateHome, appDir)
}

// DefinitionsFile returns the canonical definitions file location,
// <ConfigDir>/definitions.yaml. This is where `bakman init` writes.
func DefinitionsFile() string {
	return filepath.Join(ConfigDir(), "definitions.yaml")
}

// DefinitionsCandidates returns the locations searched for a definitions
// file, most specific first: the per-user config directory, then the
// host-wide /etc directory, YAML before TOML in each.
func DefinitionsCandidates() []string {
	return []string{
		filepath.Join(ConfigDir(), "definitions.yaml"),
		filepath.Join(ConfigDir(), "definitions.toml"),
		filepath.Join(systemConfigDir, "definitions.yaml"),
		filepath.Join(systemConfigDir, "definitions.toml"),
	}
}

// ExcludeFile returns the default rsync exclude-patterns file:
// <ConfigDir>/exclude. Archive steps fall back to it when they do not
// configure their own.
func ExcludeFile() string {
	return filepath.Join(ConfigDir(), "exclude")
}

// RunLogFile returns the run bookkeeping file: <StateDir>/runlog.
// Each completed run appends one dated line per part.
func RunLogFile() string {
	return filepath.Join(StateDir(), "runlog")
}

// LockDir returns the directory for per-configuration advisory locks:
// /run/lock/bakman as root, the XDG runtime directory otherwise, falling
// back to the system temp directory when no runtime directory is set.
func LockDir(root bool) string {
	if root {
		return filepath.Join("/run/lock", appDir)
	}
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, appDir)
	}
	return filepath.Join(os.TempDir(), appDir+"-lock")
}
