// Package paths resolves the file locations bakman reads and writes.
//
// # XDG Base Directory Compliance
//
// The package wraps github.com/adrg/xdg for XDG Base Directory
// Specification compliance. Run as root, the per-user locations resolve
// under /root; the host-wide /etc/bakman directory is searched as a
// fallback for the definitions file.
//
// # Locations
//
//	paths.DefinitionsFile() // <ConfigHome>/bakman/definitions.yaml
//	paths.ExcludeFile()     // <ConfigHome>/bakman/exclude
//	paths.RunLogFile()      // <StateHome>/bakman/runlog
//	paths.LockDir(root)     // /run/lock/bakman, or the runtime dir
//
// [DefinitionsCandidates] lists every location the loader searches, most
// specific first, so an operator can keep definitions per-user or
// host-wide.
package paths
