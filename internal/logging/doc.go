// Package logging provides structured logging for the bakman CLI using slog.
//
// The package supports both text and JSON output formats, configurable log
// levels, and helpers for testing. All loggers are based on the standard
// library's [log/slog] package.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{
//		Level:  logging.LevelFromVerbosity(verbosity),
//		Format: logging.FormatText,
//		Output: os.Stderr,
//	})
//	logger.Info("starting backup", "configuration", "bakdisk5")
//
// # Verbosity
//
// [LevelFromVerbosity] maps repeated -v flags to levels: the default shows
// warnings and errors only, -v adds progress information, -vv adds debug
// detail, and -vvv enables [LevelTrace].
//
// # Redaction
//
// The text [Handler] masks attribute values whose keys look sensitive
// (key, passphrase, and similar), so a stray LUKS key never lands in a
// log file.
//
// # Testing
//
// For tests, use [ForTest] to capture log output via the testing framework:
//
//	func TestSomething(t *testing.T) {
//		logger := logging.ForTest(t)
//		// logs appear in test output on failure
//	}
//
// # Quiet Mode
//
// Use [NewDiscard] when log output should be suppressed entirely:
//
//	logger := logging.NewDiscard()
package logging
