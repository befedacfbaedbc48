// Package logging provides the leveled logger used across page-server.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// Messages are written through zerolog. On a terminal the output is the
// human-friendly console format; otherwise each line is a JSON object, which
// is what log shippers expect. The level is chosen once at startup with
// [Configure] from the LOG_LEVEL setting.
package logging
