// Package logging provides file-based logging with rotation for vectordb.
// The CLI writes JSON logs to ~/.vectordb/logs/ at info level on every run;
// the --debug flag lowers the level to debug for debugging and
// troubleshooting. The CLI does not copy log output to stderr.
package logging
