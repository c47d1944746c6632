// Package cli parses command-line arguments, validates user input and maps
// failures to process exit codes. It also builds the process logger.
package cli
