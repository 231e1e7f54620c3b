// Package prompt reads operator answers from the terminal.
//
// Confirm never blocks on malformed input: anything other than a single
// "y" or "n" (any case), including an empty line or a read error, returns
// the default supplied by the caller.
package prompt
