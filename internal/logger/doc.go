// Package logger wraps zap to give the updater:
//   - a global sugared logger with a compact colored console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing so the settings file can pick verbosity,
//   - convenience functions (Infof, WarnKV, ErrorKV, etc.).
//
// Every pipeline step receives a context and logs through it, so a step can
// scope the logger with a name or key-value pairs once and pass it down.
package logger
