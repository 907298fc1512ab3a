// Package domain contains the value types exchanged between the designer
// host and its puppet worker processes.
//
// This package is the innermost layer. It has no dependencies on transport,
// process management or logging.
//
// # Entities
//
//   - [Command]: the closed set of commands carried by the wire protocol
//   - [Role]: one worker role (editor, render, preview, custom) and its mode
//   - [ExitStatus]: how a worker process ended
//
// Commands are plain values. They carry no transport resources and may be
// copied freely between goroutines.
package domain
