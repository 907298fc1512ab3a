// Package ports defines the interfaces that connect the connection manager
// to its collaborators.
//
// # Port Interfaces
//
//   - [ProcessStarter]: spawns one worker process per role
//   - [Process]: a running worker as seen by the manager
//   - [Client]: the application side receiving typed inbound commands
//   - [DebugPrompter]: blocks while a developer attaches a debugger
//   - [Logger]: structured logging abstraction
//
// The application layer (internal/app) depends only on these interfaces.
// internal/adapters provides the concrete implementations.
package ports
