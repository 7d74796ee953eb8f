// Package supervisor runs a project's services as child processes and owns
// the session state machine around them.
//
// # Session States
//
// A session moves through three states:
//
//	idle ──Start──▶ loading ──▶ running
//	                   │           │
//	                   ▼           ├──Stop──▶ idle
//	                  idle         └──Restart──▶ loading ──▶ running | idle
//
// Only one transition runs at a time. A Start while not idle is rejected
// with "already running or starting"; Stop and Restart while not running
// are rejected with "not running". Rejections do not change state.
//
// # Collaborators
//
// The project path and the service list come from a [ProjectLocator] and a
// [ManifestProvider]. Each call is bounded by the collaborator timeout; a
// collaborator that never answers fails the transition and the session
// returns to idle.
//
// # Processes
//
// Each supported service is resolved to a command line by
// pathresolve.Resolver and started by a [Spawner]. The default
// [ExecSpawner] gives every child its own process group and pipes its
// output into an output.Broadcaster. Stopping sends a terminate signal to
// the group and kills it after the stop timeout. Services are torn down in
// parallel.
//
// # Events
//
// Every committed status change and every outcome is published on the
// event bus before the call returns. Per-service spawn failures and exits
// are published as they happen.
package supervisor
