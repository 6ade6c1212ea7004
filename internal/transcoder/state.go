package transcoder

// State is the lifecycle state of a Process.
type State string

// Process states.
const (
	StateStarting State = "starting" // spawn in progress
	StateRunning  State = "running"  // process alive
	StateStopping State = "stopping" // termination requested
	StateExited   State = "exited"   // exited on its own
	StateKilled   State = "killed"   // exited after termination was requested
)

// Done reports whether the state is terminal.
func (s State) Done() bool {
	return s == StateExited || s == StateKilled
}
