package executil

import (
	"context"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Dir   string
	Name  string
	Args  []string
	Stdin []byte
}

// RecordingExecutor captures commands for testing.
// Configure Outputs and Errors maps to control return values.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	// Outputs maps the first argument (for git, the subcommand) to stdout.
	Outputs map[string][]byte

	// Errors maps the first argument to a returned error.
	Errors map[string]error
}

// Run records the command and returns configured output/error.
func (e *RecordingExecutor) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	return e.record(dir, nil, name, args...)
}

// RunIn records the command with stdin and returns configured output/error.
func (e *RecordingExecutor) RunIn(ctx context.Context, dir string, stdin []byte, name string, args ...string) ([]byte, error) {
	return e.record(dir, stdin, name, args...)
}

func (e *RecordingExecutor) record(dir string, stdin []byte, name string, args ...string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Commands = append(e.Commands, RecordedCommand{
		Dir:   dir,
		Name:  name,
		Args:  args,
		Stdin: stdin,
	})

	var out []byte
	var err error

	key := ""
	if len(args) > 0 {
		key = args[0]
	}
	if e.Outputs != nil {
		out = e.Outputs[key]
	}
	if e.Errors != nil {
		err = e.Errors[key]
	}

	return out, err
}

// Reset clears recorded commands.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = nil
}
