package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/quorum/internal/exec"
	"github.com/ShayCichocki/quorum/pkg/models"
)

// CommandWorker runs an external shell command as a worker capability. The
// task text is written to the command's stdin; task metadata and the per-run
// context are passed as QUORUM_* environment variables. The command's
// combined output becomes the worker output.
type CommandWorker struct {
	name    string
	command string
	workDir string
	runner  exec.CommandRunner
}

// NewCommandWorker creates a CommandWorker. A nil runner uses the default
// os/exec-backed runner.
func NewCommandWorker(name, command, workDir string, runner exec.CommandRunner) *CommandWorker {
	if runner == nil {
		runner = exec.NewRunner()
	}
	return &CommandWorker{
		name:    name,
		command: command,
		workDir: workDir,
		runner:  runner,
	}
}

// Execute implements WorkerCapability.
func (w *CommandWorker) Execute(ctx context.Context, task models.Task, runContext map[string]string) (Execution, error) {
	env := []string{
		"QUORUM_WORKER=" + w.name,
		"QUORUM_DOMAIN=" + string(task.Domain),
		fmt.Sprintf("QUORUM_COMPLEXITY=%d", task.Complexity),
	}
	for k, v := range runContext {
		env = append(env, "QUORUM_CTX_"+envKey(k)+"="+v)
	}

	start := time.Now()
	output, err := w.runner.RunShellWithInput(ctx, w.workDir, w.command, task.Text, env)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return Execution{}, fmt.Errorf("worker command %q: %w", w.name, err)
	}

	return Execution{
		Output:    string(output),
		ElapsedMs: elapsed,
	}, nil
}

// envKey normalizes a context key into an environment variable fragment.
func envKey(k string) string {
	k = strings.ToUpper(k)
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, k)
}
