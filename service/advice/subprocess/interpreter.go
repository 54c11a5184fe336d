package subprocess

import (
	"os"
	"strings"
	"time"
)

const (
	LauncherExec  = "exec"
	LauncherShell = "shell"
)

// Interpreter describes how the child process is started. The child must call
// Serve early in main, so by default the current executable is used.
type Interpreter struct {
	Path string   `json:"path,omitempty" yaml:"path,omitempty"`
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
	// Paths are prepended to the child PATH.
	Paths []string          `json:"paths,omitempty" yaml:"paths,omitempty"`
	Env   map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	// Launcher selects exec (default) or shell.
	Launcher  string `json:"launcher,omitempty" yaml:"launcher,omitempty"`
	TimeoutMs int    `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
	// Isolated starts the child with only the interpreter variables instead of
	// inheriting the caller environment.
	Isolated bool `json:"isolated,omitempty" yaml:"isolated,omitempty"`
}

// Init sets defaults.
func (i *Interpreter) Init() error {
	if i.Path == "" {
		path, err := os.Executable()
		if err != nil {
			return err
		}
		i.Path = path
	}
	if i.Launcher == "" {
		i.Launcher = LauncherExec
	}
	return nil
}

// Timeout returns the process level bound, zero when unbounded.
func (i *Interpreter) Timeout() time.Duration {
	return time.Duration(i.TimeoutMs) * time.Millisecond
}

// Environment returns the variables set for the child: interpreter env, PATH
// with Paths prepended, then extra (which wins).
func (i *Interpreter) Environment(extra map[string]string) map[string]string {
	ret := make(map[string]string, len(i.Env)+len(extra)+1)
	for k, v := range i.Env {
		ret[k] = v
	}
	if len(i.Paths) > 0 {
		path := ret["PATH"]
		if path == "" && !i.Isolated {
			path = os.Getenv("PATH")
		}
		elements := append([]string{}, i.Paths...)
		if path != "" {
			elements = append(elements, path)
		}
		ret["PATH"] = strings.Join(elements, string(os.PathListSeparator))
	}
	for k, v := range extra {
		ret[k] = v
	}
	return ret
}
