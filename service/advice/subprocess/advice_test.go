package subprocess

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/advice/model"
	"github.com/viant/advice/runtime/execution"
	"github.com/viant/advice/service/advice/metrics"
	"github.com/viant/advice/service/registry"
	"github.com/viant/advice/service/serializer"
	"github.com/viant/afs"
	"github.com/viant/toolbox"
)

type sumInput struct {
	A int `json:"a" yaml:"a"`
	B int `json:"b" yaml:"b"`
}

type sumOutput struct {
	Total int `json:"total" yaml:"total"`
}

func testRegistry() *registry.Registry {
	r := registry.New()
	r.Register("pid", func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		return os.Getpid(), nil
	})
	r.Register("fail", func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	})
	r.Register("exit", func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		os.Exit(3)
		return nil, nil
	})
	r.Register("silent", func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		os.Exit(0)
		return nil, nil
	})
	r.Register("crash", func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		panic("crashed")
	})
	r.Register("params", func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		task, ok := model.TaskFromContext(ctx)
		if !ok {
			return nil, errors.New("task not bound")
		}
		var keys []string
		for k := range task.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return strings.Join(keys, ","), nil
	})
	r.Register("bound", func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		task, ok := model.TaskFromContext(ctx)
		if !ok {
			return nil, errors.New("task not bound")
		}
		return task.ID, nil
	})
	r.Register("sleepy", func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		time.Sleep(5 * time.Second)
		return "awake", nil
	})
	r.Register("orphan", func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		cmd := exec.Command("sleep", "5")
		cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		return cmd.Process.Pid, nil
	})
	r.Register("echo", func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		return args, nil
	})
	registry.RegisterFunc(r, "sum", func(ctx context.Context, in *sumInput) (*sumOutput, error) {
		return &sumOutput{Total: in.A + in.B}, nil
	})
	return r
}

func TestMain(m *testing.M) {
	if Serve(context.Background(), testRegistry()) {
		return
	}
	os.Exit(m.Run())
}

// testInterpreter re-executes the test binary; -test.run keeps a child that
// misses its request from running the tests again.
func testInterpreter() *Interpreter {
	return &Interpreter{Args: []string{"-test.run=^$"}}
}

func newAdvice(t *testing.T, options ...Option) *Advice {
	options = append([]Option{WithExchangeDir(t.TempDir())}, options...)
	ret, err := New(testInterpreter(), options...)
	require.NoError(t, err)
	return ret
}

func runSession(t *testing.T, task *model.Task, s serializer.Serializer, advices ...execution.Advice) *execution.Session {
	configuration := execution.NewConfiguration(
		execution.WithRegistry(testRegistry()),
		execution.WithSerializer(s),
		execution.WithArtifactDir(t.TempDir()),
		execution.WithAdvices(advices...),
	)
	session := execution.NewSession(task, nil, configuration)
	require.NoError(t, session.Initiate(context.Background()))
	require.NotNil(t, session.Result)
	return session
}

func TestAdvice_Isolation(t *testing.T) {
	advice := newAdvice(t)
	session := runSession(t, model.NewTask("pid"), serializer.JSON(), advice)

	value, err := session.Result.Output()
	require.NoError(t, err)
	pid := toolbox.AsInt(value)
	assert.Greater(t, pid, 0)
	assert.NotEqual(t, os.Getpid(), pid)

	_, err = os.Stat(filepath.Join(advice.ExchangeDir(), session.ID))
	assert.True(t, os.IsNotExist(err))
	assert.NotContains(t, session.Context, FolderKey)
}

func TestAdvice_Failures(t *testing.T) {
	var testCases = []struct {
		description string
		function    string
		expect      func(t *testing.T, err error)
	}{
		{
			description: "task error",
			function:    "fail",
			expect: func(t *testing.T, err error) {
				var taskErr *execution.TaskError
				require.True(t, errors.As(err, &taskErr))
				var remote *RemoteError
				require.True(t, errors.As(err, &remote))
				assert.Equal(t, "boom", remote.Message)
				_, ok := execution.ExitCodeOf(err)
				assert.False(t, ok)
			},
		},
		{
			description: "task panic",
			function:    "crash",
			expect: func(t *testing.T, err error) {
				var remote *RemoteError
				require.True(t, errors.As(err, &remote))
				assert.Contains(t, remote.Message, "crashed")
			},
		},
		{
			description: "non zero exit",
			function:    "exit",
			expect: func(t *testing.T, err error) {
				var exitErr *ExitError
				require.True(t, errors.As(err, &exitErr))
				assert.Equal(t, 3, exitErr.Code)
				code, ok := execution.ExitCodeOf(err)
				assert.True(t, ok)
				assert.Equal(t, 3, code)
			},
		},
		{
			description: "missing result",
			function:    "silent",
			expect: func(t *testing.T, err error) {
				var exitErr *ExitError
				require.True(t, errors.As(err, &exitErr))
				assert.Equal(t, 0, exitErr.Code)
				assert.ErrorIs(t, err, ErrNoResult)
			},
		},
		{
			description: "unknown function",
			function:    "missing",
			expect: func(t *testing.T, err error) {
				var remote *RemoteError
				require.True(t, errors.As(err, &remote))
				assert.Contains(t, remote.Message, "function not found")
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			advice := newAdvice(t)
			session := runSession(t, model.NewTask(testCase.function), serializer.JSON(), advice)
			assert.Equal(t, execution.StateFailed, session.State())
			_, err := session.Result.Output()
			require.Error(t, err)
			testCase.expect(t, err)
			_, statErr := os.Stat(filepath.Join(advice.ExchangeDir(), session.ID))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

type recordingLauncher struct {
	Launcher
	requestURL string
}

func (l *recordingLauncher) Launch(ctx context.Context, command *Command) (int, error) {
	l.requestURL = command.Env[EnvRequestURL]
	return l.Launcher.Launch(ctx, command)
}

func TestAdvice_Exchange(t *testing.T) {
	var testCases = []struct {
		description string
		serializer  serializer.Serializer
		compress    bool
		suffix      string
	}{
		{description: "json", serializer: serializer.JSON(), suffix: "request.json"},
		{description: "yaml", serializer: serializer.YAML(), suffix: "request.yaml"},
		{description: "json gzip", serializer: serializer.JSON(), compress: true, suffix: "request.json.gz"},
		{description: "yaml gzip", serializer: serializer.YAML(), compress: true, suffix: "request.yaml.gz"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			launcher := &recordingLauncher{Launcher: ExecLauncher{}}
			advice := newAdvice(t, WithCompression(testCase.compress), WithLauncher(launcher))
			task := model.NewTask("sum", model.WithKwargs(map[string]interface{}{"a": 2, "b": 3}))
			session := runSession(t, task, testCase.serializer, advice)

			value, err := session.Result.Output()
			require.NoError(t, err)
			assert.Equal(t, &sumOutput{Total: 5}, value)
			assert.True(t, strings.HasSuffix(launcher.requestURL, testCase.suffix), launcher.requestURL)
		})
	}
}

func TestAdvice_Bind(t *testing.T) {
	task := model.NewTask("bound", model.WithBind(true))
	session := runSession(t, task, serializer.JSON(), newAdvice(t))
	value, err := session.Result.Output()
	require.NoError(t, err)
	assert.Equal(t, task.ID, value)

	task = model.NewTask("params", model.WithBind(true), model.WithParameters(model.Parameters{
		"metrics": {"tags": map[string]interface{}{"a": "b"}},
		Name:      {"timeoutMs": 10},
		"tracing": {},
	}))
	session = runSession(t, task, serializer.JSON(), newAdvice(t))
	value, err = session.Result.Output()
	require.NoError(t, err)
	assert.Equal(t, "metrics,tracing", value)
}

func TestAdvice_WithMetrics(t *testing.T) {
	metricsAdvice, err := metrics.New()
	require.NoError(t, err)
	task := model.NewTask("echo", model.WithArgs("a", 1.5))
	session := runSession(t, task, serializer.JSON(), metricsAdvice, newAdvice(t))

	value, err := session.Result.Output()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", 1.5}, value)
	location, ok := session.Attachments["metrics.json"]
	require.True(t, ok)
	_, err = os.Stat(location)
	assert.NoError(t, err)
}

func TestAdvice_LaunchFailure(t *testing.T) {
	advice, err := New(&Interpreter{Path: filepath.Join(t.TempDir(), "missing")}, WithExchangeDir(t.TempDir()))
	require.NoError(t, err)
	session := runSession(t, model.NewTask("pid"), serializer.JSON(), advice)
	var exitErr *ExitError
	require.True(t, errors.As(session.Result.Err, &exitErr))
	assert.Equal(t, -1, exitErr.Code)
	assert.Error(t, exitErr.Err)
}

func TestShellLauncher(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash is not available")
	}
	interpreter := testInterpreter()
	interpreter.Launcher = LauncherShell
	advice, err := New(interpreter, WithExchangeDir(t.TempDir()))
	require.NoError(t, err)
	session := runSession(t, model.NewTask("pid"), serializer.JSON(), advice)
	value, err := session.Result.Output()
	require.NoError(t, err)
	assert.NotEqual(t, os.Getpid(), toolbox.AsInt(value))
}

func TestInterpreter_Environment(t *testing.T) {
	interpreter := &Interpreter{
		Paths:    []string{"/opt/bin"},
		Env:      map[string]string{"A": "1", "PATH": "/usr/bin", EnvSerializer: "yaml"},
		Isolated: true,
	}
	env := interpreter.Environment(map[string]string{EnvSerializer: "json"})
	assert.Equal(t, map[string]string{
		"A":           "1",
		"PATH":        "/opt/bin" + string(os.PathListSeparator) + "/usr/bin",
		EnvSerializer: "json",
	}, env)

	assert.Equal(t, []string{"A=1", "B=2"}, environ(&Command{Env: map[string]string{"B": "2", "A": "1"}, Isolated: true}))
	assert.Equal(t, []string{}, environ(&Command{Isolated: true}))
}

func TestShellLine(t *testing.T) {
	line := shellLine(&Command{Path: "/bin/app", Args: []string{"-test.run=^$", "it's"}})
	assert.Equal(t, `'/bin/app' '-test.run=^$' 'it'\''s'`, line)
	line = shellLine(&Command{Path: "/bin/app", Env: map[string]string{"B": "2", "A": "x y"}, Isolated: true})
	assert.Equal(t, `env -i 'A=x y' 'B=2' '/bin/app'`, line)
	line = shellLine(&Command{Path: "/bin/app", Env: map[string]string{"A": "1"}})
	assert.Equal(t, `env 'A=1' '/bin/app'`, line)
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 3, Stderr: "trace\n", Err: ErrNoResult}
	assert.Equal(t, "child process exited with code 3: child process produced no result\nstderr: trace", err.Error())
	assert.Equal(t, 3, err.ExitCode())
	assert.Equal(t, "*errors.errorString: boom", newRemoteError(errors.New("boom")).Error())
}

func TestAdvice_Timeout(t *testing.T) {
	interpreter := testInterpreter()
	interpreter.TimeoutMs = 300
	advice, err := New(interpreter, WithExchangeDir(t.TempDir()))
	require.NoError(t, err)

	started := time.Now()
	session := runSession(t, model.NewTask("sleepy"), serializer.JSON(), advice)
	assert.Less(t, time.Since(started), time.Second)

	var exitErr *ExitError
	require.True(t, errors.As(session.Result.Err, &exitErr))
	assert.Equal(t, 137, exitErr.Code)
	assert.ErrorIs(t, exitErr, context.DeadlineExceeded)
	code, ok := execution.ExitCodeOf(session.Result.Err)
	assert.True(t, ok)
	assert.Equal(t, 137, code)
}

func TestAdvice_InheritedOutput(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep is not available")
	}
	started := time.Now()
	session := runSession(t, model.NewTask("orphan"), serializer.JSON(), newAdvice(t))
	assert.Less(t, time.Since(started), 4*time.Second)

	value, err := session.Result.Output()
	require.NoError(t, err)
	assert.Greater(t, toolbox.AsInt(value), 0)
}

func TestAdvice_Concurrent(t *testing.T) {
	metricsAdvice, err := metrics.New()
	require.NoError(t, err)
	configuration := execution.NewConfiguration(
		execution.WithRegistry(testRegistry()),
		execution.WithArtifactDir(t.TempDir()),
		execution.WithAdvices(metricsAdvice, newAdvice(t)),
	)

	const sessions = 16
	results := make([]*execution.Session, sessions)
	errs := make([]error, sessions)
	wg := sync.WaitGroup{}
	wg.Add(sessions)
	for i := 0; i < sessions; i++ {
		go func(i int) {
			defer wg.Done()
			task := model.NewTask("sum", model.WithKwargs(map[string]interface{}{"a": i, "b": 1}))
			session := execution.NewSession(task, nil, configuration)
			errs[i] = session.Initiate(context.Background())
			results[i] = session
		}(i)
	}
	wg.Wait()

	ids := map[string]bool{}
	for i, session := range results {
		require.NoError(t, errs[i])
		value, err := session.Result.Output()
		require.NoError(t, err, "session %d", i)
		assert.Equal(t, &sumOutput{Total: i + 1}, value)
		location, ok := session.Attachments["metrics.json"]
		require.True(t, ok, "session %d", i)
		_, err = os.Stat(location)
		assert.NoError(t, err)
		ids[session.ID] = true
	}
	assert.Len(t, ids, sessions)
}

func TestAdvice_UntypedResult(t *testing.T) {
	for _, s := range []serializer.Serializer{serializer.JSON(), serializer.YAML()} {
		t.Run(s.Name(), func(t *testing.T) {
			session := runSession(t, model.NewTask("pid"), s, newAdvice(t))
			value, err := session.Result.Output()
			require.NoError(t, err)
			assert.IsType(t, 0, value)

			session = runSession(t, model.NewTask("echo", model.WithArgs(1, 2.5, "x")), s, newAdvice(t))
			value, err = session.Result.Output()
			require.NoError(t, err)
			assert.Equal(t, []interface{}{1, 2.5, "x"}, value)
		})
	}
}

// versionLauncher stands in for a child written against another envelope
// version.
type versionLauncher struct{}

func (versionLauncher) Launch(ctx context.Context, command *Command) (int, error) {
	requestURL := command.Env[EnvRequestURL]
	s, err := serializer.Lookup(command.Env[EnvSerializer])
	if err != nil {
		return -1, err
	}
	_, _ = command.Stderr.Write([]byte("written by a newer child\n"))
	ex := exchangeFor(afs.New(), s, requestURL)
	if err = ex.write(ctx, ex.resultURL(), &Response{Version: Version + 1, Value: 1}); err != nil {
		return -1, err
	}
	return 0, nil
}

func TestAdvice_VersionMismatch(t *testing.T) {
	session := runSession(t, model.NewTask("pid"), serializer.JSON(), newAdvice(t, WithLauncher(versionLauncher{})))
	var exitErr *ExitError
	require.True(t, errors.As(session.Result.Err, &exitErr))
	assert.ErrorIs(t, exitErr, ErrVersion)
	assert.Contains(t, exitErr.Stderr, "written by a newer child")
}
