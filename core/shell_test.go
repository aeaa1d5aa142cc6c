package core

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/josephlewis42/osh/core/config"
	"github.com/josephlewis42/osh/core/logger"
	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type memoryRecorder struct {
	mu     sync.Mutex
	events []logger.LogType
}

func (m *memoryRecorder) Record(event logger.LogType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func testConfig() *config.Configuration {
	cfg := config.DefaultConfig()
	cfg.Prompt = "osh> "
	return cfg
}

// newTestShell creates a shell reading input from a file. The returned
// function reads everything written to stdout so far.
func newTestShell(t *testing.T, cfg *config.Configuration, input string, events *memoryRecorder) (*Shell, func() string) {
	t.Helper()

	dir := t.TempDir()
	inPath := filepath.Join(dir, "stdin")
	outPath := filepath.Join(dir, "stdout")
	require.NoError(t, os.WriteFile(inPath, []byte(input), 0600))

	stdin, err := os.Open(inPath)
	require.NoError(t, err)
	t.Cleanup(func() { stdin.Close() })

	stdout, err := os.Create(outPath)
	require.NoError(t, err)
	t.Cleanup(func() { stdout.Close() })

	var recorder *memoryRecorder
	if events != nil {
		recorder = events
	} else {
		recorder = &memoryRecorder{}
	}

	s, err := NewShell(cfg, IO{Stdin: stdin, Stdout: stdout, Stderr: stdout}, nil, recorder)
	require.NoError(t, err)

	return s, func() string {
		contents, err := os.ReadFile(outPath)
		require.NoError(t, err)
		return string(contents)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func getwd(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(wd)
	require.NoError(t, err)
	return resolved
}

func TestShellGolden(t *testing.T) {
	fixtureDir, err := filepath.Abs(filepath.Join("testdata", "golden"))
	require.NoError(t, err)
	g := goldie.New(
		t,
		goldie.WithFixtureDir(fixtureDir),
		goldie.WithDiffEngine(goldie.ColoredDiff),
	)

	cases := map[string]string{
		"session": "echo one\necho two\nhistory\n!!\nexit\n",
		"errors": "!!\ncd\ncd /osh-test-no-such-dir\nosh-test-no-such-command\n" +
			"cat < /osh-test-no-such-file\nexit\n",
		"recall": "echo a\necho b\n\x1b[A\x1b[A\n\x1b[A\x1b[B\x1b[B\nexit\n",
		"help":   "help\nexit\n",
		"eof":    "echo hi",
	}

	for tn, input := range cases {
		t.Run(tn, func(t *testing.T) {
			chdir(t, t.TempDir())
			s, output := newTestShell(t, testConfig(), input, nil)

			require.NoError(t, s.Run())

			g.Assert(t, tn, []byte(output()))
		})
	}
}

func TestShellStopsAtExit(t *testing.T) {
	s, output := newTestShell(t, testConfig(), "exit\necho unreachable\n", nil)

	require.NoError(t, s.Run())

	assert.Equal(t, "osh> exit\nExited successfully!\n", output())
}

func TestShellExitWithArguments(t *testing.T) {
	s, _ := newTestShell(t, testConfig(), "", nil)

	s.RunLine("exit now")

	assert.True(t, s.quit)
	assert.Equal(t, []string{"exit now"}, s.History.Entries())
}

func TestShellRedirect(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	s, output := newTestShell(t, testConfig(), "", nil)

	s.RunLine("echo hi > f.txt")

	contents, err := os.ReadFile(filepath.Join(dir, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(contents))
	assert.Empty(t, output())
}

func TestShellRepeatLast(t *testing.T) {
	s, output := newTestShell(t, testConfig(), "", nil)

	s.RunLine(RepeatCommand)
	assert.Equal(t, "No commands in history.\n", output())
	assert.Zero(t, s.History.Count())

	s.RunLine("echo again")
	s.RunLine(RepeatCommand)

	assert.Equal(t, []string{"echo again", "echo again"}, s.History.Entries())
	assert.Contains(t, output(), "Previous command: \"echo again\"\nagain\n")
}

func TestShellHistoryNotRecorded(t *testing.T) {
	s, output := newTestShell(t, testConfig(), "", nil)

	s.RunLine("echo a")
	s.RunLine("history")
	s.RunLine("history")

	assert.Equal(t, []string{"echo a"}, s.History.Entries())
	assert.Equal(t, "a\n0\techo a\n0\techo a\n", output())

	s.RunLine("history -c")
	assert.Zero(t, s.History.Count())
}

func TestShellHistoryBadFlag(t *testing.T) {
	s, output := newTestShell(t, testConfig(), "", nil)

	s.RunLine("history -z")

	assert.Contains(t, output(), "usage: history [-c]")
}

func TestShellHistoryEviction(t *testing.T) {
	s, output := newTestShell(t, testConfig(), "", nil)

	for _, line := range []string{"true 1", "true 2", "true 3", "true 4", "true 5", "true 6"} {
		s.RunLine(line)
	}
	s.RunLine("history")

	assert.Equal(t, "0\ttrue 2\n1\ttrue 3\n2\ttrue 4\n3\ttrue 5\n4\ttrue 6\n", output())
}

func TestShellCd(t *testing.T) {
	chdir(t, t.TempDir())
	target := t.TempDir()
	cfg := testConfig()
	cfg.Prompt = `osh:\W> `
	s, output := newTestShell(t, cfg, "", nil)

	s.RunLine("cd " + target)

	want, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, want, getwd(t))
	assert.Equal(t, "osh:"+filepath.Base(target)+"> ", s.Prompt())
	assert.Empty(t, output())
	assert.Equal(t, []string{"cd " + target}, s.History.Entries())
}

func TestShellCdMissingDirectory(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	before := getwd(t)
	s, output := newTestShell(t, testConfig(), "", nil)

	missing := filepath.Join(dir, "missing")
	s.RunLine("cd " + missing)

	assert.Equal(t, before, getwd(t))
	assert.Equal(t, "Error: \""+missing+"\" is not a recognized directory\n", output())

	err := s.ChangeDir([]string{"cd", missing})
	assert.ErrorIs(t, err, ErrDirectoryNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestShellCdMissingArgument(t *testing.T) {
	s, _ := newTestShell(t, testConfig(), "", nil)

	err := s.ChangeDir([]string{"cd"})

	assert.ErrorIs(t, err, ErrMissingArgument)
	assert.EqualError(t, err, `"cd" requires a directory`)
}

func TestShellPrompt(t *testing.T) {
	cfg := testConfig()
	cfg.Prompt = `osh:\W> `
	s, _ := newTestShell(t, cfg, "", nil)

	chdir(t, "/")
	assert.Equal(t, "osh:> ", s.Prompt())

	t.Setenv(EnvUser, "tester")
	cfg.Prompt = `\u> `
	assert.Equal(t, "tester> ", s.Prompt())

	home := t.TempDir()
	t.Setenv(EnvHome, home)
	chdir(t, home)
	cfg.Prompt = `\w$ `
	assert.Equal(t, "~$ ", s.Prompt())
}

func TestShellBuiltinEvents(t *testing.T) {
	events := &memoryRecorder{}
	s, _ := newTestShell(t, testConfig(), "", events)

	s.RunLine("cd")
	s.RunLine("help")

	require.Len(t, events.events, 2)
	assert.Equal(t, &logger.Builtin{Command: []string{"cd"}, Error: `"cd" requires a directory`}, events.events[0])
	assert.Equal(t, &logger.Builtin{Command: []string{"help"}}, events.events[1])
}

func TestShellHistoryFile(t *testing.T) {
	cfg := testConfig()
	cfg.HistoryFile = "history"
	require.NoError(t, afero.WriteFile(cfg.Fs(), "history", []byte("echo saved\n"), 0600))

	s, _ := newTestShell(t, cfg, "echo more\nexit\n", nil)
	assert.Equal(t, []string{"echo saved"}, s.History.Entries())

	require.NoError(t, s.Run())

	contents, err := afero.ReadFile(cfg.Fs(), "history")
	require.NoError(t, err)
	assert.Equal(t, "echo saved\necho more\n", string(contents))
}

func TestShellBuiltinOutputRedirect(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	s, output := newTestShell(t, testConfig(), "", nil)

	s.RunLine("echo a")
	s.RunLine("history > hist.txt")
	s.RunLine("help > help.txt")

	assert.Equal(t, "a\n", output())
	assert.Equal(t, []string{"echo a", "help > help.txt"}, s.History.Entries())

	contents, err := os.ReadFile(filepath.Join(dir, "hist.txt"))
	require.NoError(t, err)
	assert.Equal(t, "0\techo a\n", string(contents))

	contents, err = os.ReadFile(filepath.Join(dir, "help.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(contents), "Builtins:")

	// Output goes back to the terminal afterwards.
	s.RunLine("history")
	assert.Equal(t, "a\n0\techo a\n1\thelp > help.txt\n", output())
}

func TestShellBuiltinRedirectFailed(t *testing.T) {
	s, output := newTestShell(t, testConfig(), "", nil)

	s.RunLine("history > /osh-test-no-such-dir/out")

	assert.Equal(t, "Error: cannot open \"/osh-test-no-such-dir/out\": no such file or directory\n", output())
}

func TestShellBuiltinUnsupportedOperators(t *testing.T) {
	chdir(t, t.TempDir())

	cases := map[string]string{
		"pipe":       "history | grep x",
		"background": "cd / &",
		"input":      "help < in.txt",
	}

	for tn, line := range cases {
		t.Run(tn, func(t *testing.T) {
			before := getwd(t)
			events := &memoryRecorder{}
			s, output := newTestShell(t, testConfig(), "", events)

			s.RunLine(line)

			cmdName := strings.Fields(line)[0]
			assert.Equal(t, "Error: \""+cmdName+"\" only supports output redirection\n", output())
			assert.Equal(t, before, getwd(t))

			require.Len(t, events.events, 1)
			builtin := events.events[0].(*logger.Builtin)
			assert.Equal(t, cmdName, builtin.Command[0])
			assert.NotEmpty(t, builtin.Error)
		})
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestShellCatchInterrupts(t *testing.T) {
	s, _ := newTestShell(t, testConfig(), "", nil)
	logs := &lockedBuffer{}
	s.logger = log.New(logs, "", 0)

	stop := s.catchInterrupts()
	require.NoError(t, unix.Kill(os.Getpid(), unix.SIGINT))

	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "interrupt")
	}, 5*time.Second, 10*time.Millisecond)
	stop()
}

func TestBuiltinNames(t *testing.T) {
	assert.Equal(t, []string{"cd", "exit", "help", "history"}, BuiltinNames())
}
