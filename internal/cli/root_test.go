package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// isolate keeps settings and remembered print options of the developer
// machine out of a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Chdir(dir)
	return dir
}

// execute runs the command line args against a fresh root command.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	want := []string{"plot", "scan", "order", "status", "merge", "cache", "config", "serve", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if root.PersistentFlags().Lookup("settings") == nil {
		t.Error("--settings flag missing")
	}
}

func TestRootCommandVersion(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--version"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "titleplot ") || !strings.Contains(buf.String(), "commit:") {
		t.Errorf("version output = %q", buf.String())
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	c.Logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug logged at info level: %q", buf.String())
	}
	c.SetLogLevel(LogDebug)
	c.Logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug not logged after SetLogLevel: %q", buf.String())
	}
}

func TestCompletionRejectsUnknownShell(t *testing.T) {
	isolate(t)
	if err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("expected an error for an unknown shell")
	}
}

func TestCompletionScripts(t *testing.T) {
	isolate(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			var out bytes.Buffer
			root := New(io.Discard, LogInfo).RootCommand()
			root.SetArgs([]string{"completion", shell})
			root.SetOut(&out)
			if err := root.ExecuteContext(context.Background()); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out.String(), "titleplot") {
				t.Errorf("%s script does not mention titleplot", shell)
			}
		})
	}
}

func TestOrderFlagCompletion(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{cobra.ShellCompRequestCmd, "plot", "--order", ""})
	root.SetOut(&out)
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"horizontal", "vertical"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("completions missing %q: %q", want, out.String())
		}
	}
}
