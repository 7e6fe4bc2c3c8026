package commands_test

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wimvanhooff/google-tasks-tools/internal/commands"
	"github.com/wimvanhooff/google-tasks-tools/internal/config"
	"github.com/wimvanhooff/google-tasks-tools/internal/exitcode"
	"github.com/wimvanhooff/google-tasks-tools/internal/service"
	"github.com/wimvanhooff/google-tasks-tools/internal/testutil"
)

// runCommand runs a command with optional fake gateways and parsed flags.
func runCommand(t *testing.T, cmd commands.Command, cfg *config.Config, gws *commands.Gateways, flags []string) (stdout, stderr string, code int) {
	t.Helper()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(flags); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	var outBuf, errBuf bytes.Buffer
	code = cmd.Run(context.Background(), cfg, gws, zerolog.Nop(), fs.Args(), &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func starConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Dir: t.TempDir(),
		Sync: config.SyncConfig{
			TargetCollection: "Starred",
			StarMarker:       true,
			StripMarkers:     true,
		},
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, nil, nil, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "tasksync 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, nil, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	testutil.GoldenString(t, "help", stdout)
}

func TestSyncCommand(t *testing.T) {
	source := testutil.NewFakeGateway("Todoist")
	mirror := testutil.NewFakeGateway("Google Tasks")
	source.AddCollection("proj-1", "Work")
	source.AddItem("proj-1", service.Entity{ID: "t1", Title: "Pay rent ⭐"})

	_, stderr, code := runCommand(t, &commands.SyncCmd{}, starConfig(t),
		&commands.Gateways{Source: source, Mirror: mirror}, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr: %s)", exitcode.Success, code, stderr)
	}
	if source.Mutations() != 0 {
		t.Errorf("source must never be mutated by a plain sync, got %d calls", source.Mutations())
	}
	if mirror.InsertCalls != 1 {
		t.Errorf("expected 1 mirror insert, got %d", mirror.InsertCalls)
	}
}

func TestSyncCommand_DryRun(t *testing.T) {
	source := testutil.NewFakeGateway("Todoist")
	mirror := testutil.NewFakeGateway("Google Tasks")
	source.AddCollection("proj-1", "Work")
	source.AddItem("proj-1", service.Entity{ID: "t1", Title: "Pay rent ⭐"})

	_, _, code := runCommand(t, &commands.SyncCmd{}, starConfig(t),
		&commands.Gateways{Source: source, Mirror: mirror}, []string{"--dry-run"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if mirror.Mutations() != 0 {
		t.Errorf("dry run must not mutate the mirror, got %d calls", mirror.Mutations())
	}
}

func TestSyncCommand_BackendFailure(t *testing.T) {
	source := testutil.NewFakeGateway("Todoist")
	mirror := testutil.NewFakeGateway("Google Tasks")
	mirror.ListCollectionsErr = context.DeadlineExceeded

	_, stderr, code := runCommand(t, &commands.SyncCmd{}, starConfig(t),
		&commands.Gateways{Source: source, Mirror: mirror}, nil)

	if code != exitcode.Failure {
		t.Errorf("expected exit code %d, got %d", exitcode.Failure, code)
	}
	if !strings.Contains(stderr, "error:") {
		t.Errorf("expected error message on stderr, got %q", stderr)
	}
}

func TestSyncCommand_PersistsState(t *testing.T) {
	source := testutil.NewFakeGateway("Todoist")
	mirror := testutil.NewFakeGateway("Google Tasks")
	source.AddCollection("proj-1", "Work")
	source.AddItem("proj-1", service.Entity{ID: "t1", Title: "Pay rent ⭐"})
	cfg := starConfig(t)

	_, _, code := runCommand(t, &commands.SyncCmd{}, cfg,
		&commands.Gateways{Source: source, Mirror: mirror}, nil)
	if code != exitcode.Success {
		t.Fatalf("first sync failed with code %d", code)
	}

	// A second run against the persisted state is a no-op.
	_, _, code = runCommand(t, &commands.SyncCmd{}, cfg,
		&commands.Gateways{Source: source, Mirror: mirror}, nil)
	if code != exitcode.Success {
		t.Fatalf("second sync failed with code %d", code)
	}
	if mirror.InsertCalls != 1 {
		t.Errorf("expected state to persist across runs, got %d inserts", mirror.InsertCalls)
	}
}

func TestRegistry_KnowsAllCommands(t *testing.T) {
	for _, name := range []string{"sync", "run", "daemon", "watch", "help", "version"} {
		if _, ok := commands.DefaultRegistry.Find(name); !ok {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestRegistry_AllSortedOnceEach(t *testing.T) {
	all := commands.DefaultRegistry.All()
	var names []string
	for _, cmd := range all {
		names = append(names, cmd.Name())
	}
	want := []string{"daemon", "help", "sync", "version"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

func TestRegistry_RejectsDuplicateNames(t *testing.T) {
	r := commands.NewRegistry()
	if err := r.Register(&commands.SyncCmd{}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := r.Register(&commands.SyncCmd{}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}
