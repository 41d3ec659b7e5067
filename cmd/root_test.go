package cmd_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jonesrussell/north-cloud/schema-auditor/cmd"
)

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	root := cmd.NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "schema-auditor version ") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	t.Parallel()

	root := cmd.NewRootCommand()
	for _, name := range []string{"serve", "audit", "rules", "version"} {
		found, _, err := root.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRulesCommand(t *testing.T) {
	t.Parallel()

	root := cmd.NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"rules", "--type", "Organization"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "Example:") {
		t.Errorf("rules output missing example:\n%s", out.String())
	}
}
