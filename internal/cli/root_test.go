package cli

import (
	"bytes"
	"testing"
)

// executeCommand runs a command with the given args and captures output.
func executeCommand(args ...string) (string, error) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelp(t *testing.T) {
	_, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGlobalFlags(t *testing.T) {
	root := NewRootCmd()

	formatFlag := root.PersistentFlags().Lookup("format")
	if formatFlag == nil {
		t.Fatal("expected --format flag to exist")
	}
	if formatFlag.DefValue != "text" {
		t.Errorf("expected --format default 'text', got %q", formatFlag.DefValue)
	}

	for _, name := range []string{"db", "verbose", "position"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to exist", name)
		}
	}
}

func TestSubcommands(t *testing.T) {
	root := NewRootCmd()

	paths := [][]string{
		{"login"},
		{"logout"},
		{"status"},
		{"attend"},
		{"clients", "list"},
		{"clients", "add"},
		{"clients", "status"},
		{"clients", "interact"},
		{"clients", "image"},
		{"admin", "attendance"},
		{"admin", "clients"},
		{"admin", "interactions"},
		{"admin", "export"},
		{"gateway", "serve"},
		{"gateway", "employee", "add"},
		{"device"},
		{"version"},
	}
	for _, p := range paths {
		cmd, _, err := root.Find(p)
		if err != nil || cmd == root {
			t.Errorf("command %v not found", p)
		}
	}
}

func TestArgsValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"login without id", []string{"login"}},
		{"status without status", []string{"clients", "status", "c1"}},
		{"interact without type", []string{"clients", "interact", "c1"}},
		{"image without file", []string{"clients", "image", "c1"}},
		{"export without file", []string{"admin", "export"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := executeCommand(tt.args...); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}
