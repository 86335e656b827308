// Package main provides tests for the LeapLineage CLI.
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leaplineage/internal/cli"
)

const bufferFixture = `
vertices:
  - {ref: proc, label: Process, properties: {name: load_orders}}
  - {ref: port, label: Port, properties: {portType: INPUT_PORT}}
  - {ref: impl, label: Port, properties: {portType: INPUT_PORT}}
  - {ref: schema, label: SchemaType}
  - {ref: attr, label: SchemaAttribute}
  - {ref: src, label: SchemaAttribute}
  - {ref: mid, label: SchemaAttribute}
  - {ref: dst, label: SchemaAttribute}
edges:
  - {label: ProcessPort, from: proc, to: port}
  - {label: PortDelegation, from: port, to: impl}
  - {label: PortSchema, from: impl, to: schema}
  - {label: AttributeForSchema, from: schema, to: attr}
  - {label: SchemaAttributeType, from: attr, to: src}
  - {label: LineageMapping, from: src, to: mid}
  - {label: SchemaAttributeType, from: mid, to: dst}
`

const mainFixture = `
vertices:
  - {ref: src, label: SchemaAttribute, properties: {name: order_id}}
  - {ref: dst, label: SchemaAttribute, properties: {name: order_key}}
`

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if errOut.Len() > 0 {
		t.Logf("stderr: %s", errOut.String())
	}
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	output, err := run(t, "version")
	if err != nil {
		t.Errorf("version command error = %v", err)
	}
	if !strings.Contains(output, "LeapLineage") {
		t.Errorf("version output should contain 'LeapLineage', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := run(t, "--help")
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	expectedCommands := []string{"serve", "sync", "update", "lineage", "seed", "checkpoint"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestSeedSyncWithFlags(t *testing.T) {
	tmpDir := t.TempDir()
	graphFlags := []string{
		"--buffer-path", filepath.Join(tmpDir, "buffer.db"),
		"--main-path", filepath.Join(tmpDir, "main.db"),
		"--log-level", "warn",
		"-o", "json",
	}

	bufferFile := writeFile(t, tmpDir, "buffer.yaml", bufferFixture)
	mainFile := writeFile(t, tmpDir, "main.yaml", mainFixture)

	if _, err := run(t, append([]string{"seed", bufferFile}, graphFlags...)...); err != nil {
		t.Fatalf("seed buffer error = %v", err)
	}
	if _, err := run(t, append([]string{"seed", mainFile, "--graph", "main"}, graphFlags...)...); err != nil {
		t.Fatalf("seed main error = %v", err)
	}

	output, err := run(t, append([]string{"sync"}, graphFlags...)...)
	if err != nil {
		t.Fatalf("sync error = %v", err)
	}
	var report struct {
		Created int `json:"created"`
	}
	if err := json.Unmarshal([]byte(output), &report); err != nil {
		t.Fatalf("sync output is not JSON: %v\n%s", err, output)
	}
	if report.Created != 1 {
		t.Errorf("created = %d, want 1", report.Created)
	}

	output, err = run(t, append([]string{"lineage", "src", "--upstream=false"}, graphFlags...)...)
	if err != nil {
		t.Fatalf("lineage error = %v", err)
	}
	if !strings.Contains(output, `"guid": "dst"`) {
		t.Errorf("lineage output should reach dst, got: %s", output)
	}
}

func TestConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgFile := writeFile(t, tmpDir, "leaplineage.yaml", `
buffer_graph:
  path: graphs/buffer.db
main_graph:
  path: graphs/main.db
output: json
`)
	mainFile := writeFile(t, tmpDir, "main.yaml", mainFixture)

	if _, err := run(t, "--config", cfgFile, "seed", mainFile, "--graph", "main"); err != nil {
		t.Fatalf("seed error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "graphs", "main.db")); err != nil {
		t.Errorf("main graph should be created next to the config file: %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	cfgFile := writeFile(t, tmpDir, "leaplineage.yaml", "buffer_graph:\n  backend: oracle\n")

	_, err := run(t, "--config", cfgFile, "sync")
	if err == nil || !strings.Contains(err.Error(), "unknown graph backend") {
		t.Errorf("expected unknown backend error, got %v", err)
	}
}

func TestCompletionCommand(t *testing.T) {
	shells := []string{"bash", "zsh", "fish", "powershell"}

	for _, shell := range shells {
		t.Run(shell, func(t *testing.T) {
			output, err := run(t, "completion", shell)
			if err != nil {
				t.Errorf("completion %s command error = %v", shell, err)
			}
			if !strings.Contains(output, "leaplineage") {
				t.Errorf("completion %s output should mention leaplineage", shell)
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := run(t, "unknown-command"); err == nil {
		t.Error("unknown command should return an error")
	}
}
