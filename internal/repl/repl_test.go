package repl

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rainoftime/canal/pkg/config"
)

const fixtureModule = `{
	"globals": [
		{"name": "g", "type": "i8", "init": {"kind":"int","type":"i8","value":1}, "const": false}
	],
	"functions": [
		{
			"name": "addone",
			"ret": "i8",
			"params": [{"name": "a", "type": "i8"}],
			"blocks": [
				{
					"name": "entry",
					"instrs": [
						{"name": "r", "op": "add", "type": "i8", "operands": ["%a", {"kind":"int","type":"i8","value":1}]},
						{"op": "ret", "operands": ["%r"]}
					]
				}
			]
		}
	]
}`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.json")
	if err := os.WriteFile(path, []byte(fixtureModule), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func newREPL() (*REPL, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(config.Default(), &buf), &buf
}

func TestDispatchQuit(t *testing.T) {
	r, _ := newREPL()
	quit, err := r.Dispatch("quit")
	if err != nil {
		t.Fatalf("Dispatch(quit): %v", err)
	}
	if !quit {
		t.Error("Dispatch(quit) should report quit=true")
	}
	quit, err = r.Dispatch("exit")
	if err != nil || !quit {
		t.Error("Dispatch(exit) should behave like quit")
	}
}

func TestDispatchEmptyLineIsNoop(t *testing.T) {
	r, _ := newREPL()
	quit, err := r.Dispatch("   ")
	if err != nil || quit {
		t.Error("Dispatch on a blank line should be a no-op")
	}
}

func TestDispatchHelp(t *testing.T) {
	r, buf := newREPL()
	if _, err := r.Dispatch("help"); err != nil {
		t.Fatalf("Dispatch(help): %v", err)
	}
	if !strings.Contains(buf.String(), "file <path>") {
		t.Error("help should list the file command")
	}
}

func TestDispatchUnknownCommandErrors(t *testing.T) {
	r, _ := newREPL()
	if _, err := r.Dispatch("frobnicate"); err == nil {
		t.Error("Dispatch on an unknown command should error")
	}
}

func TestDispatchFileMissingArgErrors(t *testing.T) {
	r, _ := newREPL()
	if _, err := r.Dispatch("file"); err == nil {
		t.Error("file with no path should error")
	}
}

func TestFileLoadsModule(t *testing.T) {
	r, _ := newREPL()
	path := writeFixture(t)
	if err := r.File(path); err != nil {
		t.Fatalf("File: %v", err)
	}
	if r.module == nil {
		t.Fatal("File should populate r.module")
	}
	if r.module.FunctionByName("addone") == nil {
		t.Error("loaded module should contain function addone")
	}
}

func TestFileMissingPathErrors(t *testing.T) {
	r, _ := newREPL()
	if err := r.File(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("File on a nonexistent path should error")
	}
}

func TestFileResetsExistingDriver(t *testing.T) {
	r, _ := newREPL()
	path := writeFixture(t)
	if err := r.File(path); err != nil {
		t.Fatalf("File: %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.drv == nil {
		t.Fatal("Start should have set r.drv")
	}
	if err := r.File(path); err != nil {
		t.Fatalf("File (reload): %v", err)
	}
	if r.drv != nil {
		t.Error("loading a new file should discard the previous driver")
	}
}

func TestInfoModuleWithoutFileErrors(t *testing.T) {
	r, _ := newREPL()
	if err := r.InfoModule(); err == nil {
		t.Error("InfoModule with no loaded module should error")
	}
}

func TestInfoModuleReportsSignature(t *testing.T) {
	r, buf := newREPL()
	if err := r.File(writeFixture(t)); err != nil {
		t.Fatalf("File: %v", err)
	}
	if err := r.InfoModule(); err != nil {
		t.Fatalf("InfoModule: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Functions: 1") || !strings.Contains(out, "Globals: 1") {
		t.Errorf("InfoModule output missing expected counts: %q", out)
	}
}

func TestStartWithoutFileErrors(t *testing.T) {
	r, _ := newREPL()
	if err := r.Start(); err == nil {
		t.Error("Start with no loaded module should error")
	}
}

func TestStartBuildsDriver(t *testing.T) {
	r, _ := newREPL()
	if err := r.File(writeFixture(t)); err != nil {
		t.Fatalf("File: %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.drv == nil {
		t.Error("Start should set r.drv")
	}
}

func TestRunWithoutFileErrors(t *testing.T) {
	r, _ := newREPL()
	if err := r.Run(); err == nil {
		t.Error("Run with no loaded module should error")
	}
}

func TestRunCallsStartImplicitly(t *testing.T) {
	r, buf := newREPL()
	if err := r.File(writeFixture(t)); err != nil {
		t.Fatalf("File: %v", err)
	}
	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.drv == nil {
		t.Error("Run should implicitly Start if not already started")
	}
	if !strings.Contains(buf.String(), "addone") {
		t.Errorf("Run output should mention the analyzed function: %q", buf.String())
	}
}

func TestDumpWithoutRunErrors(t *testing.T) {
	r, _ := newREPL()
	if err := r.Dump(filepath.Join(t.TempDir(), "out.txt")); err == nil {
		t.Error("Dump before Run should error")
	}
}

func TestDumpWritesFile(t *testing.T) {
	r, _ := newREPL()
	if err := r.File(writeFixture(t)); err != nil {
		t.Fatalf("File: %v", err)
	}
	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	path := filepath.Join(t.TempDir(), "dump.txt")
	if err := r.Dump(path); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "function") || !strings.Contains(content, "addone") {
		t.Errorf("dump file missing expected content: %q", content)
	}
}

func TestDispatchDumpMissingArgErrors(t *testing.T) {
	r, _ := newREPL()
	if _, err := r.Dispatch("dump"); err == nil {
		t.Error("dump with no path should error")
	}
}

func TestDispatchInfoRequiresModuleKeyword(t *testing.T) {
	r, _ := newREPL()
	if _, err := r.Dispatch("info"); err == nil {
		t.Error("info with no subcommand should error")
	}
	if _, err := r.Dispatch("info bogus"); err == nil {
		t.Error("info with an unrecognized subcommand should error")
	}
}
