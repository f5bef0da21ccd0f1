package desktop

import (
	"strings"
	"testing"

	"github.com/deskhand/deskhand/internal/runtime"
)

const sampleEntry = `[Desktop Entry]
Type=Application
Name=My App
Exec=myapp --flag
Icon=myapp
Categories=Utility;GTK;
`

func TestRewriteToolboxExecAndName(t *testing.T) {
	out := Rewrite(sampleEntry, runtime.Toolbox, "demo")
	if !strings.Contains(out, "Exec=toolbox run -c demo myapp --flag") {
		t.Fatalf("exec line not rewritten:\n%s", out)
	}
	if !strings.Contains(out, "Name=My App (demo)") {
		t.Fatalf("name line not rewritten:\n%s", out)
	}
	// untouched lines survive byte-for-byte
	if !strings.Contains(out, "Categories=Utility;GTK;") {
		t.Fatalf("unrelated line modified:\n%s", out)
	}
}

func TestRewriteAllMatchingLines(t *testing.T) {
	text := "[Desktop Entry]\nName=App\nExec=app\n[Desktop Action new]\nName=New Window\nExec=app --new\n"
	out := Rewrite(text, runtime.Toolbox, "box")
	if strings.Count(out, "Exec=toolbox run -c box ") != 2 {
		t.Fatalf("expected both Exec lines rewritten:\n%s", out)
	}
	if strings.Count(out, "(box)") != 2 {
		t.Fatalf("expected both Name lines rewritten:\n%s", out)
	}
}

func TestRewriteUnsupportedKindIsNoop(t *testing.T) {
	for _, k := range []runtime.Kind{runtime.Docker, runtime.Unknown} {
		if out := Rewrite(sampleEntry, k, "demo"); out != sampleEntry {
			t.Fatalf("kind %q must not rewrite, got:\n%s", k, out)
		}
	}
}

func TestRewriteAppliedTwiceDoubleWraps(t *testing.T) {
	// Documents the single-application contract: the pattern still matches
	// the rewritten Exec= line, so a second pass wraps the template again.
	once := Rewrite(sampleEntry, runtime.Toolbox, "demo")
	twice := Rewrite(once, runtime.Toolbox, "demo")
	if once == twice {
		t.Fatal("expected second application to differ; contract assumption changed")
	}
	if !strings.Contains(twice, "Exec=toolbox run -c demo toolbox run -c demo myapp --flag") {
		t.Fatalf("unexpected double-application shape:\n%s", twice)
	}
}

func TestDecodeValidEntry(t *testing.T) {
	e, err := Decode("/ws/applications/com.example.MyApp.desktop", sampleEntry)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if e.ID != "com.example.MyApp" {
		t.Fatalf("unexpected id %q", e.ID)
	}
	if e.Name != "My App" || e.Exec != "myapp --flag" || e.Icon != "myapp" {
		t.Fatalf("unexpected fields: %+v", e)
	}
	if e.NoDisplay {
		t.Fatal("NoDisplay should default to false")
	}
}

func TestDecodeNoDisplay(t *testing.T) {
	text := "[Desktop Entry]\nName=Hidden\nExec=hidden\nNoDisplay=true\n"
	e, err := Decode("hidden.desktop", text)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !e.NoDisplay {
		t.Fatal("expected NoDisplay to be set")
	}
}

func TestDecodeRejectsNonDescriptorText(t *testing.T) {
	if _, err := Decode("broken.desktop", "this is not = = a desktop [file\ngarbage"); err == nil {
		t.Fatal("expected decode error for garbage input")
	}
	if _, err := Decode("nosection.desktop", "Name=orphan\n"); err == nil {
		t.Fatal("expected decode error when [Desktop Entry] section is absent")
	}
}

func TestDecodeSurvivesRewrite(t *testing.T) {
	out := Rewrite(sampleEntry, runtime.Toolbox, "demo")
	e, err := Decode("myapp.desktop", out)
	if err != nil {
		t.Fatalf("rewritten text must stay decodable: %v", err)
	}
	if e.Exec != "toolbox run -c demo myapp --flag" {
		t.Fatalf("unexpected exec after rewrite: %q", e.Exec)
	}
	if e.Name != "My App (demo)" {
		t.Fatalf("unexpected name after rewrite: %q", e.Name)
	}
}
