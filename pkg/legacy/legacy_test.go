package legacy

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"ompkg/pkg/lock"
	"ompkg/pkg/pkgerr"
	"ompkg/pkg/workspace"
)

func writeConfig(t *testing.T, content string) *Manager {
	t.Helper()
	root := t.TempDir()
	if content != "" {
		if err := os.WriteFile(filepath.Join(root, DefaultFileName), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return New(root)
}

func readConfig(t *testing.T, m *Manager) string {
	t.Helper()
	data, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func pluginLock(entries map[string][]string) *lock.Lock {
	l := lock.New()
	for repo, files := range entries {
		l.Put(repo, &lock.Package{Version: "v1.0.0", Target: workspace.TargetPlugins, Files: files})
	}
	return l
}

func TestParsePluginField(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"array", `["b", "a", "b"]`, []string{"a", "b"}},
		{"comma string", `"a, b"`, []string{"a", "b"}},
		{"whitespace string", `"streamer  mysql\tcrashdetect"`, []string{"crashdetect", "mysql", "streamer"}},
		{"extensions stripped", `["streamer.so", "streamer.dll", "mysql"]`, []string{"mysql", "streamer"}},
		{"null", `null`, []string{}},
		{"empty", ``, nil},
		{"number", `3`, []string{}},
		{"mixed array", `["a", 1, null]`, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePluginField(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("ParsePluginField() error = %v", err)
			}
			if len(got) != len(tt.want) || (len(got) > 0 && !reflect.DeepEqual(got, tt.want)) {
				t.Errorf("ParsePluginField(%s) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPluginNames(t *testing.T) {
	l := lock.New()
	l.Put("a/streamer", &lock.Package{
		Version: "v2.9.6",
		Target:  workspace.TargetPlugins,
		Files:   []string{"plugins/streamer.so", "plugins/streamer.dll", "include/streamer.inc"},
	})
	l.Put("b/mysql", &lock.Package{
		Version: "R41-4",
		Target:  workspace.TargetPlugins,
		Files:   []string{"Plugins/mysql.so", "libmariadb.so"},
	})
	l.Put("c/comp", &lock.Package{
		Version: "v1.0.0",
		Target:  workspace.TargetComponents,
		Files:   []string{"components/comp.so"},
	})

	if got := PluginNames(l, ""); !reflect.DeepEqual(got, []string{"mysql", "streamer"}) {
		t.Errorf("PluginNames(all) = %v", got)
	}
	if got := PluginNames(l, "a/streamer"); !reflect.DeepEqual(got, []string{"streamer"}) {
		t.Errorf("PluginNames(a/streamer) = %v", got)
	}
	if got := PluginNames(l, "c/comp"); len(got) != 0 {
		t.Errorf("components must not count: %v", got)
	}
}

func TestSyncMergesLegacyString(t *testing.T) {
	m := writeConfig(t, `{"legacy_plugins": "a, b"}`)
	l := pluginLock(map[string][]string{
		"x/b": {"plugins/b.so"},
		"x/c": {"plugins/c.dll"},
	})

	got, err := m.SyncFromLock(l)
	if err != nil {
		t.Fatalf("SyncFromLock() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("SyncFromLock() = %v", got)
	}
	if text := readConfig(t, m); text != `{"legacy_plugins": ["a", "b", "c"]}` {
		t.Errorf("config = %s", text)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	m := writeConfig(t, "{\n  \"name\": \"server\",\n  \"max_players\": 50\n}\n")
	l := pluginLock(map[string][]string{"x/streamer": {"plugins/streamer.so"}})

	if _, err := m.SyncFromLock(l); err != nil {
		t.Fatal(err)
	}
	first := readConfig(t, m)
	info, err := os.Stat(m.Path())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.SyncFromLock(l); err != nil {
		t.Fatal(err)
	}
	second := readConfig(t, m)
	if first != second {
		t.Errorf("second sync changed the document:\n%s\n---\n%s", first, second)
	}
	again, err := os.Stat(m.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !again.ModTime().Equal(info.ModTime()) {
		t.Error("unchanged sync should not rewrite the file")
	}

	want := "{\n  \"name\": \"server\",\n  \"max_players\": 50,\n  \"legacy_plugins\": [\"streamer\"]\n}\n"
	if first != want {
		t.Errorf("config =\n%s\nwant\n%s", first, want)
	}
}

func TestSyncPreservesOtherFields(t *testing.T) {
	original := `{
	"rcon": {"password": "changeme", "allow_teleport": false},
	"legacy_plugins": ["old"],
	"pawn": {
		"main_scripts": ["gamemode 1"],
		"side_scripts": []
	}
}
`
	m := writeConfig(t, original)
	l := pluginLock(map[string][]string{"x/new": {"plugins/new.so"}})

	if _, err := m.SyncFromLock(l); err != nil {
		t.Fatal(err)
	}
	want := strings.Replace(original, `["old"]`, `["new", "old"]`, 1)
	if got := readConfig(t, m); got != want {
		t.Errorf("config =\n%s\nwant\n%s", got, want)
	}
}

func TestSyncCreatesDocument(t *testing.T) {
	m := writeConfig(t, "")

	if _, err := m.SyncFromLock(lock.New()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(m.Path()); !os.IsNotExist(err) {
		t.Error("empty sync should not create the document")
	}

	l := pluginLock(map[string][]string{"x/a": {"plugins/a.so"}})
	if _, err := m.SyncFromLock(l); err != nil {
		t.Fatal(err)
	}
	if got := readConfig(t, m); got != "{\n  \"legacy_plugins\": [\"a\"]\n}\n" {
		t.Errorf("config = %q", got)
	}
}

func TestRemoveLastPluginDeletesField(t *testing.T) {
	m := writeConfig(t, "{\n  \"legacy_plugins\": [\"onlyplugin\"],\n  \"name\": \"srv\"\n}\n")
	l := pluginLock(map[string][]string{"x/onlyplugin": {"plugins/onlyplugin.so"}})

	got, err := m.RemoveFromLock(l, "x/onlyplugin")
	if err != nil {
		t.Fatalf("RemoveFromLock() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("RemoveFromLock() = %v, want empty", got)
	}
	if text := readConfig(t, m); text != "{\n  \"name\": \"srv\"\n}\n" {
		t.Errorf("config = %q", text)
	}
}

func TestRemoveOnlyMember(t *testing.T) {
	m := writeConfig(t, `{"legacy_plugins": ["onlyplugin"]}`)
	l := pluginLock(map[string][]string{"x/onlyplugin": {"plugins/onlyplugin.dll"}})

	if _, err := m.RemoveFromLock(l, "x/onlyplugin"); err != nil {
		t.Fatal(err)
	}
	if text := readConfig(t, m); text != "{}" {
		t.Errorf("config = %q", text)
	}
}

func TestRemoveKeepsSharedAndForeignNames(t *testing.T) {
	m := writeConfig(t, `{"name": "srv", "legacy_plugins": ["a", "b", "manual"]}`)
	l := pluginLock(map[string][]string{
		"x/one": {"plugins/a.so", "plugins/b.so"},
		"x/two": {"plugins/b.so"},
	})

	got, err := m.RemoveFromLock(l, "x/one")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"b", "manual"}) {
		t.Errorf("RemoveFromLock() = %v", got)
	}
	if text := readConfig(t, m); text != `{"name": "srv", "legacy_plugins": ["b", "manual"]}` {
		t.Errorf("config = %s", text)
	}
}

func TestSyncAndRemoveFromLockFile(t *testing.T) {
	m := writeConfig(t, `{}`)
	lockPath := filepath.Join(t.TempDir(), lock.DefaultFileName)
	l := pluginLock(map[string][]string{"x/pkg": {"plugins/pkg.so"}})
	if err := l.Save(lockPath); err != nil {
		t.Fatal(err)
	}

	got, err := m.SyncPlugins(lockPath)
	if err != nil || !reflect.DeepEqual(got, []string{"pkg"}) {
		t.Fatalf("SyncPlugins() = %v, %v", got, err)
	}
	if plugins, _ := m.Plugins(); !reflect.DeepEqual(plugins, []string{"pkg"}) {
		t.Errorf("Plugins() = %v", plugins)
	}

	got, err = m.RemovePlugins("x/pkg", lockPath)
	if err != nil || len(got) != 0 {
		t.Fatalf("RemovePlugins() = %v, %v", got, err)
	}
	if text := readConfig(t, m); strings.Contains(text, FieldName) {
		t.Errorf("field should be gone: %s", text)
	}
}

func TestMalformedDocument(t *testing.T) {
	l := pluginLock(map[string][]string{"x/a": {"plugins/a.so"}})

	for name, content := range map[string]string{
		"syntax":     `{"legacy_plugins": [`,
		"not object": `["a"]`,
	} {
		t.Run(name, func(t *testing.T) {
			m := writeConfig(t, content)
			_, err := m.SyncFromLock(l)
			if !errors.Is(err, pkgerr.ErrConfig) {
				t.Errorf("SyncFromLock() error = %v, want ErrConfig", err)
			}
			if got := readConfig(t, m); got != content {
				t.Errorf("malformed document was rewritten: %s", got)
			}
		})
	}
}

func TestDocumentSetCompact(t *testing.T) {
	doc, err := parseDocument([]byte(`{"a":1,"b":[1,2]}`))
	if err != nil {
		t.Fatal(err)
	}
	got := string(doc.set(FieldName, []byte(`["x"]`)))
	if got != `{"a":1,"b":[1,2], "legacy_plugins": ["x"]}` {
		t.Errorf("set() = %s", got)
	}
}

func TestDocumentDuplicateKeys(t *testing.T) {
	doc, err := parseDocument([]byte(`{"legacy_plugins": ["a"], "legacy_plugins": ["b"]}`))
	if err != nil {
		t.Fatal(err)
	}
	got := string(doc.set(FieldName, []byte(`["c"]`)))
	if got != `{"legacy_plugins": ["a"], "legacy_plugins": ["c"]}` {
		t.Errorf("set() = %s", got)
	}
}

func TestDocumentRemoveDuplicateKeys(t *testing.T) {
	doc, err := parseDocument([]byte(`{"name": "srv", "legacy_plugins": ["a"], "port": 7777, "legacy_plugins": ["b"]}`))
	if err != nil {
		t.Fatal(err)
	}
	got, ok := doc.remove(FieldName)
	if !ok {
		t.Fatal("remove() reported the key as absent")
	}
	if string(got) != `{"name": "srv", "port": 7777}` {
		t.Errorf("remove() = %s", got)
	}
}

func TestRemoveLastPluginDeletesDuplicateFields(t *testing.T) {
	m := writeConfig(t, `{"legacy_plugins": ["pkg"], "legacy_plugins": ["pkg"]}`)
	l := pluginLock(map[string][]string{"x/pkg": {"plugins/pkg.so"}})

	if _, err := m.RemoveFromLock(l, "x/pkg"); err != nil {
		t.Fatalf("RemoveFromLock() error = %v", err)
	}
	if text := readConfig(t, m); text != "{}" {
		t.Errorf("config = %q", text)
	}
	plugins, err := m.Plugins()
	if err != nil {
		t.Fatal(err)
	}
	if len(plugins) != 0 {
		t.Errorf("Plugins() = %v, want none", plugins)
	}
}
