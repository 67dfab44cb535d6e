package registry

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		archivePath string
		want        Kind
	}{
		{"x.so", "components/x.so", KindComponentBinary},
		{"x.so", "plugins/x.so", KindPluginBinary},
		{"x.dll", "release/plugin/x.dll", KindPluginBinary},
		{"x.dll", `pkg\Components\x.dll`, KindComponentBinary},
		{"x.so", "pkg-linux/x.so", KindBinary},
		{"x.so", "", KindBinary},
		{"libx.so", "plugins/libx.so", KindRootBinary},
		{"AMXFile.dll", "components/AMXFile.dll", KindRootBinary},
		{"x.dylib", "", KindBinary},
		{"x.dylib", "components/x.dylib", KindComponentBinary},
		{"x.dylib", "plugins/x.dylib", KindPluginBinary},
		{"libx.dylib", "plugins/libx.dylib", KindRootBinary},
		{"X.DLL", "PLUGINS/X.DLL", KindPluginBinary},
		{"pkg.inc", "include/pkg.inc", KindInclude},
		{"pkg.inc", "plugins/pkg.inc", KindInclude},
		{"README.md", "README.md", KindIgnored},
		{"server.cfg", "", KindIgnored},
		// components wins over plugins when both appear
		{"x.so", "plugins/components/x.so", KindComponentBinary},
		// only directory segments are inspected
		{"plugins.so", "plugins.so", KindBinary},
	}

	for _, tt := range tests {
		t.Run(tt.archivePath+"|"+tt.name, func(t *testing.T) {
			if got := Classify(tt.name, tt.archivePath); got != tt.want {
				t.Errorf("Classify(%q, %q) = %s, want %s", tt.name, tt.archivePath, got, tt.want)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		if got := Classify("x.so", "components/x.so"); got != KindComponentBinary {
			t.Fatalf("run %d: got %s", i, got)
		}
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"pkg.zip", FormatZip},
		{"PKG.ZIP", FormatZip},
		{"pkg.tar.gz", FormatTarGz},
		{"pkg.tgz", FormatTarGz},
		{"pkg.rar", FormatRar},
		{"pkg.so", FormatNone},
		{"pkg.tar", FormatNone},
	}

	for _, tt := range tests {
		if got := FormatOf(tt.name); got != tt.want {
			t.Errorf("FormatOf(%q) = %d, want %d", tt.name, got, tt.want)
		}
		if IsArchive(tt.name) != (tt.want != FormatNone) {
			t.Errorf("IsArchive(%q) mismatch", tt.name)
		}
	}
}

func TestFilesBuckets(t *testing.T) {
	f := &Files{}
	if !f.Empty() {
		t.Fatal("new Files should be empty")
	}

	f.Add(KindInclude, "a.inc")
	f.Add(KindPluginBinary, "p.so")
	f.Add(KindIgnored, "README")

	other := &Files{ComponentBinaries: []string{"c.so"}, Binaries: []string{"b.so"}}
	f.Merge(other)
	f.Merge(nil)

	if f.Count() != 4 {
		t.Errorf("Count() = %d, want 4", f.Count())
	}
	if len(f.Includes) != 1 || len(f.PluginBinaries) != 1 || len(f.ComponentBinaries) != 1 || len(f.Binaries) != 1 {
		t.Errorf("unexpected buckets: %+v", f)
	}
}
