package classifier

import "testing"

func TestDetermineCategory(t *testing.T) {
	c := New()
	cases := map[string]string{
		"/home/user/.cache/app":          "caches",
		"/tmp/tempfile.tmp":              "temporary_files",
		"/home/user/Downloads/file.zip":  "downloads",
		"/home/user/projects/myapp/src":  "projects",
		"/home/user/Documents/notes.txt": "app_data",
	}
	for path, want := range cases {
		if got := c.DetermineCategory(path); got != want {
			t.Errorf("DetermineCategory(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestClassifyForCleanup(t *testing.T) {
	c := New()

	cat, safety, _ := c.ClassifyForCleanup("/home/user/.cache/app")
	if cat != CategoryCache || safety != SafetySafe {
		t.Errorf("cache path: got (%v, %v)", cat, safety)
	}

	cat, safety, _ = c.ClassifyForCleanup("/tmp/tempfile.tmp")
	if cat != CategoryTemporaryFiles || safety != SafetySafe {
		t.Errorf("temp path: got (%v, %v)", cat, safety)
	}

	cat, safety, _ = c.ClassifyForCleanup("/home/user/Downloads/file.zip")
	if cat != CategoryOldDownloads || safety != SafetyMaybe {
		t.Errorf("downloads path: got (%v, %v)", cat, safety)
	}

	cat, safety, _ = c.ClassifyForCleanup("/home/user/projects/myapp/src")
	if cat != CategoryOther || safety != SafetyRisky {
		t.Errorf("project path: got (%v, %v)", cat, safety)
	}

	cat, safety, rationale := c.ClassifyForCleanup("/usr/bin/bash")
	if cat != CategoryOther || safety != SafetyRisky {
		t.Errorf("system path: got (%v, %v)", cat, safety)
	}
	if rationale != "system path" {
		t.Errorf("system path rationale = %q", rationale)
	}
}

func TestSafetyOrdering(t *testing.T) {
	if !(SafetySafe < SafetyMaybe) {
		t.Error("Safe should sort before Maybe")
	}
	if !(SafetyMaybe < SafetyRisky) {
		t.Error("Maybe should sort before Risky")
	}
}

func TestSystemPatternsCheckedFirst(t *testing.T) {
	c := New()
	// A path that looks like a cache dir but sits under a system prefix
	// must still classify as the riskier system bucket.
	cat, safety, rationale := c.ClassifyForCleanup("/etc/cache")
	if cat != CategoryOther || safety != SafetyRisky || rationale != "system path" {
		t.Errorf("system precedence violated: got (%v, %v, %q)", cat, safety, rationale)
	}
}
