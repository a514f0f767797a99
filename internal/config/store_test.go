package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/everforgeworks/deadly-accel/internal/logging"
)

func newTestStore(t *testing.T, withWorld bool) *Store {
	t.Helper()
	root := t.TempDir()
	world := ""
	if withWorld {
		world = filepath.Join(root, "world")
	}
	return NewStore(filepath.Join(root, "local"), world, logging.Discard())
}

func TestLoadOrResetSeedsFiles(t *testing.T) {
	s := newTestStore(t, true)
	got, err := s.LoadOrReset(Default())
	if err != nil {
		t.Fatalf("LoadOrReset: %v", err)
	}
	if got.VersionNumber != CurrentVersionNumber || got.SafeMaximum != Default().SafeMaximum {
		t.Fatalf("got %+v, want defaults", got)
	}
	for _, p := range []string{s.localPath(), s.worldPath()} {
		if !fileExists(p) {
			t.Fatalf("%s not written", p)
		}
	}
}

func TestLoadPrefersWorld(t *testing.T) {
	s := newTestStore(t, true)
	if err := s.SaveLocal(Default()); err != nil {
		t.Fatalf("SaveLocal: %v", err)
	}
	world := Default()
	world.SafeMaximum = 123
	if err := writeSettings(s.worldPath(), world); err != nil {
		t.Fatalf("write world: %v", err)
	}

	got, err := s.LoadOrReset(Default())
	if err != nil {
		t.Fatalf("LoadOrReset: %v", err)
	}
	if got.SafeMaximum != 123 {
		t.Fatalf("SafeMaximum = %v, want the world value 123", got.SafeMaximum)
	}
}

func TestLoadOrResetBacksUpOldVersion(t *testing.T) {
	s := newTestStore(t, true)
	old := Default()
	old.VersionNumber = CurrentVersionNumber - 1
	old.SafeMaximum = 1
	if err := s.SaveLocal(old); err != nil {
		t.Fatalf("SaveLocal: %v", err)
	}
	if err := writeSettings(s.worldPath(), old); err != nil {
		t.Fatalf("write world: %v", err)
	}

	got, err := s.LoadOrReset(Default())
	if err != nil {
		t.Fatalf("LoadOrReset: %v", err)
	}
	if got.SafeMaximum != Default().SafeMaximum || got.VersionNumber != CurrentVersionNumber {
		t.Fatalf("got %+v, want defaults", got)
	}

	for _, dir := range []string{s.LocalDir, s.WorldDir} {
		backup := filepath.Join(dir, Filename+".backup.0")
		b, err := readSettings(backup)
		if err != nil {
			t.Fatalf("read backup in %s: %v", dir, err)
		}
		if b.SafeMaximum != 1 {
			t.Fatalf("backup SafeMaximum = %v, want 1", b.SafeMaximum)
		}
		cur, err := readSettings(filepath.Join(dir, Filename))
		if err != nil {
			t.Fatalf("read current in %s: %v", dir, err)
		}
		if cur.VersionNumber != CurrentVersionNumber {
			t.Fatalf("%s not overwritten, version %d", dir, cur.VersionNumber)
		}
	}
}

func TestBackupNameSkipsTaken(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{".backup.0", ".backup.1"} {
		if err := os.WriteFile(filepath.Join(dir, Filename+n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := backupName(dir)
	if err != nil {
		t.Fatalf("backupName: %v", err)
	}
	if want := filepath.Join(dir, Filename+".backup.2"); got != want {
		t.Fatalf("backupName = %s, want %s", got, want)
	}
}

func TestBackupNameStatError(t *testing.T) {
	// A regular file where the directory should be fails Stat with ENOTDIR.
	notDir := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(notDir, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := backupName(notDir); err == nil {
		t.Fatalf("backupName under a file returned no error")
	}
}

func TestReadSettingsKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	doc := "version_number: 3\nsafe_maximum: 60\ndamage_scale_base: 1.2\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := readSettings(path)
	if err != nil {
		t.Fatalf("readSettings: %v", err)
	}
	if got.SafeMaximum != 60 || got.DamageScaleBase != 1.2 {
		t.Fatalf("explicit keys lost: %+v", got)
	}
	def := Default()
	if !got.HideHUDInCreative || got.TimeScaling != def.TimeScaling || !got.IgnoreJetpack {
		t.Fatalf("missing keys not defaulted: hide_hud=%v time_scaling=%v ignore_jetpack=%v",
			got.HideHUDInCreative, got.TimeScaling, got.IgnoreJetpack)
	}
	if len(got.CushioningBlocks) != len(def.CushioningBlocks) {
		t.Fatalf("CushioningBlocks = %+v, want the default table", got.CushioningBlocks)
	}

	if err := os.WriteFile(path, []byte("safe_maximum: 60\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got, _ := readSettings(path); got.VersionNumber != 0 {
		t.Fatalf("unversioned file read as version %d", got.VersionNumber)
	}
}

func TestTryLoadFallsBackOnGarbage(t *testing.T) {
	s := newTestStore(t, false)
	if err := os.MkdirAll(s.LocalDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.localPath(), []byte("safe_maximum: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	fallback := Default()
	fallback.SafeMaximum = 77
	if got := s.TryLoad(fallback); got.SafeMaximum != 77 {
		t.Fatalf("SafeMaximum = %v, want fallback 77", got.SafeMaximum)
	}
}

func TestLoadOrResetRejectsInvalid(t *testing.T) {
	s := newTestStore(t, false)
	bad := Default()
	bad.DamageScaleBase = 0
	if err := s.SaveLocal(bad); err != nil {
		t.Fatalf("SaveLocal: %v", err)
	}
	got, err := s.LoadOrReset(Default())
	if err != nil {
		t.Fatalf("LoadOrReset: %v", err)
	}
	if got.DamageScaleBase != Default().DamageScaleBase {
		t.Fatalf("DamageScaleBase = %v, want default", got.DamageScaleBase)
	}
}

func TestNormalizeFillsCushionType(t *testing.T) {
	s := newTestStore(t, false)
	if err := os.MkdirAll(s.LocalDir, 0o755); err != nil {
		t.Fatal(err)
	}
	yamlDoc := "version_number: 3\nsafe_maximum: 10\ndamage_scale_base: 1\ncushioning_blocks:\n  - subtype_id: Bench\n    cushion_factor: 0.1\n"
	if err := os.WriteFile(s.localPath(), []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	got := s.TryLoad(Default())
	if len(got.CushioningBlocks) != 1 || got.CushioningBlocks[0].TypeID != DefaultCushionTypeID {
		t.Fatalf("CushioningBlocks = %+v", got.CushioningBlocks)
	}
	if got.IgnoredGridNames == nil {
		t.Fatalf("IgnoredGridNames left nil")
	}
}
