package prefs

import (
	"path/filepath"
	"reflect"
	"testing"

	bbolt "go.etcd.io/bbolt"

	"focusgate/internal/focus/domain"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.db")
	st, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStore_LoadDefaults(t *testing.T) {
	st := tempStore(t)

	snap, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(snap.Settings, domain.DefaultSettings()) {
		t.Errorf("fresh store settings = %+v, want defaults", snap.Settings)
	}
	if len(snap.BlockRules) != 0 || len(snap.WhitelistRules) != 0 {
		t.Errorf("fresh store has rules: %v / %v", snap.BlockRules, snap.WhitelistRules)
	}
	if snap.BlockToggles == nil || snap.WhitelistToggles == nil {
		t.Errorf("toggle maps should be non-nil")
	}
}

func TestStore_SettingsRoundTrip(t *testing.T) {
	st := tempStore(t)

	s := domain.DefaultSettings()
	s.Mode = domain.ModeRedirect
	s.RedirectURL = "https://example.net/focus"
	s.Pomodoro.WorkMinutes = 50
	if err := st.SaveSettings(s); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	snap, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(snap.Settings, s) {
		t.Errorf("settings = %+v, want %+v", snap.Settings, s)
	}
}

func TestStore_SaveSettingsRejectsInvalid(t *testing.T) {
	st := tempStore(t)

	bad := domain.DefaultSettings()
	bad.Pomodoro.WorkMinutes = 0
	if err := st.SaveSettings(bad); err == nil {
		t.Fatalf("expected validation error")
	}

	snap, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(snap.Settings, domain.DefaultSettings()) {
		t.Errorf("rejected settings leaked into the store: %+v", snap.Settings)
	}
}

func TestStore_SaveRulesNormalizes(t *testing.T) {
	st := tempStore(t)

	in := []string{" Example.COM ", "example.com", "", "Reddit.com/r/Gaming"}
	if err := st.SaveBlockRules(in); err != nil {
		t.Fatalf("SaveBlockRules: %v", err)
	}

	snap, _ := st.Load()
	want := []string{"example.com", "reddit.com/r/gaming"}
	if !reflect.DeepEqual(snap.BlockRules, want) {
		t.Errorf("block rules = %v, want %v", snap.BlockRules, want)
	}
}

func TestStore_SaveRulesDropsStaleToggles(t *testing.T) {
	st := tempStore(t)

	if err := st.SaveBlockRules([]string{"example.com", "old.example"}); err != nil {
		t.Fatalf("SaveBlockRules: %v", err)
	}
	if err := st.SaveBlockToggles(map[string]bool{"example.com": false, "old.example": false}); err != nil {
		t.Fatalf("SaveBlockToggles: %v", err)
	}

	if err := st.SaveBlockRules([]string{"example.com"}); err != nil {
		t.Fatalf("SaveBlockRules replace: %v", err)
	}

	snap, _ := st.Load()
	want := map[string]bool{"example.com": false}
	if !reflect.DeepEqual(snap.BlockToggles, want) {
		t.Errorf("toggles = %v, want %v", snap.BlockToggles, want)
	}
}

func TestStore_AddRemoveRule(t *testing.T) {
	st := tempStore(t)

	if err := st.AddBlockRule("Example.com"); err != nil {
		t.Fatalf("AddBlockRule: %v", err)
	}
	// duplicate add is a no-op
	if err := st.AddBlockRule("example.com"); err != nil {
		t.Fatalf("duplicate AddBlockRule: %v", err)
	}
	if err := st.ToggleBlockRule("example.com", false); err != nil {
		t.Fatalf("ToggleBlockRule: %v", err)
	}

	snap, _ := st.Load()
	if !reflect.DeepEqual(snap.BlockRules, []string{"example.com"}) {
		t.Fatalf("block rules = %v", snap.BlockRules)
	}

	if err := st.RemoveBlockRule("example.com"); err != nil {
		t.Fatalf("RemoveBlockRule: %v", err)
	}
	snap, _ = st.Load()
	if len(snap.BlockRules) != 0 {
		t.Errorf("rules after remove = %v", snap.BlockRules)
	}
	if len(snap.BlockToggles) != 0 {
		t.Errorf("toggle survived removal: %v", snap.BlockToggles)
	}

	// removing again is a no-op
	if err := st.RemoveBlockRule("example.com"); err != nil {
		t.Fatalf("second RemoveBlockRule: %v", err)
	}
}

func TestStore_AddRuleRejectsEmptyDomain(t *testing.T) {
	st := tempStore(t)

	for _, pattern := range []string{"", "   ", "/path/only"} {
		if err := st.AddBlockRule(pattern); err == nil {
			t.Errorf("AddBlockRule(%q) accepted", pattern)
		}
	}
}

func TestStore_ToggleKeysAreLowercased(t *testing.T) {
	st := tempStore(t)

	if err := st.SaveWhitelistToggles(map[string]bool{" Example.COM ": false}); err != nil {
		t.Fatalf("SaveWhitelistToggles: %v", err)
	}
	snap, _ := st.Load()
	want := map[string]bool{"example.com": false}
	if !reflect.DeepEqual(snap.WhitelistToggles, want) {
		t.Errorf("toggles = %v, want %v", snap.WhitelistToggles, want)
	}
}

func TestStore_SubscribersSeeEveryChange(t *testing.T) {
	st := tempStore(t)

	var got []Snapshot
	st.Subscribe(func(snap Snapshot) { got = append(got, snap) })

	if err := st.SaveBlockRules([]string{"example.com"}); err != nil {
		t.Fatalf("SaveBlockRules: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got))
	}
	if !reflect.DeepEqual(got[0].BlockRules, []string{"example.com"}) {
		t.Errorf("snapshot rules = %v", got[0].BlockRules)
	}

	// no-op writes publish nothing
	if err := st.AddBlockRule("example.com"); err != nil {
		t.Fatalf("AddBlockRule: %v", err)
	}
	if err := st.RemoveBlockRule("absent.example"); err != nil {
		t.Fatalf("RemoveBlockRule: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("notifications after no-ops = %d, want 1", len(got))
	}

	// rejected settings publish nothing
	bad := domain.DefaultSettings()
	bad.Pomodoro.WorkMinutes = -1
	_ = st.SaveSettings(bad)
	if len(got) != 1 {
		t.Fatalf("notifications after rejected save = %d, want 1", len(got))
	}

	if err := st.SaveSettings(domain.DefaultSettings()); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("notifications = %d, want 2", len(got))
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	st, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := st.SaveBlockRules([]string{"example.com"}); err != nil {
		t.Fatalf("SaveBlockRules: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = st.Close() }()
	snap, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(snap.BlockRules, []string{"example.com"}) {
		t.Errorf("rules after reopen = %v", snap.BlockRules)
	}
}

func TestNew_OpenError(t *testing.T) {
	badPath := filepath.Join(t.TempDir(), "no-such-dir", "prefs.db")
	st, err := New(badPath)
	if err == nil || st != nil {
		t.Fatalf("expected New to fail when parent directory does not exist")
	}
}

type fakeBucketCreator struct{ fail string }

func (f fakeBucketCreator) CreateBucketIfNotExists(name []byte) (*bbolt.Bucket, error) {
	if string(name) == f.fail {
		return nil, assertErr{}
	}
	return nil, nil
}

type assertErr struct{}

func (assertErr) Error() string { return "assert error" }

func TestNew_EnsureBucketsErrors(t *testing.T) {
	for _, fail := range []string{string(bucketRules), string(bucketToggles), string(bucketSettings)} {
		t.Run(fail, func(t *testing.T) {
			old := ensureBucketsFn
			ensureBucketsFn = func(bucketCreator) error {
				return ensureBuckets(fakeBucketCreator{fail: fail})
			}
			defer func() { ensureBucketsFn = old }()

			path := filepath.Join(t.TempDir(), "prefs.db")
			st, err := New(path)
			if err == nil || st != nil {
				t.Fatalf("expected error when %s bucket creation fails", fail)
			}
		})
	}
}
