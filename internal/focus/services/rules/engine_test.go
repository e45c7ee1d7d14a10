package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"focusgate/internal/focus/domain"
)

// fakeCache is a map-backed VerdictCache for observing engine caching.
type fakeCache struct {
	entries map[string]domain.Verdict
	purges  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]domain.Verdict)}
}

func (f *fakeCache) Get(key string) (domain.Verdict, bool) {
	v, ok := f.entries[key]
	return v, ok
}

func (f *fakeCache) Put(key string, v domain.Verdict) { f.entries[key] = v }

func (f *fakeCache) Len() int { return len(f.entries) }

func (f *fakeCache) Purge() {
	f.entries = make(map[string]domain.Verdict)
	f.purges++
}

func (f *fakeCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

var _ VerdictCache = (*fakeCache)(nil)

// MockVerdictCache asserts cache interactions.
type MockVerdictCache struct {
	mock.Mock
}

func (m *MockVerdictCache) Get(key string) (domain.Verdict, bool) {
	args := m.Called(key)
	return args.Get(0).(domain.Verdict), args.Bool(1)
}

func (m *MockVerdictCache) Put(key string, v domain.Verdict) {
	m.Called(key, v)
}

func (m *MockVerdictCache) Len() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockVerdictCache) Purge() {
	m.Called()
}

func (m *MockVerdictCache) Stats() (uint64, uint64, uint64) {
	args := m.Called()
	return args.Get(0).(uint64), args.Get(1).(uint64), args.Get(2).(uint64)
}

func mustSite(t *testing.T, rawURL string) domain.SiteInfo {
	t.Helper()
	site, err := domain.ParseSiteInfo(rawURL)
	assert.NoError(t, err)
	return site
}

func TestEngine_EmptyEngineBlocksNothing(t *testing.T) {
	e := New(Options{})
	v := e.ShouldBlock(mustSite(t, "https://example.com/"))
	assert.False(t, v.IsBlocked())
}

func TestEngine_BlockRuleMatching(t *testing.T) {
	tests := []struct {
		name    string
		rules   []string
		url     string
		blocked bool
		kind    domain.MatchKind
	}{
		{
			name:    "www stripped exact match",
			rules:   []string{"example.com"},
			url:     "https://www.example.com/page",
			blocked: true,
			kind:    domain.MatchExact,
		},
		{
			name:    "unrelated domain passes",
			rules:   []string{"example.com"},
			url:     "https://example.org/",
			blocked: false,
		},
		{
			name:    "subdomain containment",
			rules:   []string{"example.com"},
			url:     "https://mail.example.com/inbox",
			blocked: true,
			kind:    domain.MatchSubdomain,
		},
		{
			name:    "substring fallback",
			rules:   []string{"youtube"},
			url:     "https://youtube.com/watch",
			blocked: true,
			kind:    domain.MatchSubstring,
		},
		{
			name:    "path rule prefix hit",
			rules:   []string{"reddit.com/r/gaming"},
			url:     "https://www.reddit.com/r/gaming/hot",
			blocked: true,
			kind:    domain.MatchPath,
		},
		{
			name:    "path rule sibling passes",
			rules:   []string{"reddit.com/r/gaming"},
			url:     "https://reddit.com/r/other",
			blocked: false,
		},
		{
			name:    "ip rule with port",
			rules:   []string{"192.168.1.1:8080"},
			url:     "http://192.168.1.1:8080/admin",
			blocked: true,
			kind:    domain.MatchExact,
		},
		{
			name:    "ip rule wrong port passes",
			rules:   []string{"192.168.1.1:9090"},
			url:     "http://192.168.1.1:8080/admin",
			blocked: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(Options{})
			e.ReplaceBlockRules(tt.rules)

			v := e.ShouldBlock(mustSite(t, tt.url))
			assert.Equal(t, tt.blocked, v.IsBlocked())
			if tt.blocked {
				assert.Equal(t, tt.kind, v.Kind)
				assert.NotEmpty(t, v.MatchedRule)
			}
		})
	}
}

func TestEngine_WhitelistExactMatchOnly(t *testing.T) {
	e := New(Options{})
	e.ReplaceBlockRules([]string{"youtube.com"})
	e.ReplaceWhitelistRules([]string{"music.youtube.com"})

	// the whitelisted subdomain is exempt
	assert.False(t, e.ShouldBlock(mustSite(t, "https://music.youtube.com/library")).IsBlocked())
	// sibling subdomains are not covered
	assert.True(t, e.ShouldBlock(mustSite(t, "https://gaming.youtube.com/")).IsBlocked())
	// neither are deeper subdomains of the whitelisted one
	assert.True(t, e.ShouldBlock(mustSite(t, "https://api.music.youtube.com/")).IsBlocked())
	// the parent itself stays blocked
	assert.True(t, e.ShouldBlock(mustSite(t, "https://youtube.com/")).IsBlocked())
}

func TestEngine_WhitelistParentDoesNotCoverSubdomains(t *testing.T) {
	e := New(Options{})
	e.ReplaceBlockRules([]string{"youtube.com"})
	e.ReplaceWhitelistRules([]string{"youtube.com"})

	// exact host is exempt
	assert.False(t, e.ShouldBlock(mustSite(t, "https://www.youtube.com/")).IsBlocked())
	// whitelisting the parent does not expand downwards
	assert.True(t, e.ShouldBlock(mustSite(t, "https://music.youtube.com/")).IsBlocked())
}

func TestEngine_WhitelistPathRules(t *testing.T) {
	e := New(Options{})
	e.ReplaceBlockRules([]string{"reddit.com"})
	e.ReplaceWhitelistRules([]string{"reddit.com/r/programming"})

	assert.False(t, e.ShouldBlock(mustSite(t, "https://reddit.com/r/programming/top")).IsBlocked())
	assert.True(t, e.ShouldBlock(mustSite(t, "https://reddit.com/r/gaming")).IsBlocked())

	rule, ok := e.MatchingWhitelistRule(mustSite(t, "https://reddit.com/r/programming"))
	assert.True(t, ok)
	assert.Equal(t, "reddit.com/r/programming", rule)

	_, ok = e.MatchingWhitelistRule(mustSite(t, "https://reddit.com/r/gaming"))
	assert.False(t, ok)
}

func TestEngine_BlockToggles(t *testing.T) {
	e := New(Options{})
	e.ReplaceBlockRules([]string{"example.com", "reddit.com"})

	site := mustSite(t, "https://example.com/")
	assert.True(t, e.ShouldBlock(site).IsBlocked())

	// disabling the toggle stops blocking but keeps membership
	e.ReplaceBlockToggles(map[string]bool{"Example.com": false})
	assert.False(t, e.ShouldBlock(site).IsBlocked())
	assert.True(t, e.HasBlockRule("example.com"))
	assert.True(t, e.HasBlockRule("EXAMPLE.COM"))

	// other rules stay enabled by default
	assert.True(t, e.ShouldBlock(mustSite(t, "https://reddit.com/")).IsBlocked())

	// re-enabling restores blocking
	e.ReplaceBlockToggles(map[string]bool{"example.com": true})
	assert.True(t, e.ShouldBlock(site).IsBlocked())
}

func TestEngine_WhitelistToggles(t *testing.T) {
	e := New(Options{})
	e.ReplaceBlockRules([]string{"youtube.com"})
	e.ReplaceWhitelistRules([]string{"music.youtube.com"})

	site := mustSite(t, "https://music.youtube.com/")
	assert.False(t, e.ShouldBlock(site).IsBlocked())

	// a disabled whitelist entry protects nothing
	e.ReplaceWhitelistToggles(map[string]bool{"music.youtube.com": false})
	assert.True(t, e.ShouldBlock(site).IsBlocked())
	assert.False(t, e.IsWhitelisted(site))
	assert.True(t, e.HasWhitelistRule("music.youtube.com"))
}

func TestEngine_ToggleRetainedAcrossReplace(t *testing.T) {
	e := New(Options{})
	e.ReplaceBlockRules([]string{"example.com", "reddit.com"})
	e.ReplaceBlockToggles(map[string]bool{"example.com": false, "reddit.com": false})

	// reddit.com drops out of the collection, its toggle goes with it
	e.ReplaceBlockRules([]string{"example.com", "news.ycombinator.com"})

	assert.False(t, e.ShouldBlock(mustSite(t, "https://example.com/")).IsBlocked())
	assert.True(t, e.ShouldBlock(mustSite(t, "https://news.ycombinator.com/")).IsBlocked())

	// if reddit.com comes back later it starts enabled again
	e.ReplaceBlockRules([]string{"reddit.com"})
	assert.True(t, e.ShouldBlock(mustSite(t, "https://reddit.com/")).IsBlocked())
}

func TestEngine_MalformedURL(t *testing.T) {
	e := New(Options{})
	e.ReplaceBlockRules([]string{"example.com"})

	assert.False(t, e.ShouldBlockURL("not a url at all").IsBlocked())
	assert.False(t, e.ShouldBlockURL("").IsBlocked())
	assert.True(t, e.ShouldBlockURL("https://example.com/").IsBlocked())
}

func TestEngine_CaseInsensitiveRules(t *testing.T) {
	e := New(Options{})
	e.ReplaceBlockRules([]string{"EXAMPLE.com", "Reddit.COM/R/Gaming"})

	assert.True(t, e.ShouldBlock(mustSite(t, "https://example.com/")).IsBlocked())
	assert.True(t, e.ShouldBlock(mustSite(t, "https://REDDIT.com/r/GAMING/hot")).IsBlocked())
	assert.True(t, e.HasBlockRule("example.COM"))
}

func TestEngine_VerdictsCached(t *testing.T) {
	cache := newFakeCache()
	e := New(Options{Cache: cache})
	e.ReplaceBlockRules([]string{"example.com"})

	site := mustSite(t, "https://example.com/")
	first := e.ShouldBlock(site)
	assert.True(t, first.IsBlocked())
	assert.Equal(t, 1, cache.Len())

	// second evaluation is served from the cache
	second := e.ShouldBlock(site)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.Len())

	// url variants that normalize identically share an entry
	e.ShouldBlock(mustSite(t, "https://www.example.com/"))
	assert.Equal(t, 1, cache.Len())
}

func TestEngine_ReplacePurgesCache(t *testing.T) {
	cache := newFakeCache()
	e := New(Options{Cache: cache})
	e.ReplaceBlockRules([]string{"example.com"})

	site := mustSite(t, "https://example.com/")
	assert.True(t, e.ShouldBlock(site).IsBlocked())

	// a stale verdict must not survive a rule change
	e.ReplaceBlockRules([]string{"reddit.com"})
	assert.False(t, e.ShouldBlock(site).IsBlocked())
	assert.GreaterOrEqual(t, cache.purges, 2)
}

func TestEngine_TogglePurgesCache(t *testing.T) {
	mockCache := &MockVerdictCache{}
	mockCache.On("Purge").Return()

	e := New(Options{Cache: mockCache})
	e.ReplaceBlockRules([]string{"example.com"})
	e.ReplaceBlockToggles(map[string]bool{"example.com": false})
	e.ReplaceWhitelistRules([]string{"a.com"})
	e.ReplaceWhitelistToggles(map[string]bool{"a.com": false})

	mockCache.AssertNumberOfCalls(t, "Purge", 4)
}

func TestEngine_Stats(t *testing.T) {
	e := New(Options{})
	e.ReplaceBlockRules([]string{"a.com", "b.com", "c.com"})
	e.ReplaceWhitelistRules([]string{"x.com"})

	s := e.Stats()
	assert.Equal(t, 3, s.BlockRules)
	assert.Equal(t, 1, s.WhitelistRules)
}

func TestEngine_InvalidPatternsDropped(t *testing.T) {
	e := New(Options{})
	e.ReplaceBlockRules([]string{"", "   ", "/path/only", "example.com"})

	s := e.Stats()
	assert.Equal(t, 1, s.BlockRules)
	assert.True(t, e.ShouldBlock(mustSite(t, "https://example.com/")).IsBlocked())
}

func TestWouldBlock(t *testing.T) {
	list := []string{"example.com", "reddit.com/r/gaming"}

	assert.True(t, WouldBlock(list, "https://www.example.com/page"))
	assert.True(t, WouldBlock(list, "https://reddit.com/r/gaming/hot"))
	assert.False(t, WouldBlock(list, "https://reddit.com/r/other"))
	assert.False(t, WouldBlock(list, "https://unrelated.org/"))
	assert.False(t, WouldBlock(list, "not a url"))
	assert.False(t, WouldBlock(nil, "https://example.com/"))
}
