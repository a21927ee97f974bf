package session

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shift-redeemer/internal/components/chrono"
	"shift-redeemer/internal/testutil"

	"github.com/stretchr/testify/require"
)

func newJar(t testing.TB) http.CookieJar {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return jar
}

func mustParse(t testing.TB, raw string) *url.URL {
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shift_cookies.json")
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	store := NewStore(path, chrono.FixedImpl{At: at}, &testutil.Recorder{})
	u := mustParse(t, "https://shift.gearboxsoftware.com")

	jar := newJar(t)
	jar.SetCookies(u, []*http.Cookie{
		{Name: "_session_id", Value: "abc123", Path: "/"},
		{Name: "remember", Value: "1", Path: "/"},
	})
	store.Save(jar, u)

	restored := newJar(t)
	require.True(t, store.Load(restored, u))

	values := map[string]string{}
	for _, c := range restored.Cookies(u) {
		values[c.Name] = c.Value
	}
	require.Equal(t, map[string]string{"_session_id": "abc123", "remember": "1"}, values)
}

func TestLoadMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.json"), chrono.NewStandardImpl(), &testutil.Recorder{})
	require.False(t, store.Load(newJar(t), mustParse(t, "https://shift.gearboxsoftware.com")))
}

func TestLoadCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shift_cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("\x80\x04\x95 not json"), 0600))

	tel := &testutil.Recorder{}
	store := NewStore(path, chrono.NewStandardImpl(), tel)
	u := mustParse(t, "https://shift.gearboxsoftware.com")
	jar := newJar(t)

	require.False(t, store.Load(jar, u))
	require.Empty(t, jar.Cookies(u))
	require.True(t, tel.Has("warning", report_store_load))
}

func TestLoadOtherOrigin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shift_cookies.json")
	store := NewStore(path, chrono.NewStandardImpl(), &testutil.Recorder{})

	saved := mustParse(t, "https://shift.gearboxsoftware.com")
	jar := newJar(t)
	jar.SetCookies(saved, []*http.Cookie{{Name: "_session_id", Value: "abc123", Path: "/"}})
	store.Save(jar, saved)

	require.False(t, store.Load(newJar(t), mustParse(t, "http://127.0.0.1:8080")))
}

func TestSaveFailure(t *testing.T) {
	tel := &testutil.Recorder{}
	// the parent directory does not exist
	path := filepath.Join(t.TempDir(), "missing", "shift_cookies.json")
	store := NewStore(path, chrono.NewStandardImpl(), tel)

	store.Save(newJar(t), mustParse(t, "https://shift.gearboxsoftware.com"))
	require.True(t, tel.Has("warning", report_store_save))
}
