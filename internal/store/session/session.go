package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"shift-redeemer/internal/components/assert"
	"shift-redeemer/internal/components/chrono"
	"shift-redeemer/internal/components/telemetry"
)

const (
	report_store_load = "store.load"
	report_store_save = "store.save"
)

const snapshotVersion = 1

type snapshot struct {
	Version int           `json:"version"`
	SavedAt time.Time     `json:"saved_at"`
	Origin  string        `json:"origin"`
	Cookies []cookieState `json:"cookies"`
}

type cookieState struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Store persists the cookies of a single origin between runs.
type Store struct {
	path string
	time chrono.API
	tel  telemetry.API
}

func NewStore(path string, time chrono.API, tel telemetry.API) Store {
	assert.NotNil(time)
	assert.NotNil(tel)

	return Store{
		path: path,
		time: time,
		tel:  telemetry.NewScopedAPI("session", tel),
	}
}

func origin(u *url.URL) string {
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}

// Load puts the persisted cookies for u into jar. It returns false when there is nothing
// usable on disk, which includes a corrupted file or one saved for another origin.
func (s Store) Load(jar http.CookieJar, u *url.URL) bool {
	contents, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return false
	}
	if err != nil {
		s.tel.ReportWarning(report_store_load, fmt.Errorf("read: %w", err))
		return false
	}

	var snap snapshot
	err = json.Unmarshal(contents, &snap)
	if err != nil {
		s.tel.ReportWarning(report_store_load, fmt.Errorf("unmarshal: %w", err))
		return false
	}
	if snap.Version != snapshotVersion || snap.Origin != origin(u) || len(snap.Cookies) == 0 {
		s.tel.ReportDebug("ignoring saved session", snap.Version, snap.Origin)
		return false
	}

	cookies := make([]*http.Cookie, 0, len(snap.Cookies))
	for _, c := range snap.Cookies {
		cookies = append(cookies, &http.Cookie{
			Name:  c.Name,
			Value: c.Value,
			Path:  "/",
		})
	}
	jar.SetCookies(u, cookies)

	s.tel.ReportDebug("restored session", snap.SavedAt, len(cookies))
	return true
}

// Save writes the cookies jar holds for u. Failures are reported, never returned.
func (s Store) Save(jar http.CookieJar, u *url.URL) {
	snap := snapshot{
		Version: snapshotVersion,
		SavedAt: s.time.Now(),
		Origin:  origin(u),
	}
	for _, c := range jar.Cookies(u) {
		snap.Cookies = append(snap.Cookies, cookieState{Name: c.Name, Value: c.Value})
	}

	contents, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		s.tel.ReportWarning(report_store_save, fmt.Errorf("marshal: %w", err))
		return
	}
	err = os.WriteFile(s.path, contents, 0600)
	if err != nil {
		s.tel.ReportWarning(report_store_save, fmt.Errorf("failed to save session: %w", err))
	}
}
