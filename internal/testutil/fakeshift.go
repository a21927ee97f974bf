package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

const (
	FakeEmail        = "vault.hunter@example.com"
	FakePassword     = "hunter2"
	FakeLoginToken   = "login-token"
	FakeSessionToken = "session-token"
	fakeSessionValue = "valid"
)

// FakeShift is an httptest server imitating the parts of the SHiFT website the scraper uses.
type FakeShift struct {
	*httptest.Server

	mu sync.Mutex
	// StatusReply is served for /entitlement_offer_codes.
	StatusReply string
	// RedeemReply is served for form submissions to /code_redemptions.
	RedeemReply string
	// RedeemContentType is the content type of RedeemReply, defaults to application/json.
	RedeemContentType string
	// OmitToken serves the home page without any anti-forgery token.
	OmitToken bool

	hits         map[string]int
	lastForm     url.Values
	lastHeaders  http.Header
	checkedCodes []string
}

func NewFakeShift(t testing.TB) *FakeShift {
	f := &FakeShift{hits: make(map[string]int)}

	mux := http.NewServeMux()
	mux.HandleFunc("/home", f.home)
	mux.HandleFunc("/sessions", f.sessions)
	mux.HandleFunc("/entitlement_offer_codes", f.status)
	mux.HandleFunc("/code_redemptions", f.redeem)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeShift) hit(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[path]++
}

// Hits returns how many requests were made to path.
func (f *FakeShift) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// LastForm returns the form of the most recent redemption submission.
func (f *FakeShift) LastForm() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastForm
}

// LastHeaders returns the headers of the most recent status check or redemption.
func (f *FakeShift) LastHeaders() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastHeaders
}

// CheckedCodes returns the codes passed to the status check, in order.
func (f *FakeShift) CheckedCodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.checkedCodes...)
}

// SessionCookie is the cookie a logged-in browser carries.
func (f *FakeShift) SessionCookie() *http.Cookie {
	return &http.Cookie{Name: "_session_id", Value: fakeSessionValue, Path: "/"}
}

func loggedIn(r *http.Request) bool {
	c, err := r.Cookie("_session_id")
	return err == nil && c.Value == fakeSessionValue
}

func (f *FakeShift) home(w http.ResponseWriter, r *http.Request) {
	f.hit("/home")
	w.Header().Set("content-type", "text/html")

	if f.OmitToken {
		fmt.Fprint(w, `<html><body><a href="/sessions/new">Sign In</a></body></html>`)
		return
	}
	if loggedIn(r) {
		fmt.Fprintf(w, `<html><head><meta name="csrf-token" content="%s"></head>
<body><a href="/logout">Sign Out</a></body></html>`, FakeSessionToken)
		return
	}
	fmt.Fprintf(w, `<html><body><form action="/sessions" method="post">
<input type="hidden" name="authenticity_token" value="%s">
<input name="user[email]"><input type="password" name="user[password]">
<input type="submit" name="commit" value="Sign In">
</form></body></html>`, FakeLoginToken)
}

func (f *FakeShift) sessions(w http.ResponseWriter, r *http.Request) {
	f.hit("/sessions")
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	valid := r.PostForm.Get("authenticity_token") == FakeLoginToken &&
		r.PostForm.Get("user[email]") == FakeEmail &&
		r.PostForm.Get("user[password]") == FakePassword &&
		r.PostForm.Get("commit") == "Sign In"
	if !valid {
		w.Header().Set("content-type", "text/html")
		fmt.Fprint(w, `<html><body><div class="alert">Invalid email or password.</div></body></html>`)
		return
	}

	http.SetCookie(w, f.SessionCookie())
	http.Redirect(w, r, "/home", http.StatusFound)
}

func (f *FakeShift) status(w http.ResponseWriter, r *http.Request) {
	f.hit("/entitlement_offer_codes")

	f.mu.Lock()
	f.lastHeaders = r.Header.Clone()
	f.checkedCodes = append(f.checkedCodes, r.URL.Query().Get("code"))
	reply := f.StatusReply
	f.mu.Unlock()

	w.Header().Set("content-type", "text/html")
	fmt.Fprint(w, reply)
}

func (f *FakeShift) redeem(w http.ResponseWriter, r *http.Request) {
	f.hit("/code_redemptions")
	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.lastHeaders = r.Header.Clone()
	f.lastForm = r.PostForm
	reply := f.RedeemReply
	contentType := f.RedeemContentType
	f.mu.Unlock()

	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("content-type", contentType)
	fmt.Fprint(w, reply)
}

// StatusReplyFor renders a status check reply offering code on each of the platforms.
func StatusReplyFor(code string, platforms ...string) string {
	out := ""
	for _, p := range platforms {
		out += fmt.Sprintf(`<form class="new_archway_code_redemption" action="/code_redemptions" method="post">
<input type="hidden" name="authenticity_token" value="form-token">
<input type="hidden" name="archway_code_redemption[code]" value="%s">
<input type="hidden" name="archway_code_redemption[check]">
<input type="hidden" name="archway_code_redemption[service]" value="%s">
<input type="submit" value="Redeem for %s">
</form>`, code, p, p)
	}
	return out
}
