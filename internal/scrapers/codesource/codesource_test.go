package codesource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shift-redeemer/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestPattern(t *testing.T) {
	accepted := []string{
		"AB12C-3D4E5-F6G7H-8I9J0-K1L2M",
		"ZZZZZ-00000-ZZZZZ-00000-ZZZZZ",
	}
	rejected := []string{
		"AB12-34CDE-FGHIJ-KLMNO-PQRST",
		"ab12c-3d4e5-f6g7h-8i9j0-k1l2m",
		"AB12C-3D4E5-F6G7H-8I9J0",
		"AB12C_3D4E5_F6G7H_8I9J0_K1L2M",
		"AB12C-3D4E5-F6G7H-8I9J0-K1L2M-ABCDE",
		"",
	}

	for _, code := range accepted {
		require.True(t, IsCode(code), code)
	}
	for _, code := range rejected {
		require.False(t, IsCode(code), code)
	}
}

func TestExtractCodes(t *testing.T) {
	page := `<html><body>
<p>Outside the table: AAAAA-BBBBB-CCCCC-DDDDD-EEEEE</p>
<table>
  <tr><th>Code</th><th>Reward</th></tr>
  <tr><td>ab12c-3d4e5-f6g7h-8i9j0-k1l2m</td><td>Golden Key</td></tr>
  <tr><td><strong>ZZZZZ-00000-ZZZZZ-00000-ZZZZZ</strong></td><td>3 Golden Keys</td></tr>
</table>
<table><tr><td>11111-22222-33333-44444-55555</td></tr></table>
</body></html>`

	codes, err := ExtractCodes([]byte(page))
	require.NoError(t, err)
	require.Equal(t, []string{
		"AB12C-3D4E5-F6G7H-8I9J0-K1L2M",
		"ZZZZZ-00000-ZZZZZ-00000-ZZZZZ",
	}, codes)
}

func TestExtractCodesCellsDoNotJoin(t *testing.T) {
	page := `<table><tr><td>AAAAA-BBBBB-CCCCC-DDDDD-EEEEE</td><td>FFFFF</td></tr></table>`

	codes, err := ExtractCodes([]byte(page))
	require.NoError(t, err)
	require.Equal(t, []string{"AAAAA-BBBBB-CCCCC-DDDDD-EEEEE"}, codes)
}

func TestExtractCodesNoTable(t *testing.T) {
	_, err := ExtractCodes([]byte(`<p>AAAAA-BBBBB-CCCCC-DDDDD-EEEEE</p>`))
	require.ErrorIs(t, err, ErrNoTable)
}

func sourceServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/server-error" {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, table("BBBBB-BBBBB-BBBBB-BBBBB-BBBBB"))
			return
		}
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("content-type", "text/html")
		fmt.Fprint(w, page)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func table(codes ...string) string {
	out := "<table>"
	for _, c := range codes {
		out += "<tr><td>" + c + "</td></tr>"
	}
	return out + "</table>"
}

func TestFetchCodesDeduplicatesAcrossSources(t *testing.T) {
	srv := sourceServer(t, map[string]string{
		"/ign":        table("CCCCC-CCCCC-CCCCC-CCCCC-CCCCC", "AAAAA-AAAAA-AAAAA-AAAAA-AAAAA"),
		"/mentalmars": table("AAAAA-AAAAA-AAAAA-AAAAA-AAAAA", "BBBBB-BBBBB-BBBBB-BBBBB-BBBBB"),
	})
	tel := &testutil.Recorder{}
	harvester := NewHarvester(Options{Sources: []string{srv.URL + "/ign", srv.URL + "/mentalmars"}}, tel)

	codes, err := harvester.FetchCodes(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		"AAAAA-AAAAA-AAAAA-AAAAA-AAAAA",
		"BBBBB-BBBBB-BBBBB-BBBBB-BBBBB",
		"CCCCC-CCCCC-CCCCC-CCCCC-CCCCC",
	}, codes)
	require.Empty(t, tel.Reports("broken"))
}

// One bad source throws away everything the good sources found.
func TestFetchCodesOneFailingSourceEmptiesHarvest(t *testing.T) {
	cases := []struct {
		name    string
		sources []string
	}{
		{name: "not found", sources: []string{"/good", "/missing"}},
		{name: "failure first", sources: []string{"/missing", "/good"}},
		{name: "no table", sources: []string{"/good", "/no-table"}},
		{name: "error status with table", sources: []string{"/good", "/server-error"}},
	}

	srv := sourceServer(t, map[string]string{
		"/good":     table("AAAAA-AAAAA-AAAAA-AAAAA-AAAAA"),
		"/no-table": `<p>AAAAA-AAAAA-AAAAA-AAAAA-AAAAA</p>`,
	})

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var sources []string
			for _, s := range c.sources {
				sources = append(sources, srv.URL+s)
			}
			tel := &testutil.Recorder{}
			harvester := NewHarvester(Options{Sources: sources}, tel)

			codes, err := harvester.FetchCodes(context.Background())
			require.Error(t, err)
			require.Empty(t, codes)
			require.True(t, tel.Has("broken", report_harvester_fetch_source))
		})
	}
}

func TestFetchCodesTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	harvester := NewHarvester(Options{
		Sources: []string{slow.URL},
		Timeout: 50 * time.Millisecond,
	}, &testutil.Recorder{})

	codes, err := harvester.FetchCodes(context.Background())
	require.Error(t, err)
	require.Empty(t, codes)
}
