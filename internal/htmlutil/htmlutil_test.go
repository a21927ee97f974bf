package htmlutil

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestGetTextSeparated(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<table>
			<tr><td>Reward</td><td>Code</td></tr>
			<tr><td>Golden Key</td><td><b>ab12c-3d4e5</b>-f6g7h-8i9j0-k1l2m</td></tr>
		</table>`))
	require.NoError(t, err)

	text := GetTextSeparated(doc.Find("table").First(), " ")
	require.Contains(t, text, "Reward Code")
	require.Contains(t, text, "Golden Key")
	require.Contains(t, text, "ab12c-3d4e5 -f6g7h-8i9j0-k1l2m")

	require.Contains(t, GetText(doc.Find("td").Get(1)), "Code")
}

func TestResolveLink(t *testing.T) {
	base, err := url.Parse("https://shift.gearboxsoftware.com")
	require.NoError(t, err)

	table := []struct {
		href     string
		expected string
	}{
		{href: "/code_redemptions", expected: "https://shift.gearboxsoftware.com/code_redemptions"},
		{href: "https://other.example.com/x", expected: "https://other.example.com/x"},
	}

	for _, row := range table {
		resolved, err := ResolveLink(base, row.href)
		require.NoError(t, err)
		require.Equal(t, row.expected, resolved)
	}
}
