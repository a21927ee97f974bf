// Package codesource harvests SHiFT codes from public web pages that list them in a table.
package codesource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"shift-redeemer/internal/components/assert"
	"shift-redeemer/internal/components/telemetry"
	"shift-redeemer/internal/htmlutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/codesource")

const (
	report_harvester_fetch_source = "harvester.fetch-source"
	report_harvester_codes        = "harvester.codes"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Pattern matches a SHiFT code: five groups of five uppercase letters or digits.
var Pattern = regexp.MustCompile(`\b[A-Z0-9]{5}(?:-[A-Z0-9]{5}){4}\b`)

var ErrNoTable = errors.New("no table on page")

func IsCode(s string) bool {
	loc := Pattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

type Options struct {
	Sources []string
	// Timeout bounds each source fetch, zero means 10 seconds.
	Timeout time.Duration
	// Dump receives every HTTP exchange when set.
	Dump telemetry.HttpDump
}

type Harvester struct {
	sources []string
	http    *resty.Client
	tel     telemetry.API
}

func NewHarvester(opts Options, tel telemetry.API) Harvester {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("codesource", tel)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New()
	httpClient.SetTimeout(timeout)
	httpClient.SetHeader("user-agent", userAgent)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	telemetry.InstrumentResty(httpClient, "scrapers/codesource/http", tel, opts.Dump)

	return Harvester{
		sources: append([]string(nil), opts.Sources...),
		http:    httpClient,
		tel:     tel,
	}
}

// FetchCodes collects the unique codes found across every source, sorted.
//
// A failure on any one source aborts the whole harvest: the result is empty even when earlier
// sources produced codes, and the error says which source failed. A source fails when the
// request errors, when it answers with a non-2xx status, or when its page has no table.
func (h Harvester) FetchCodes(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "harvester:FetchCodes")
	defer span.End()

	found := make(map[string]struct{})
	for _, source := range h.sources {
		pageCodes, err := h.fetchSource(ctx, source)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch source")
			h.tel.ReportBroken(report_harvester_fetch_source, err, source)
			return nil, fmt.Errorf("source %s: %w", source, err)
		}
		h.tel.ReportDebug("harvested source", source, len(pageCodes))
		for _, c := range pageCodes {
			found[c] = struct{}{}
		}
	}

	out := make([]string, 0, len(found))
	for c := range found {
		out = append(out, c)
	}
	sort.Strings(out)

	span.SetAttributes(attribute.Int("codes", len(out)))
	h.tel.ReportCount(report_harvester_codes, int64(len(out)))
	return out, nil
}

func (h Harvester) fetchSource(ctx context.Context, source string) ([]string, error) {
	res, err := h.http.R().
		SetContext(ctx).
		Get(source)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("fetch: unexpected status %s", res.Status())
	}

	return ExtractCodes(res.Body())
}

// ExtractCodes finds every code in the text of the first table on the page. Text is uppercased
// before matching.
func ExtractCodes(page []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, ErrNoTable
	}

	text := strings.ToUpper(htmlutil.GetTextSeparated(table, " "))
	return Pattern.FindAllString(text, -1), nil
}
