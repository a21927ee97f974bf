package shift

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"shift-redeemer/internal/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrNoForm          = errors.New("no redemption form for platform")
	ErrUnreadableReply = errors.New("could not read redemption reply")
)

// CheckCode asks the site what can be done with code, the reply is an HTML fragment that
// holds one redemption form per platform the code is valid for.
func (c *Client) CheckCode(ctx context.Context, code string) (string, error) {
	if c.token == "" {
		return "", ErrNoToken
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeaders(c.ajaxHeaders()).
		SetQueryParam("code", code).
		Get(codesPath)
	if err != nil {
		c.tel.ReportBroken(
			report_client_check_code,
			fmt.Errorf("fetch: %w", err),
			code,
		)
		return "", err
	}

	c.tel.ReportDebug("checked code", code, res.Status())
	return res.String(), nil
}

// RedemptionForm is a form picked out of a code status reply, ready to be submitted.
type RedemptionForm struct {
	Action string
	Fields map[string]string
}

// FindRedemptionForm picks the first form in body whose markup mentions platform, compared
// case-insensitively. A relative action is resolved against base.
func FindRedemptionForm(base *url.URL, body string, platform string) (RedemptionForm, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return RedemptionForm{}, fmt.Errorf("parse status reply: %w", err)
	}

	needle := strings.ToLower(platform)
	var match *goquery.Selection
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		markup, err := goquery.OuterHtml(form)
		if err != nil {
			return true
		}
		if strings.Contains(strings.ToLower(markup), needle) {
			match = form
			return false
		}
		return true
	})
	if match == nil {
		return RedemptionForm{}, ErrNoForm
	}

	action, ok := match.Attr("action")
	if !ok || action == "" {
		return RedemptionForm{}, fmt.Errorf("%w: form has no action", ErrNoForm)
	}
	action, err = htmlutil.ResolveLink(base, action)
	if err != nil {
		return RedemptionForm{}, fmt.Errorf("resolve form action: %w", err)
	}

	fields := make(map[string]string)
	match.Find("input").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		fields[name] = input.AttrOr("value", "")
	})

	return RedemptionForm{Action: action, Fields: fields}, nil
}

// FailureReason turns a status reply without a usable form into something worth logging.
func FailureReason(body string) string {
	reason := strings.Trim(body, "{}")
	if reason == "" {
		return "Code validation failed"
	}
	return reason
}

// SubmitRedemption posts form and reads the site's reply message.
func (c *Client) SubmitRedemption(ctx context.Context, form RedemptionForm) (RedemptionMessage, error) {
	ctx, span := tracer.Start(ctx, "client:SubmitRedemption")
	defer span.End()
	span.SetAttributes(attribute.String("action", form.Action))

	if c.token == "" {
		return RedemptionMessage{}, ErrNoToken
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeaders(c.ajaxHeaders()).
		SetFormData(form.Fields).
		Post(form.Action)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit redemption")
		c.tel.ReportBroken(
			report_client_redeem_code,
			fmt.Errorf("submit: %w", err),
			form.Action,
		)
		return RedemptionMessage{}, err
	}

	msg, err := parseRedemptionMessage(res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read redemption reply")
		return RedemptionMessage{}, err
	}
	return msg, nil
}

// MessageSource is where in a reply the message was found.
type MessageSource int

const (
	MessageFromJSON MessageSource = iota
	MessageFromAlert
)

func (s MessageSource) String() string {
	if s == MessageFromJSON {
		return "json"
	}
	return "alert"
}

type RedemptionMessage struct {
	Text   string
	Source MessageSource
}

// Redeemed reports whether the site accepted the code.
func (m RedemptionMessage) Redeemed() bool {
	return strings.Contains(m.Text, "redeemed")
}

// parseRedemptionMessage reads the `text` field of a JSON object reply, and falls back to the
// first alert box when the reply is not a JSON object.
func parseRedemptionMessage(body []byte) (RedemptionMessage, error) {
	var payload map[string]any
	jsonErr := json.Unmarshal(body, &payload)
	if jsonErr == nil && payload != nil {
		raw, exists := payload["text"]
		if !exists {
			return RedemptionMessage{Source: MessageFromJSON}, nil
		}
		text, ok := raw.(string)
		if !ok {
			return RedemptionMessage{}, fmt.Errorf("%w: text is %T", ErrUnreadableReply, raw)
		}
		return RedemptionMessage{Text: text, Source: MessageFromJSON}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return RedemptionMessage{}, fmt.Errorf("%w: %w", ErrUnreadableReply, err)
	}
	alert := doc.Find("div.alert").First()
	if alert.Length() == 0 {
		return RedemptionMessage{}, fmt.Errorf("%w: no alert in reply", ErrUnreadableReply)
	}
	return RedemptionMessage{
		Text:   strings.TrimSpace(htmlutil.GetText(alert.Get(0))),
		Source: MessageFromAlert,
	}, nil
}
