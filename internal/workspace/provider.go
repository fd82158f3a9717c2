package workspace

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// ProviderCalendar is one calendar entry from a provider's calendar list.
type ProviderCalendar struct {
	ID      string
	Summary string
	ColorID string
	Primary bool
}

// ProviderEvent is one event as returned by the provider, before the
// aggregator tags it with its source account.
type ProviderEvent struct {
	ID          string
	Summary     string
	Description string
	Start       EventTime
	End         EventTime
	Attendees   []Attendee
	HangoutLink string
	MeetLink    string
}

// ProviderMessage is one inbox message with headers flattened and the
// plain-text body already decoded.
type ProviderMessage struct {
	ID           string
	ThreadID     string
	LabelIDs     []string
	Snippet      string
	InternalDate string
	Headers      []MessageHeader
	Body         string
}

// CalendarProvider reads calendars and events on behalf of one account
// identified by its OAuth access token.
type CalendarProvider interface {
	Calendars(ctx context.Context, accessToken string) ([]ProviderCalendar, error)
	Events(ctx context.Context, accessToken, calendarID string, window EventsWindow, limit int) ([]ProviderEvent, error)
}

// MailProvider reads the inbox on behalf of one account.
type MailProvider interface {
	Profile(ctx context.Context, accessToken string) (string, error)
	MessageIDs(ctx context.Context, accessToken string, limit int) ([]string, error)
	Message(ctx context.Context, accessToken, messageID string) (ProviderMessage, error)
}

// GoogleCalendarProvider implements CalendarProvider over the Calendar v3 API.
type GoogleCalendarProvider struct{}

func (GoogleCalendarProvider) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	return calendar.NewService(ctx, option.WithTokenSource(source))
}

func (p GoogleCalendarProvider) Calendars(ctx context.Context, accessToken string) ([]ProviderCalendar, error) {
	service, err := p.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	listing, err := service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	calendars := make([]ProviderCalendar, 0, len(listing.Items))
	for _, item := range listing.Items {
		if item.Id == "" {
			continue
		}
		summary := item.Summary
		if summary == "" {
			summary = item.Id
		}
		calendars = append(calendars, ProviderCalendar{
			ID:      item.Id,
			Summary: summary,
			ColorID: orDefault(item.ColorId, "1"),
			Primary: item.Primary,
		})
	}
	return calendars, nil
}

func (p GoogleCalendarProvider) Events(ctx context.Context, accessToken, calendarID string, window EventsWindow, limit int) ([]ProviderEvent, error) {
	service, err := p.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	listing, err := service.Events.List(calendarID).
		TimeMin(window.TimeMin).
		TimeMax(window.TimeMax).
		MaxResults(int64(limit)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	events := make([]ProviderEvent, 0, len(listing.Items))
	for _, item := range listing.Items {
		if item.Id == "" || item.Start == nil {
			continue
		}
		event := ProviderEvent{
			ID:          item.Id,
			Summary:     orDefault(item.Summary, "No title"),
			Description: item.Description,
			Start: EventTime{
				DateTime: item.Start.DateTime,
				Date:     item.Start.Date,
				TimeZone: item.Start.TimeZone,
			},
			HangoutLink: item.HangoutLink,
		}
		if item.End != nil {
			event.End = EventTime{
				DateTime: item.End.DateTime,
				Date:     item.End.Date,
				TimeZone: item.End.TimeZone,
			}
		}
		for _, attendee := range item.Attendees {
			event.Attendees = append(event.Attendees, Attendee{
				Email:          attendee.Email,
				DisplayName:    attendee.DisplayName,
				ResponseStatus: attendee.ResponseStatus,
			})
		}
		if item.ConferenceData != nil && len(item.ConferenceData.EntryPoints) > 0 {
			event.MeetLink = item.ConferenceData.EntryPoints[0].Uri
		}
		events = append(events, event)
	}
	return events, nil
}

// GoogleMailProvider implements MailProvider over the Gmail v1 API.
type GoogleMailProvider struct{}

const gmailSelf = "me"

func (GoogleMailProvider) service(ctx context.Context, accessToken string) (*gmail.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	return gmail.NewService(ctx, option.WithTokenSource(source))
}

func (p GoogleMailProvider) Profile(ctx context.Context, accessToken string) (string, error) {
	service, err := p.service(ctx, accessToken)
	if err != nil {
		return "", err
	}
	profile, err := service.Users.GetProfile(gmailSelf).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return profile.EmailAddress, nil
}

func (p GoogleMailProvider) MessageIDs(ctx context.Context, accessToken string, limit int) ([]string, error) {
	service, err := p.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	listing, err := service.Users.Messages.List(gmailSelf).
		MaxResults(int64(limit)).
		LabelIds("INBOX").
		Q("in:inbox").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(listing.Messages))
	for _, message := range listing.Messages {
		if message.Id != "" {
			ids = append(ids, message.Id)
		}
	}
	return ids, nil
}

func (p GoogleMailProvider) Message(ctx context.Context, accessToken, messageID string) (ProviderMessage, error) {
	service, err := p.service(ctx, accessToken)
	if err != nil {
		return ProviderMessage{}, err
	}

	detail, err := service.Users.Messages.Get(gmailSelf, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return ProviderMessage{}, err
	}

	message := ProviderMessage{
		ID:           detail.Id,
		ThreadID:     detail.ThreadId,
		LabelIDs:     detail.LabelIds,
		Snippet:      detail.Snippet,
		InternalDate: formatInternalDate(detail.InternalDate),
	}
	if detail.Payload != nil {
		for _, header := range detail.Payload.Headers {
			message.Headers = append(message.Headers, MessageHeader{Name: header.Name, Value: header.Value})
		}
		message.Body = plainTextBody(detail.Payload)
	}
	return message, nil
}

// plainTextBody decodes the message body, preferring the top-level body
// and falling back to the first text/plain part.
func plainTextBody(payload *gmail.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" {
		if decoded := decodeBase64URL(payload.Body.Data); decoded != "" {
			return decoded
		}
	}
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			if decoded := decodeBase64URL(part.Body.Data); decoded != "" {
				return decoded
			}
		}
	}
	return ""
}

// Gmail emits URL-safe base64, sometimes without padding.
func decodeBase64URL(data string) string {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "=")); err == nil {
		return string(decoded)
	}
	return ""
}

func formatInternalDate(millis int64) string {
	if millis == 0 {
		return ""
	}
	return strconv.FormatInt(millis, 10)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
