package workspace

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HeroHubLab/herohub/backend/internal/accounts"
	"github.com/HeroHubLab/herohub/backend/internal/metrics"
)

const (
	defaultEventsWindow     = 7 * 24 * time.Hour
	defaultEventsMaxResults = 250
	defaultMailMaxResults   = 50
	unknownAccountEmail     = "unknown"
	unknownMailboxEmail     = "unknown@email.com"
)

var (
	errMissingAccounts         = errors.New("accounts service is required")
	errMissingCalendarProvider = errors.New("calendar provider is required")
	errMissingMailProvider     = errors.New("mail provider is required")
	errMissingLogger           = errors.New("logger is required")
)

// AggregatorConfig wires the aggregator's collaborators.
type AggregatorConfig struct {
	Accounts *accounts.Service
	Calendar CalendarProvider
	Mail     MailProvider
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Aggregator fans a single logical fetch across every connected account
// and merges the per-account results into one sorted view.
type Aggregator struct {
	accounts *accounts.Service
	calendar CalendarProvider
	mail     MailProvider
	clock    func() time.Time
	logger   *zap.Logger
}

// NewAggregator validates the configuration and constructs an Aggregator.
func NewAggregator(cfg AggregatorConfig) (*Aggregator, error) {
	if cfg.Accounts == nil {
		return nil, errMissingAccounts
	}
	if cfg.Calendar == nil {
		return nil, errMissingCalendarProvider
	}
	if cfg.Mail == nil {
		return nil, errMissingMailProvider
	}
	if cfg.Logger == nil {
		return nil, errMissingLogger
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{
		accounts: cfg.Accounts,
		calendar: cfg.Calendar,
		mail:     cfg.Mail,
		clock:    clock,
		logger:   cfg.Logger,
	}, nil
}

// Events merges calendar events across every usable account, sorted
// ascending by start time. Zero stored accounts fails with ErrNotConnected
// before any provider call.
func (a *Aggregator) Events(ctx context.Context, userID string, window EventsWindow) (EventsResult, error) {
	stored, err := a.accounts.List(ctx, userID)
	if err != nil {
		return EventsResult{}, err
	}
	if len(stored) == 0 {
		return EventsResult{}, ErrNotConnected
	}

	now := a.clock()
	if window.TimeMin == "" {
		window.TimeMin = now.UTC().Format(time.RFC3339)
	}
	if window.TimeMax == "" {
		window.TimeMax = now.Add(defaultEventsWindow).UTC().Format(time.RFC3339)
	}
	if window.MaxResults <= 0 {
		window.MaxResults = defaultEventsMaxResults
	}
	perAccount := window.MaxResults / len(stored)
	if perAccount < 1 {
		perAccount = 1
	}

	result := EventsResult{Events: []CalendarEvent{}, Calendars: []CalendarInfo{}}
	tracker := newFailureTracker()

	for _, account := range stored {
		email := accountEmail(account)
		if !account.Usable(now) {
			a.logger.Info("skipping expired account", zap.String("account", email))
			metrics.AccountSkipped("calendar", "token_expired")
			continue
		}
		tracker.attempted()

		calendars, err := a.calendar.Calendars(ctx, account.AccessToken)
		if err != nil {
			a.logger.Warn("failed to list calendars",
				zap.String("account", email), zap.Error(err))
			metrics.AccountSkipped("calendar", "list_failed")
			tracker.failed(err)
			continue
		}

		for _, cal := range calendars {
			result.Calendars = append(result.Calendars, CalendarInfo{
				ID:           cal.ID,
				Summary:      cal.Summary,
				ColorID:      cal.ColorID,
				Primary:      cal.Primary,
				AccountEmail: email,
			})

			events, err := a.calendar.Events(ctx, account.AccessToken, cal.ID, window, perAccount)
			if err != nil {
				a.logger.Warn("failed to list events",
					zap.String("account", email), zap.String("calendar", cal.ID), zap.Error(err))
				tracker.subResourceFailed(err)
				continue
			}

			for _, event := range events {
				result.Events = append(result.Events, CalendarEvent{
					ID:           email + "_" + event.ID,
					Summary:      event.Summary,
					Description:  event.Description,
					Start:        event.Start,
					End:          event.End,
					Attendees:    event.Attendees,
					HangoutLink:  event.HangoutLink,
					MeetLink:     event.MeetLink,
					CalendarID:   cal.ID,
					ColorID:      cal.ColorID,
					AccountEmail: email,
				})
			}
		}
	}

	if err := tracker.outcome(); err != nil {
		return EventsResult{}, err
	}

	sort.SliceStable(result.Events, func(i, j int) bool {
		return result.Events[i].Start.Key() < result.Events[j].Start.Key()
	})
	return result, nil
}

// Mail merges inbox messages across every usable account, newest first.
func (a *Aggregator) Mail(ctx context.Context, userID string, query MailQuery) (MailResult, error) {
	stored, err := a.accounts.List(ctx, userID)
	if err != nil {
		return MailResult{}, err
	}
	if len(stored) == 0 {
		return MailResult{}, ErrNotConnected
	}

	if query.AccountEmail != "" {
		filtered := stored[:0:0]
		for _, account := range stored {
			if account.Email == query.AccountEmail {
				filtered = append(filtered, account)
			}
		}
		stored = filtered
	}
	if query.MaxResults <= 0 {
		query.MaxResults = defaultMailMaxResults
	}
	perAccount := query.MaxResults
	if len(stored) > 0 {
		perAccount = query.MaxResults / len(stored)
		if perAccount < 1 {
			perAccount = 1
		}
	}

	now := a.clock()
	result := MailResult{Emails: []MailMessage{}, AccountEmails: []string{}}
	tracker := newFailureTracker()

	for _, account := range stored {
		if !account.Usable(now) {
			a.logger.Info("skipping expired account", zap.String("account", accountEmail(account)))
			metrics.AccountSkipped("mail", "token_expired")
			continue
		}
		tracker.attempted()

		email, err := a.mail.Profile(ctx, account.AccessToken)
		if err != nil {
			a.logger.Warn("failed to load mail profile",
				zap.String("account", accountEmail(account)), zap.Error(err))
			metrics.AccountSkipped("mail", "profile_failed")
			tracker.failed(err)
			continue
		}
		if email == "" {
			email = account.Email
		}
		if email == "" {
			email = unknownMailboxEmail
		}

		// The first successful profile call replaces the placeholder
		// address stored when the account was connected.
		if account.Email == "" || account.Email == accounts.PlaceholderEmail {
			if err := a.accounts.ResolveEmail(ctx, userID, account.ID, email); err != nil {
				a.logger.Warn("failed to store resolved account email",
					zap.String("account", account.ID), zap.Error(err))
			}
		}
		result.AccountEmails = append(result.AccountEmails, email)

		ids, err := a.mail.MessageIDs(ctx, account.AccessToken, perAccount)
		if err != nil {
			a.logger.Warn("failed to list messages",
				zap.String("account", email), zap.Error(err))
			metrics.AccountSkipped("mail", "list_failed")
			tracker.failed(err)
			continue
		}
		if len(ids) > perAccount {
			ids = ids[:perAccount]
		}

		for _, id := range ids {
			message, err := a.mail.Message(ctx, account.AccessToken, id)
			if err != nil {
				a.logger.Warn("failed to fetch message",
					zap.String("account", email), zap.String("message", id), zap.Error(err))
				tracker.subResourceFailed(err)
				continue
			}
			result.Emails = append(result.Emails, buildMailMessage(message, email))
		}
	}

	if err := tracker.outcome(); err != nil {
		return MailResult{}, err
	}

	sort.SliceStable(result.Emails, func(i, j int) bool {
		return mailSortKey(result.Emails[i]) > mailSortKey(result.Emails[j])
	})
	if len(result.AccountEmails) == 1 {
		result.AccountEmail = result.AccountEmails[0]
	}
	return result, nil
}

func buildMailMessage(message ProviderMessage, email string) MailMessage {
	headers := message.Headers
	if headers == nil {
		headers = []MessageHeader{}
	}
	built := MailMessage{
		ID:           email + "_" + message.ID,
		ThreadID:     message.ThreadID,
		LabelIDs:     message.LabelIDs,
		Snippet:      message.Snippet,
		Payload:      MailPayload{Headers: headers},
		InternalDate: message.InternalDate,
		From:         headerValue(headers, "From"),
		To:           headerValue(headers, "To"),
		Subject:      headerValue(headers, "Subject"),
		Date:         headerValue(headers, "Date"),
		IsUnread:     hasLabel(message.LabelIDs, "UNREAD"),
		IsStarred:    hasLabel(message.LabelIDs, "STARRED"),
		AccountEmail: email,
	}
	if built.LabelIDs == nil {
		built.LabelIDs = []string{}
	}
	if message.Body != "" {
		built.Payload.Body = &MailBody{Data: message.Body}
	}
	if built.Date == "" && message.InternalDate != "" {
		if millis, err := strconv.ParseInt(message.InternalDate, 10, 64); err == nil {
			built.Date = time.UnixMilli(millis).UTC().Format(time.RFC3339)
		}
	}
	return built
}

var mailDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
}

// mailSortKey orders messages by the Date header, falling back to the
// provider's internal timestamp when the header is missing or unparseable.
func mailSortKey(message MailMessage) int64 {
	for _, layout := range mailDateLayouts {
		if parsed, err := time.Parse(layout, message.Date); err == nil {
			return parsed.UnixMilli()
		}
	}
	if millis, err := strconv.ParseInt(message.InternalDate, 10, 64); err == nil {
		return millis
	}
	return 0
}

func headerValue(headers []MessageHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

func hasLabel(labels []string, label string) bool {
	for _, candidate := range labels {
		if candidate == label {
			return true
		}
	}
	return false
}

func accountEmail(account accounts.Account) string {
	if account.Email != "" {
		return account.Email
	}
	if account.ID != "" {
		return account.ID
	}
	return unknownAccountEmail
}

// failureTracker tolerates partial failures. Only the one condition a
// caller can act on is surfaced: every attempted account failed and the
// upstream reported the API as disabled for the project.
type failureTracker struct {
	attempts int
	failures int
	disabled bool
}

func newFailureTracker() *failureTracker {
	return &failureTracker{}
}

func (t *failureTracker) attempted() {
	t.attempts++
}

func (t *failureTracker) failed(err error) {
	t.failures++
	t.record(err)
}

func (t *failureTracker) subResourceFailed(err error) {
	t.record(err)
}

func (t *failureTracker) record(err error) {
	if apiDisabled(err) {
		t.disabled = true
	}
}

func (t *failureTracker) outcome() error {
	if t.attempts == 0 || t.failures < t.attempts {
		return nil
	}
	if t.disabled {
		return ErrAPIDisabled
	}
	return nil
}
