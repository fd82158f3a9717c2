package workspace

// EventTime mirrors the provider's event boundary: dateTime for timed
// events, date for all-day events.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Key returns the value used for chronological ordering.
func (t EventTime) Key() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// Attendee is a single invitee on a calendar event.
type Attendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"displayName,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"`
}

// CalendarEvent is an aggregated event. It is never persisted; the id is
// made globally unique by prefixing the source account's email.
type CalendarEvent struct {
	ID           string     `json:"id"`
	Summary      string     `json:"summary"`
	Description  string     `json:"description,omitempty"`
	Start        EventTime  `json:"start"`
	End          EventTime  `json:"end"`
	Attendees    []Attendee `json:"attendees,omitempty"`
	HangoutLink  string     `json:"hangoutLink,omitempty"`
	MeetLink     string     `json:"meetLink,omitempty"`
	CalendarID   string     `json:"calendarId"`
	ColorID      string     `json:"colorId"`
	AccountEmail string     `json:"accountEmail"`
}

// CalendarInfo describes one calendar that contributed to an aggregation.
type CalendarInfo struct {
	ID           string `json:"id"`
	Summary      string `json:"summary"`
	ColorID      string `json:"colorId"`
	Primary      bool   `json:"primary"`
	AccountEmail string `json:"accountEmail"`
}

// EventsResult is the merged calendar view across all connected accounts.
type EventsResult struct {
	Events    []CalendarEvent `json:"events"`
	Calendars []CalendarInfo  `json:"calendars"`
}

// MessageHeader is a single RFC 5322 header pair.
type MessageHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MailBody carries the decoded plain-text body.
type MailBody struct {
	Data string `json:"data"`
}

// MailPayload keeps the header list and optional body of a message.
type MailPayload struct {
	Headers []MessageHeader `json:"headers"`
	Body    *MailBody       `json:"body,omitempty"`
}

// MailMessage is an aggregated inbox message tagged with its source account.
type MailMessage struct {
	ID           string      `json:"id"`
	ThreadID     string      `json:"threadId"`
	LabelIDs     []string    `json:"labelIds"`
	Snippet      string      `json:"snippet"`
	Payload      MailPayload `json:"payload"`
	InternalDate string      `json:"internalDate"`
	From         string      `json:"from"`
	To           string      `json:"to"`
	Subject      string      `json:"subject"`
	Date         string      `json:"date"`
	IsUnread     bool        `json:"isUnread"`
	IsStarred    bool        `json:"isStarred"`
	AccountEmail string      `json:"accountEmail"`
}

// MailResult is the merged inbox view. AccountEmail is only set when
// exactly one account was queried, for callers that predate multi-account.
type MailResult struct {
	Emails        []MailMessage `json:"emails"`
	AccountEmails []string      `json:"accountEmails"`
	AccountEmail  string        `json:"accountEmail,omitempty"`
}

// EventsWindow bounds a calendar aggregation request.
type EventsWindow struct {
	TimeMin    string
	TimeMax    string
	MaxResults int
}

// MailQuery bounds a mail aggregation request. AccountEmail, when set,
// restricts the fan-out to the matching account.
type MailQuery struct {
	MaxResults   int
	AccountEmail string
}
