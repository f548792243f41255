package htmlpdf

// RequestEvent is emitted when the page is about to send a request.
type RequestEvent struct {
	RequestID string
	URL       string
	Method    string
}

// LoadingFailedEvent is emitted when a request fails at the network layer.
type LoadingFailedEvent struct {
	RequestID string
	ErrorText string
	Canceled  bool
}

// ResponseEvent is emitted when a response is received for a request.
type ResponseEvent struct {
	RequestID string
	URL       string
	Status    int
}

// ConsoleEvent is a console API call made by page script.
type ConsoleEvent struct {
	Type string   // "log", "warning", "error", ...
	Args []string // arguments rendered as text
}

// ExceptionEvent is an exception that page script did not catch.
type ExceptionEvent struct {
	Text         string
	Description  string
	URL          string
	LineNumber   int
	ColumnNumber int
}

// EventHandlers groups the event callbacks passed to Conn.Subscribe.
// Nil handlers are not subscribed.
type EventHandlers struct {
	RequestWillBeSent func(RequestEvent)
	LoadingFailed     func(LoadingFailedEvent)
	ResponseReceived  func(ResponseEvent)
	ConsoleAPICalled  func(ConsoleEvent)
	ExceptionThrown   func(ExceptionEvent)
}

// Cookie is a cookie set on the tab before navigating.
// Either URL or Domain should be set.
type Cookie struct {
	Name     string
	Value    string
	URL      string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
}
