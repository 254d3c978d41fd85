package sidecar

type State string

const (
	StateStopped      State = "stopped"
	StateStarting     State = "starting"
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateError        State = "error"
)

type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type InitializeParams struct {
	ProcessID  int        `json:"processId"`
	ClientInfo ClientInfo `json:"clientInfo"`
}

type InitializeResult struct {
	ServerInfo ClientInfo `json:"serverInfo"`
}

// RenderParams asks the renderer for one page.
type RenderParams struct {
	URL       string `json:"url"`
	Headless  bool   `json:"headless"`
	WaitUntil string `json:"waitUntil,omitempty"`
	TimeoutMs int64  `json:"timeoutMs,omitempty"`
}

// LogParams is the payload of the renderer's "log" notification.
type LogParams struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type Stats struct {
	State        State  `json:"state"`
	Circuit      string `json:"circuit"`
	Restarts     int    `json:"restarts"`
	RequestCount int64  `json:"request_count"`
	ErrorCount   int64  `json:"error_count"`
	LastError    string `json:"last_error,omitempty"`
}
