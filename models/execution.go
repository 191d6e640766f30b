package models

// RequestMeta carries the caller metadata forwarded into a script run
type RequestMeta struct {
	IP        string
	UserAgent string
	Referer   string
	CallDepth int
}

// RunContext is the per-invocation variable bag injected into a script.
// JSON keys double as the Python variable names bound at script start.
type RunContext struct {
	CurrentDate        string `json:"current_date"`
	CurrentTime        string `json:"current_time"`
	CurrentDatetime    string `json:"current_datetime"`
	CurrentTimestamp   int64  `json:"current_timestamp"`
	CurrentYear        int    `json:"current_year"`
	CurrentMonth       int    `json:"current_month"`
	CurrentDay         int    `json:"current_day"`
	CurrentHour        int    `json:"current_hour"`
	CurrentMinute      int    `json:"current_minute"`
	CurrentSecond      int    `json:"current_second"`
	CurrentWeekday     int    `json:"current_weekday"`
	CurrentWeekdayName string `json:"current_weekday_name"`
	CurrentWeekdayCN   string `json:"current_weekday_cn"`
	IsWeekend          bool   `json:"is_weekend"`
	IsWeekday          bool   `json:"is_weekday"`

	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	Referer   string `json:"referer"`

	Params map[string]interface{} `json:"params"`

	// The endpoint owner's id, not the caller's. Forwarded on the
	// helper library's recursive self-calls as the effective identity.
	EndpointUserID int64 `json:"endpoint_user_id"`

	AIAPIURL     string `json:"ai_api_url"`
	AIAPIKey     string `json:"ai_api_key"`
	AIModel      string `json:"ai_model"`
	AIConfigured bool   `json:"ai_configured"`

	APIBaseURL string `json:"api_base_url"`
	CallDepth  int    `json:"call_depth"`
}

// Script is an assembled, runnable program. Source is fixed per endpoint
// code; Input is the per-request context document fed to the process on
// stdin, so untrusted parameter content never touches the source text.
type Script struct {
	Source string
	Input  []byte
}
