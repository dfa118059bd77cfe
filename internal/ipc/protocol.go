package ipc

// Request is one JSON line sent to the session owner.
type Request struct {
	Command string `json:"command"`
	// Wait asks stop/toggle to reply only after the transcript is ready.
	Wait bool `json:"wait,omitempty"`
}

// Response is the owner's single JSON line reply.
type Response struct {
	OK         bool   `json:"ok"`
	State      string `json:"state,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Found      bool   `json:"found,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}
