package ipc

// Request is one control command sent to the run owner process.
//
// Name/Price carry edit payloads for the "set" command; ID carries the
// record id for "delete". Price is a pointer so "set name only" is
// distinguishable from "set price to zero".
type Request struct {
	Command string   `json:"command"`
	Name    string   `json:"name,omitempty"`
	Price   *float64 `json:"price,omitempty"`
	ID      string   `json:"id,omitempty"`
}

// Candidate is the pending extracted item surfaced to clients for review.
type Candidate struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Item is one persisted record as surfaced over the control socket.
type Item struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	OwnerID   string  `json:"owner_id"`
	CreatedAt string  `json:"created_at"`
}

type Response struct {
	OK         bool       `json:"ok"`
	State      string     `json:"state,omitempty"`
	Processing bool       `json:"processing,omitempty"`
	Message    string     `json:"message,omitempty"`
	Error      string     `json:"error,omitempty"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	Transcript string     `json:"transcript,omitempty"`
	Candidate  *Candidate `json:"candidate,omitempty"`
	Items      []Item     `json:"items,omitempty"`
}
