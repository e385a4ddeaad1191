package core

// Message is the relay payload posted to a room. Every field is supplied by
// the client and carried verbatim: the id is unique by convention only, and
// the timestamp is whatever number the sender stamped on it.
type Message struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Sender    string  `json:"sender"`
	Timestamp float64 `json:"timestamp"`
}
