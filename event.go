package fsmsnap

// Event carries data through the state machine
type Event struct {
	ID      EventID
	Payload any
}

// envelope is what travels through the queue; done is set for SendSync.
type envelope struct {
	event Event
	done  chan error
}
