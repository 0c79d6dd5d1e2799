package request

// RegisterRequest is the request body for registering an account
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// WaitingListRequest is the request body for joining or leaving the waiting list
type WaitingListRequest struct {
	Username string `json:"username"`
}

// GuessRequest is the request body for guessing the hidden position
type GuessRequest struct {
	Username string `json:"username"`
	// Position is a pointer so a missing field is distinguishable from 0
	Position *int `json:"position"`
}

// ResultRequest is the request body for reporting a practice result
type ResultRequest struct {
	Username string `json:"username"`
	Outcome  string `json:"outcome"`
}
