package storage

// Logical keys of the persisted state
const (
	KeyResults        = "results"
	KeyUsers          = "users"
	KeyCurrentSession = "current_session"
	KeyWaitingList    = "waiting_list"
)

// Lock names. Nested acquisition must follow this order:
// matchmaking, then results, then users.
const (
	LockMatchmaking = "matchmaking"
	LockResults     = "results"
	LockUsers       = "users"
)

// Keys maps logical keys onto store keys under an optional prefix
type Keys struct {
	Prefix string
}

// Key returns the store key for a logical key
func (k Keys) Key(name string) string {
	if k.Prefix == "" {
		return name
	}
	return k.Prefix + ":" + name
}
