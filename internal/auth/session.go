package auth

// SessionData represents the authenticated session context for a request
type SessionData struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	TokenID    string `json:"token_id"`
	AuthMethod string `json:"auth_method"` // "cookie", "bearer"
}
