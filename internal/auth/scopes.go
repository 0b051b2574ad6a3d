package auth

const (
	ScopeOpenID         = "openid"
	ScopeProfile        = "profile"
	ScopeEmail          = "email"
	ScopeChatflowsRead  = "chatflows:read"
	ScopeChatflowsWrite = "chatflows:write"
)

// AllScopes defines the full set of scopes used by the Swagger UI / Frontend
var AllScopes = []string{
	ScopeOpenID,
	ScopeProfile,
	ScopeEmail,
	ScopeChatflowsRead,
	ScopeChatflowsWrite,
}
