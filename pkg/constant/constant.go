package constant

const (
	// TokenIssuer and TokenAudience are compared exactly on every
	// verification; tokens minted elsewhere never pass.
	TokenIssuer   = "spheroseg-api"
	TokenAudience = "spheroseg-client"

	TokenTypeAccess  = "ACCESS"
	TokenTypeRefresh = "REFRESH"

	// DefaultTokenType is the token_type field of a token response.
	DefaultTokenType = "Bearer"

	// AccessTokenVersion is the current payload format version.
	AccessTokenVersion = 1

	// DefaultMaxTokensPerFamily caps simultaneously active refresh tokens
	// in one family before the whole family is treated as stolen.
	DefaultMaxTokensPerFamily = 5

	// DefaultFamilySizeWarning is the soft monitoring threshold checked
	// during refresh-token verification.
	DefaultFamilySizeWarning = 10

	// MaxUserAgentLength and MaxIPLength bound what gets hashed and stored.
	MaxUserAgentLength = 256
	MaxIPLength        = 45

	// DeviceIDLength is the truncated hex length of the device hash.
	DeviceIDLength = 32
)
