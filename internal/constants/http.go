package constants

// HTTP Header Names
const (
	HeaderContentType    = "Content-Type"
	HeaderAuthorization  = "Authorization"
	HeaderUserAgent      = "User-Agent"
	HeaderXRequestID     = "X-Request-ID"
	HeaderXCorrelationID = "X-Correlation-ID"
)

const BearerPrefix = "Bearer "

// Session cookies
const (
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"
	CookiePath         = "/"
)

// Multipart form fields
const (
	FormFieldAvatar     = "avatar"
	FormFieldCoverImage = "coverImage"
)

// Common HTTP Error Messages
const (
	MsgUnauthorized  = "unauthorized request"
	MsgBadRequest    = "invalid request"
	MsgInternalError = "internal server error"
	MsgNotFound      = "resource not found"
)

// HTTP Success Messages
const (
	MsgUserRegistered   = "user registered successfully"
	MsgUserLoggedIn     = "user logged in successfully"
	MsgUserLoggedOut    = "user logged out"
	MsgTokenRefreshed   = "access token refreshed"
	MsgPasswordChanged  = "password changed successfully"
	MsgCurrentUser      = "current user fetched successfully"
	MsgAccountUpdated   = "account details updated successfully"
	MsgAvatarUpdated    = "avatar image updated successfully"
	MsgCoverImageUpdate = "cover image updated successfully"
	MsgHealthy          = "service is healthy"
	MsgUnhealthy        = "service is unhealthy"
)
