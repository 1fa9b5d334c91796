package auth

import (
	"net/http"

	"github.com/tech-arch1tect/authsession/openapi"
	"github.com/tech-arch1tect/authsession/services/tokenpolicy"
)

const (
	bearerScheme = "bearerAuth"
	cookieScheme = "accessCookie"
	tag          = "auth"
)

// Describe adds the endpoints mounted by Register under prefix to doc.
func (h *Handler) Describe(doc *openapi.OpenAPI, prefix string) {
	doc.Tag(tag, "Token issuance, rotation and revocation").
		BearerAuth(bearerScheme, "Access token in the Authorization header").
		CookieAuth(cookieScheme, string(tokenpolicy.Access), "Access token cookie, suffixed by the session discriminator")

	sessionHeader := h.policies.SessionHeader
	tokenHeaders := map[string]string{
		AccessTokenHeader:              "Newly issued access token",
		tokenpolicy.RefreshTokenHeader: "Newly issued refresh token",
		"Set-Cookie":                   "Access and refresh token cookies",
	}

	login := doc.Document(http.MethodPost, prefix+"/login").
		Summary("Exchange credentials for an access and refresh token").
		Tags(tag).
		Body(LoginRequest{}, "Credentials").
		ResponseWithHeaders(http.StatusOK, TokenResponse{}, "Tokens issued", tokenHeaders).
		Response(http.StatusBadRequest, ErrorResponse{}, "Missing username or password, or invalid session identifier").
		Response(http.StatusUnauthorized, ErrorResponse{}, "Invalid credentials").
		Response(http.StatusTooManyRequests, ErrorResponse{}, "Too many failed attempts").
		Response(http.StatusServiceUnavailable, ErrorResponse{}, "Credential store unavailable").
		NoSecurity()

	refresh := doc.Document(http.MethodPost, prefix+"/refresh").
		Summary("Rotate a refresh token into a new token pair").
		Description("The presented refresh token is consumed; replaying it fails.").
		Tags(tag).
		CookieParam(string(tokenpolicy.Refresh), "Refresh token cookie, suffixed by the session discriminator").
		HeaderParam(tokenpolicy.RefreshTokenHeader, "Refresh token for clients without cookies").
		ResponseWithHeaders(http.StatusOK, TokenResponse{}, "Tokens rotated", tokenHeaders).
		Response(http.StatusBadRequest, ErrorResponse{}, "Invalid session identifier").
		Response(http.StatusUnauthorized, ErrorResponse{}, "Invalid or expired refresh token").
		Response(http.StatusTooManyRequests, ErrorResponse{}, "Too many attempts").
		Response(http.StatusServiceUnavailable, ErrorResponse{}, "Token store unavailable").
		NoSecurity()

	revoke := doc.Document(http.MethodPost, prefix+"/revoke").
		Summary("Revoke the presented access token and its session refresh token").
		Tags(tag).
		Response(http.StatusOK, SuccessResponse{}, "Revoked").
		Response(http.StatusUnauthorized, ErrorResponse{}, "Invalid or expired access token").
		Response(http.StatusServiceUnavailable, ErrorResponse{}, "Token store unavailable")

	revokeAll := doc.Document(http.MethodPost, prefix+"/revoke-all").
		Summary("Revoke every refresh token of the caller").
		Tags(tag).
		Response(http.StatusOK, SuccessResponse{}, "All sessions revoked").
		Response(http.StatusUnauthorized, ErrorResponse{}, "Invalid or expired access token")

	me := doc.Document(http.MethodGet, prefix+"/me").
		Summary("Identity carried by the access token").
		Tags(tag).
		Response(http.StatusOK, UserResponse{}, "Authenticated user").
		Response(http.StatusUnauthorized, ErrorResponse{}, "Invalid or expired access token")

	sessions := doc.Document(http.MethodGet, prefix+"/sessions").
		Summary("Active refresh tokens of the caller").
		Tags(tag).
		Response(http.StatusOK, SessionsResponse{}, "Sessions").
		Response(http.StatusUnauthorized, ErrorResponse{}, "Invalid or expired access token")

	for _, route := range []*openapi.RouteBuilder{login, refresh, revoke, revokeAll, me, sessions} {
		if sessionHeader != "" {
			route.HeaderParam(sessionHeader, "Session discriminator selecting the cookie pair")
		}
	}
	for _, route := range []*openapi.RouteBuilder{revoke, revokeAll, me, sessions} {
		route.Security(bearerScheme, cookieScheme)
	}
	for _, route := range []*openapi.RouteBuilder{login, refresh, revoke, revokeAll, me, sessions} {
		route.Build()
	}
}
