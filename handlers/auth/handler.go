package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	jwtmiddleware "github.com/tech-arch1tect/authsession/middleware/jwt"
	"github.com/tech-arch1tect/authsession/services/identity"
	"github.com/tech-arch1tect/authsession/services/jwt"
	"github.com/tech-arch1tect/authsession/services/logging"
	"github.com/tech-arch1tect/authsession/services/refreshtoken"
	"github.com/tech-arch1tect/authsession/services/revocation"
	"github.com/tech-arch1tect/authsession/services/tokenpolicy"
	"go.uber.org/zap"
)

// AccessTokenHeader carries a freshly issued access token for clients that do
// not keep cookies.
const AccessTokenHeader = "X-Access-Token"

type Handler struct {
	verifier identity.Verifier
	access   *jwt.Service
	refresh  *refreshtoken.Service
	policies tokenpolicy.Policies
	timeout  time.Duration
	logger   *logging.Service
}

func NewHandler(verifier identity.Verifier, access *jwt.Service, refresh *refreshtoken.Service, policies tokenpolicy.Policies, timeout time.Duration, logger *logging.Service) *Handler {
	return &Handler{
		verifier: verifier,
		access:   access,
		refresh:  refresh,
		policies: policies,
		timeout:  timeout,
		logger:   logger,
	}
}

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	identity.Profile
}

type TokenResponse struct {
	AccessTokenExpiresAt  time.Time    `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time    `json:"refresh_token_expires_at"`
	User                  UserResponse `json:"user"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type SessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

type SessionResponse struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	DeviceInfo string    `json:"device_info"`
}

// Register mounts the endpoints on g. Revocation and introspection sit behind
// requireAuth; login and refresh are wrapped by guard instead.
func (h *Handler) Register(g *echo.Group, requireAuth echo.MiddlewareFunc, guard ...echo.MiddlewareFunc) {
	g.POST("/login", h.Login, guard...)
	g.POST("/refresh", h.Refresh, guard...)
	g.POST("/revoke", h.Revoke, requireAuth)
	g.POST("/revoke-all", h.RevokeAll, requireAuth)
	g.GET("/me", h.Me, requireAuth)
	g.GET("/sessions", h.Sessions, requireAuth)
}

func (h *Handler) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request().Context())
	}
	return context.WithTimeout(c.Request().Context(), h.timeout)
}

func (h *Handler) discriminator(c echo.Context) (string, error) {
	discriminator, err := h.policies.Discriminator(c.Request())
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Invalid session identifier")
	}
	return discriminator, nil
}

func sessionInfo(c echo.Context) refreshtoken.SessionInfo {
	return refreshtoken.SessionInfo{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

func userResponse(ident *identity.Identity) UserResponse {
	return UserResponse{ID: ident.ID, Username: ident.Username, Profile: ident.Profile}
}

func isUnavailable(err error) bool {
	return errors.Is(err, revocation.ErrStorage) ||
		errors.Is(err, refreshtoken.ErrStorage) ||
		errors.Is(err, identity.ErrStorage) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (h *Handler) writeTokens(c echo.Context, cookies []*http.Cookie) {
	for _, cookie := range cookies {
		c.SetCookie(cookie)
	}
	if len(cookies) == 2 {
		c.Response().Header().Set(AccessTokenHeader, cookies[0].Value)
		c.Response().Header().Set(tokenpolicy.RefreshTokenHeader, cookies[1].Value)
	}
}

func (h *Handler) clearTokens(c echo.Context, discriminator string) {
	c.SetCookie(h.policies.ExpireCookie(tokenpolicy.Access, discriminator))
	c.SetCookie(h.policies.ExpireCookie(tokenpolicy.Refresh, discriminator))
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Username and password are required")
	}

	discriminator, err := h.discriminator(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	ident, err := h.verifier.VerifyCredentials(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
		}
		h.logger.Error("login failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication temporarily unavailable")
	}

	access, err := h.access.IssueForIdentity(ident)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to issue access token")
	}

	refresh, err := h.refresh.CreateRefreshToken(ctx, ident.Username, sessionInfo(c))
	if err != nil {
		if isUnavailable(err) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication temporarily unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to issue refresh token")
	}

	h.writeTokens(c, h.refresh.SessionCookies(discriminator, access, refresh))

	h.logger.Info("login succeeded",
		zap.String("username", ident.Username),
		zap.String("session", discriminator))

	return c.JSON(http.StatusOK, TokenResponse{
		AccessTokenExpiresAt:  access.ExpiresAt,
		RefreshTokenExpiresAt: refresh.Record.ExpiresAt,
		User:                  userResponse(ident),
	})
}

func (h *Handler) Refresh(c echo.Context) error {
	discriminator, err := h.discriminator(c)
	if err != nil {
		return err
	}
	value, _ := tokenpolicy.ExtractFromRequest(c.Request(), tokenpolicy.Refresh, discriminator)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.refresh.Refresh(ctx, value, discriminator, sessionInfo(c))
	if err != nil {
		switch {
		case errors.Is(err, refreshtoken.ErrInvalidRefreshToken),
			errors.Is(err, refreshtoken.ErrRefreshTokenExpired),
			errors.Is(err, refreshtoken.ErrUserNotFound):
			h.clearTokens(c, discriminator)
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired refresh token")
		case isUnavailable(err):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication temporarily unavailable")
		default:
			h.logger.Error("refresh failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to refresh credentials")
		}
	}

	h.writeTokens(c, result.Cookies)

	return c.JSON(http.StatusOK, TokenResponse{
		AccessTokenExpiresAt:  result.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: result.RefreshTokenExpiresAt,
		User:                  userResponse(result.Identity),
	})
}

// Revoke invalidates the paired refresh token before the access token so a
// storage failure leaves the caller able to retry.
func (h *Handler) Revoke(c echo.Context) error {
	discriminator := jwtmiddleware.GetDiscriminator(c)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if value, ok := tokenpolicy.ExtractFromRequest(c.Request(), tokenpolicy.Refresh, discriminator); ok {
		if err := h.refresh.InvalidateToken(ctx, value); err != nil {
			h.logger.Error("refresh token not invalidated during revoke", zap.Error(err))
			if isUnavailable(err) {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication temporarily unavailable")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to revoke refresh token")
		}
	}

	if err := h.access.Invalidate(ctx, jwtmiddleware.GetToken(c)); err != nil {
		if isUnavailable(err) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication temporarily unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to revoke access token")
	}

	h.clearTokens(c, discriminator)

	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// RevokeAll signs the caller out of every session.
func (h *Handler) RevokeAll(c echo.Context) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if _, err := h.refresh.RevokeAllForOwner(ctx, jwtmiddleware.GetSubject(c)); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication temporarily unavailable")
	}
	if err := h.access.Invalidate(ctx, jwtmiddleware.GetToken(c)); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication temporarily unavailable")
	}

	h.clearTokens(c, jwtmiddleware.GetDiscriminator(c))

	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (h *Handler) Me(c echo.Context) error {
	claims := jwtmiddleware.GetClaims(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Access token required")
	}

	return c.JSON(http.StatusOK, UserResponse{
		ID:       claims.UserID,
		Username: claims.Subject,
		Profile:  claims.Profile,
	})
}

func (h *Handler) Sessions(c echo.Context) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	records, err := h.refresh.FindByOwner(ctx, jwtmiddleware.GetSubject(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication temporarily unavailable")
	}

	sessions := make([]SessionResponse, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, SessionResponse{
			ID:         record.ID,
			CreatedAt:  record.CreatedAt,
			ExpiresAt:  record.ExpiresAt,
			DeviceInfo: record.DeviceInfo,
		})
	}

	return c.JSON(http.StatusOK, SessionsResponse{Sessions: sessions})
}
