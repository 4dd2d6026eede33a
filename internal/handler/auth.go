package handler

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/turnos/internal/config"
    "github.com/iliyamo/turnos/internal/repository"
    "github.com/iliyamo/turnos/internal/utils"
)

// AuthHandler implements operator account management: registration,
// login with access/refresh token pair, refresh rotation and logout.
type AuthHandler struct {
    Users  *repository.UserRepo
    Tokens *repository.TokenRepo
    Cfg    *config.Config
}

func NewAuthHandler(users *repository.UserRepo, tokens *repository.TokenRepo, cfg *config.Config) *AuthHandler {
    return &AuthHandler{Users: users, Tokens: tokens, Cfg: cfg}
}

type registerRequest struct {
    Email    string `json:"email"`
    Password string `json:"password"`
    Role     string `json:"role"`
}

type loginRequest struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

type refreshRequest struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
    AccessToken  string    `json:"access_token"`
    AccessExp    time.Time `json:"access_exp"`
    RefreshToken string    `json:"refresh_token"`
    RefreshExp   time.Time `json:"refresh_exp"`
}

// Register handles POST /v1/auth/register.  New accounts default to
// the OPERATOR role.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    req.Email = strings.TrimSpace(strings.ToLower(req.Email))
    if !strings.Contains(req.Email, "@") {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
    }
    if len(req.Password) < 8 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
    }
    role := strings.ToUpper(strings.TrimSpace(req.Role))
    if role != "ADMIN" {
        role = "OPERATOR"
    }

    id, err := h.Users.Create(c.Request().Context(), req.Email, req.Password, role, h.Cfg.BcryptCost)
    if err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create user"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"id": id, "email": req.Email, "role": role})
}

// Login handles POST /v1/auth/login and issues a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    req.Email = strings.TrimSpace(strings.ToLower(req.Email))

    user, err := h.Users.GetByEmail(c.Request().Context(), req.Email)
    if err != nil || !user.IsActive || !utils.VerifyPassword(user.PasswordHash, req.Password) {
        // One message for every failure mode, so login does not leak
        // which emails exist.
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    return h.issueTokens(c, user.ID, user.Role)
}

// Refresh handles POST /v1/auth/refresh.  The presented refresh token
// is revoked and replaced, so a token can only be used once.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshRequest
    if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token is required"})
    }

    ctx := c.Request().Context()
    hash := utils.HashRefreshRaw(req.RefreshToken)
    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
    }
    user, err := h.Users.GetByID(ctx, userID)
    if err != nil || !user.IsActive {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not rotate token"})
    }
    return h.issueTokens(c, user.ID, user.Role)
}

// Logout handles POST /v1/auth/logout, revoking the presented refresh
// token.  Access tokens simply expire.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshRequest
    if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token is required"})
    }
    if err := h.Tokens.RevokeByHash(c.Request().Context(), utils.HashRefreshRaw(req.RefreshToken)); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not revoke token"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Me handles GET /v1/auth/me, returning the authenticated operator.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    user, err := h.Users.GetByID(c.Request().Context(), uid)
    if err != nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "id":    user.ID,
        "email": user.Email,
        "role":  user.Role,
    })
}

func (h *AuthHandler) issueTokens(c echo.Context, userID uint64, role string) error {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, role, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue token"})
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue token"})
    }
    if err := h.Tokens.StoreRefresh(c.Request().Context(), userID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue token"})
    }
    return c.JSON(http.StatusOK, tokenResponse{
        AccessToken:  access.Token,
        AccessExp:    access.Exp,
        RefreshToken: refresh.Raw,
        RefreshExp:   refresh.Exp,
    })
}
