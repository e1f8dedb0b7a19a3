package server

import (
	"fmt"
	"log/slog"
	"time"

	"grapevine/internal/middleware"
	"grapevine/internal/models"
	"grapevine/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const refreshCookieName = "refresh-token"

// Signup handles POST /account/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := validation.ValidateName("first name", req.FirstName); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateName("last name", req.LastName); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	user := &models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  string(hashedPassword),
		Role:      models.RoleBasic,
	}

	// The unique index on email turns races into a 409 here.
	if createErr := s.userRepo.Create(c.Context(), user); createErr != nil {
		return models.RespondWithAppError(c, createErr)
	}

	s.sendVerificationMail(c, user)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": user,
	})
}

// Signin handles POST /account/auth/signin
func (s *Server) Signin(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	return s.issueTokenPair(c, user, fiber.StatusOK)
}

// Refresh handles POST /account/auth/refresh. It rotates both tokens: the
// presented refresh token is revoked and a new pair is issued.
func (s *Server) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies(refreshCookieName)
	if refreshToken == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Refresh token required"))
	}

	userID, err := s.tokens.VerifyRefresh(c.Context(), refreshToken)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if revokeErr := s.tokens.RevokeRefresh(c.Context(), userID, refreshToken); revokeErr != nil {
		return models.RespondWithAppError(c, revokeErr)
	}

	return s.issueTokenPair(c, user, fiber.StatusOK)
}

// Signout handles DELETE /account/auth/signout. The access token's JTI is
// blacklisted and the refresh token revoked, so neither survives.
func (s *Server) Signout(c *fiber.Ctx) error {
	userID := currentUserID(c)

	if jti, ok := c.Locals("jti").(string); ok && jti != "" {
		if err := s.tokens.RevokeAccess(c.Context(), jti); err != nil {
			return models.RespondWithAppError(c,
				models.NewDependencyError("Could not revoke access token", err))
		}
	}

	if refreshToken := c.Cookies(refreshCookieName); refreshToken != "" {
		if err := s.tokens.RevokeRefresh(c.Context(), userID, refreshToken); err != nil {
			return models.RespondWithAppError(c, err)
		}
	}

	s.clearRefreshCookie(c)
	return c.SendStatus(fiber.StatusNoContent)
}

// VerifyEmail handles GET /account/verify/:userId/:token
func (s *Server) VerifyEmail(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	tok := c.Params("token")

	ok, err := s.tokens.ConsumeVerification(c.Context(), userID, tok)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid or expired verification token"))
	}

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if !user.Verified {
		user.Verified = true
		if updErr := s.userRepo.Update(c.Context(), user); updErr != nil {
			return models.RespondWithAppError(c, updErr)
		}
	}

	return c.JSON(fiber.Map{
		"message": "Email verified",
	})
}

// ResendVerification handles POST /account/verify/resend
func (s *Server) ResendVerification(c *fiber.Ctx) error {
	userID := currentUserID(c)

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if user.Verified {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewConflictError("Email already verified"))
	}

	s.sendVerificationMail(c, user)

	return c.JSON(fiber.Map{
		"message": "Verification mail sent",
	})
}

// issueTokenPair writes the access token to the body and Authorization
// header, and the refresh token to an httpOnly cookie.
func (s *Server) issueTokenPair(c *fiber.Ctx, user *models.User, status int) error {
	accessToken, err := s.tokens.IssueAccess(user.ID, user.Role)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	refreshToken, err := s.tokens.IssueRefresh(c.Context(), user.ID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.setRefreshCookie(c, refreshToken)
	c.Set("Authorization", "Bearer "+accessToken)

	return c.Status(status).JSON(fiber.Map{
		"token": accessToken,
		"user":  user,
	})
}

func (s *Server) setRefreshCookie(c *fiber.Ctx, refreshToken string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     "/account/auth",
		MaxAge:   int(s.tokens.RefreshTTL / time.Second),
		HTTPOnly: true,
		Secure:   s.config.Env == "production",
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (s *Server) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/account/auth",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.Env == "production",
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// sendVerificationMail issues a single-use token and mails the confirmation
// link. Failures are logged, not surfaced; the user can ask for a resend.
func (s *Server) sendVerificationMail(c *fiber.Ctx, user *models.User) {
	tok, err := s.tokens.IssueVerification(c.Context(), user.ID)
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to issue verification token",
			slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
		return
	}

	link := fmt.Sprintf("%s/account/verify/%d/%s", s.config.PublicBaseURL, user.ID, tok)
	body := fmt.Sprintf("Hi %s,\n\nConfirm your address by opening this link within 15 minutes:\n\n%s\n", user.FirstName, link)
	if err := s.mailer.Send(c.UserContext(), user.Email, "Confirm your email", body); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to send verification mail",
			slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
	}
}
