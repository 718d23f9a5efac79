package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"choretracker/internal/delivery/http/helpers"
	"choretracker/internal/domain"
)

// ProfileFields are the optional personal details of a user.
type ProfileFields struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zip_code"`
	Country     string `json:"country"`
}

func (p ProfileFields) profile() domain.Profile {
	return domain.Profile{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		PhoneNumber: p.PhoneNumber,
		Address:     p.Address,
		City:        p.City,
		State:       p.State,
		ZipCode:     p.ZipCode,
		Country:     p.Country,
	}
}

// RegisterRequest is the request body for POST /security/register
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	ProfileFields
	// InvitationToken joins the inviting family when the invitation was accepted for this email.
	InvitationToken string `json:"invitation_token,omitempty"`
}

// Validate implements Validator.
func (s RegisterRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(s.Email) == "" {
		errs = append(errs, "email is required")
	}
	if s.Password == "" {
		errs = append(errs, "password is required")
	}
	return errs
}

// LoginRequest is the request body for POST /security/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate implements Validator.
func (l LoginRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(l.Email) == "" {
		errs = append(errs, "email is required")
	}
	if l.Password == "" {
		errs = append(errs, "password is required")
	}
	return errs
}

// AuthResponse is the response body for register and login.
type AuthResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	User      *domain.User `json:"user"`
}

// UpdateUserRequest is the request body for PATCH /users/me. Every field is optional;
// omitted fields keep their current value.
type UpdateUserRequest struct {
	Email       *string `json:"email"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	State       *string `json:"state"`
	ZipCode     *string `json:"zip_code"`
	Country     *string `json:"country"`
}

// Validate implements Validator.
func (u UpdateUserRequest) Validate() []string {
	if u.Email != nil && strings.TrimSpace(*u.Email) == "" {
		return []string{"email cannot be empty"}
	}
	return nil
}

func (u UpdateUserRequest) touchesProfile() bool {
	return u.FirstName != nil || u.LastName != nil || u.PhoneNumber != nil || u.Address != nil ||
		u.City != nil || u.State != nil || u.ZipCode != nil || u.Country != nil
}

// merge overlays the provided fields onto the user's current profile.
func (u UpdateUserRequest) merge(current *domain.User) domain.Profile {
	p := domain.Profile{
		FirstName:   current.FirstName,
		LastName:    current.LastName,
		PhoneNumber: current.PhoneNumber,
		Address:     current.Address,
		City:        current.City,
		State:       current.State,
		ZipCode:     current.ZipCode,
		Country:     current.Country,
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.FirstName, u.FirstName)
	set(&p.LastName, u.LastName)
	set(&p.PhoneNumber, u.PhoneNumber)
	set(&p.Address, u.Address)
	set(&p.City, u.City)
	set(&p.State, u.State)
	set(&p.ZipCode, u.ZipCode)
	set(&p.Country, u.Country)
	return p
}

// AuthSuccessResponse is the success response envelope for register (201) and login (200).
type AuthSuccessResponse struct {
	Data  AuthResponse      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UserSuccessResponse is the success response envelope for GET and PATCH /users/me (200).
type UserSuccessResponse struct {
	Data  *domain.User      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UserController handles registration, login and the caller's own profile.
type UserController struct {
	Logger  *slog.Logger
	Service domain.UserService
}

// NewUserController creates a UserController with the given logger and service.
func NewUserController(logger *slog.Logger, svc domain.UserService) *UserController {
	return &UserController{
		Logger:  logger,
		Service: svc,
	}
}

// Register godoc
// @Summary Register a new user
// @Description Create an account and return a session token. When invitation_token names an accepted invitation for the same email, the new user joins that family; otherwise the user starts without a family.
// @Tags security
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Registration data"
// @Success 201 {object} controllers.AuthSuccessResponse "data contains token, token_type, and user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 429 {object} helpers.APIResponse "error.code: rate_limited"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /security/register [post]
func (c *UserController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	token, user, err := c.Service.Register(r.Context(), domain.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		Profile:         req.ProfileFields.profile(),
		InvitationToken: strings.TrimSpace(req.InvitationToken),
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusCreated, AuthResponse{Token: token, TokenType: "Bearer", User: user})
}

// Login godoc
// @Summary Log in
// @Description Authenticate with email and password. Returns a JWT carrying the user id, email, role, and family membership.
// @Tags security
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} controllers.AuthSuccessResponse "data contains token, token_type, and user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 429 {object} helpers.APIResponse "error.code: rate_limited"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /security/login [post]
func (c *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	token, user, err := c.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, AuthResponse{Token: token, TokenType: "Bearer", User: user})
}

// GetMe godoc
// @Summary Get current user
// @Description Returns the authenticated user's profile. Requires Bearer token.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.UserSuccessResponse "data contains the user"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/me [get]
func (c *UserController) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	user, err := c.Service.GetByID(r.Context(), claims.UserID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}

// UpdateMe godoc
// @Summary Update current user
// @Description Partially update the authenticated user's email and profile. Omitted fields are unchanged. A new email takes effect in tokens issued at the next login.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateUserRequest true "Fields to update"
// @Success 200 {object} controllers.UserSuccessResponse "data contains the updated user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/me [patch]
func (c *UserController) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	var profile *domain.Profile
	if req.touchesProfile() {
		current, err := c.Service.GetByID(r.Context(), claims.UserID)
		if err != nil {
			helpers.WriteServiceError(w, r, c.Logger, err, nil)
			return
		}
		merged := req.merge(current)
		profile = &merged
	}

	user, err := c.Service.UpdateProfile(r.Context(), claims, req.Email, profile)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}
