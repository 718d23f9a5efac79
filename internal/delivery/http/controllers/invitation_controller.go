package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"choretracker/internal/delivery/http/helpers"
	"choretracker/internal/domain"
)

// CreateInvitationRequest is the request body for POST /invitation/create
type CreateInvitationRequest struct {
	FamilyID string `json:"family_id"`
	Email    string `json:"email"`
}

// Validate implements Validator.
func (c CreateInvitationRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.FamilyID) == "" {
		errs = append(errs, "family_id is required")
	}
	if strings.TrimSpace(c.Email) == "" {
		errs = append(errs, "email is required")
	}
	return errs
}

// InvitationSuccessResponse is the success response envelope for create, resend and reject (200/201).
// When the email could not be delivered the status is 502, error.code is delivery_failed and
// data still contains the stored invitation.
type InvitationSuccessResponse struct {
	Data  *domain.Invitation `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// InvitationDetailsSuccessResponse is the success response envelope for GET /invitation/{token} (200).
type InvitationDetailsSuccessResponse struct {
	Data  *domain.InvitationDetails `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// ListInvitationsSuccessResponse is the success response envelope for GET /family/{id}/invitations (200).
type ListInvitationsSuccessResponse struct {
	Data  []*domain.InvitationDetails `json:"data"`
	Error *helpers.APIError           `json:"error"`
}

// AcceptInvitationSuccessResponse is the success response envelope for POST /invitation/{token}/accept (200).
type AcceptInvitationSuccessResponse struct {
	Data  *domain.AcceptResult `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// InvitationController handles the invitation lifecycle.
type InvitationController struct {
	Logger  *slog.Logger
	Service domain.InvitationService
}

// NewInvitationController creates an InvitationController with the given logger and service.
func NewInvitationController(logger *slog.Logger, svc domain.InvitationService) *InvitationController {
	return &InvitationController{Logger: logger, Service: svc}
}

func pathToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := strings.TrimSpace(r.PathValue("token"))
	if token == "" {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "not found")
		return "", false
	}
	return token, true
}

// Create godoc
// @Summary Invite someone to a family
// @Description Creates a pending invitation for the email and sends it. Any earlier pending invitation for the same email and family is replaced. The caller must belong to the family.
// @Tags invitation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateInvitationRequest true "Family and invitee email"
// @Success 201 {object} controllers.InvitationSuccessResponse "data contains the invitation, including its token"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (caller has no family)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already a member)"
// @Failure 502 {object} controllers.InvitationSuccessResponse "error.code: delivery_failed; data contains the stored invitation"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitation/create [post]
func (c *InvitationController) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	var req CreateInvitationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if !helpers.ValidID(req.FamilyID) {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "not found")
		return
	}
	inv, err := c.Service.Create(r.Context(), claims, strings.TrimSpace(req.FamilyID), req.Email)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, inv)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusCreated, inv)
}

// Get godoc
// @Summary Look up an invitation by token
// @Description Public. Returns the invitation with the family and inviter names. A pending invitation past its expiry is reported with status expired.
// @Tags invitation
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} controllers.InvitationDetailsSuccessResponse "data contains the invitation details"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 429 {object} helpers.APIResponse "error.code: rate_limited"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitation/{token} [get]
func (c *InvitationController) Get(w http.ResponseWriter, r *http.Request) {
	token, ok := pathToken(w, r)
	if !ok {
		return
	}
	details, err := c.Service.GetByToken(r.Context(), token)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, details)
}

// ListForFamily godoc
// @Summary List pending invitations
// @Description Returns the unexpired pending invitations of the caller's own family.
// @Tags invitation
// @Produce json
// @Security BearerAuth
// @Param id path string true "Family ID"
// @Success 200 {object} controllers.ListInvitationsSuccessResponse "data contains the invitations"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /family/{id}/invitations [get]
func (c *InvitationController) ListForFamily(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	list, err := c.Service.ListForFamily(r.Context(), claims, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}
	if list == nil {
		list = []*domain.InvitationDetails{}
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// Accept godoc
// @Summary Accept an invitation
// @Description Public; the token is the credential. Binds an existing account with the invitee email to the family. Without an account, user_exists is false and the invitee registers with the same token. The caller's next login carries the new family.
// @Tags invitation
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} controllers.AcceptInvitationSuccessResponse "data contains the accept result"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (no longer pending)"
// @Failure 410 {object} helpers.APIResponse "error.code: expired"
// @Failure 429 {object} helpers.APIResponse "error.code: rate_limited"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitation/{token}/accept [post]
func (c *InvitationController) Accept(w http.ResponseWriter, r *http.Request) {
	token, ok := pathToken(w, r)
	if !ok {
		return
	}
	result, err := c.Service.Accept(r.Context(), token)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// Reject godoc
// @Summary Reject an invitation
// @Description Public; the token is the credential. Marks a pending invitation as rejected.
// @Tags invitation
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} controllers.InvitationSuccessResponse "data contains the rejected invitation"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (no longer pending)"
// @Failure 410 {object} helpers.APIResponse "error.code: expired"
// @Failure 429 {object} helpers.APIResponse "error.code: rate_limited"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitation/{token}/reject [post]
func (c *InvitationController) Reject(w http.ResponseWriter, r *http.Request) {
	token, ok := pathToken(w, r)
	if !ok {
		return
	}
	inv, err := c.Service.Reject(r.Context(), token)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}

// Resend godoc
// @Summary Resend an invitation
// @Description Issues a new token, resets the expiry, sets the status back to pending and emails the invitee. The old token stops working.
// @Tags invitation
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invitation ID"
// @Success 200 {object} controllers.InvitationSuccessResponse "data contains the reissued invitation"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 502 {object} controllers.InvitationSuccessResponse "error.code: delivery_failed; data contains the stored invitation"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitation/{id}/resend [post]
func (c *InvitationController) Resend(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := c.Service.Resend(r.Context(), claims, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, inv)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}

// Delete godoc
// @Summary Delete an invitation
// @Description Permanently removes an invitation of the caller's own family.
// @Tags invitation
// @Security BearerAuth
// @Param id path string true "Invitation ID"
// @Success 204 "No Content"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitation/{id} [delete]
func (c *InvitationController) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	if err := c.Service.Delete(r.Context(), claims, id); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
