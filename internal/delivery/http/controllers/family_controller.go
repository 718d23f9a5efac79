package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"choretracker/internal/delivery/http/helpers"
	"choretracker/internal/domain"
)

// FamilyRequest is the request body for POST /family/add and PUT /family/{id}
type FamilyRequest struct {
	Name string `json:"name"`
}

// Validate implements Validator.
func (f FamilyRequest) Validate() []string {
	if strings.TrimSpace(f.Name) == "" {
		return []string{"name is required"}
	}
	return nil
}

// FamilyCreatedResponse carries the new family and a token reissued with the new membership.
type FamilyCreatedResponse struct {
	Family    *domain.Family `json:"family"`
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
}

// FamilyDeletedResponse carries a token reissued without the deleted membership.
type FamilyDeletedResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

// FamilyListResponse is a page of families.
type FamilyListResponse struct {
	Items      []*domain.Family       `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// CreateFamilySuccessResponse is the success response envelope for POST /family/add (201).
type CreateFamilySuccessResponse struct {
	Data  FamilyCreatedResponse `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// FamilySuccessResponse is the success response envelope for GET and PUT /family/{id} (200).
type FamilySuccessResponse struct {
	Data  *domain.Family    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// DeleteFamilySuccessResponse is the success response envelope for DELETE /family/{id} (200).
type DeleteFamilySuccessResponse struct {
	Data  FamilyDeletedResponse `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// ListFamiliesSuccessResponse is the success response envelope for GET /family/getall (200).
type ListFamiliesSuccessResponse struct {
	Data  FamilyListResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// ListMembersSuccessResponse is the success response envelope for GET /family/{id}/users (200).
type ListMembersSuccessResponse struct {
	Data  []*domain.User    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// FamilyController handles family endpoints.
type FamilyController struct {
	Logger  *slog.Logger
	Service domain.FamilyService
}

// NewFamilyController creates a FamilyController with the given logger and service.
func NewFamilyController(logger *slog.Logger, svc domain.FamilyService) *FamilyController {
	return &FamilyController{Logger: logger, Service: svc}
}

// Create godoc
// @Summary Create a family
// @Description Create a family owned by the caller, who must not belong to one yet. Returns a new token that carries the membership.
// @Tags family
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body FamilyRequest true "Family name"
// @Success 201 {object} controllers.CreateFamilySuccessResponse "data contains the family and a fresh token"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (already in a family)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /family/add [post]
func (c *FamilyController) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	var req FamilyRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	family, token, err := c.Service.Create(r.Context(), claims, req.Name)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusCreated, FamilyCreatedResponse{Family: family, Token: token, TokenType: "Bearer"})
}

// Get godoc
// @Summary Get a family
// @Description Returns the caller's own family. Other families are reported as not found.
// @Tags family
// @Produce json
// @Security BearerAuth
// @Param id path string true "Family ID"
// @Success 200 {object} controllers.FamilySuccessResponse "data contains the family"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /family/{id} [get]
func (c *FamilyController) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	family, err := c.Service.Get(r.Context(), claims, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, family)
}

// Rename godoc
// @Summary Rename a family
// @Description Rename the caller's own family.
// @Tags family
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Family ID"
// @Param body body FamilyRequest true "New name"
// @Success 200 {object} controllers.FamilySuccessResponse "data contains the updated family"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /family/{id} [put]
func (c *FamilyController) Rename(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	var req FamilyRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	family, err := c.Service.Rename(r.Context(), claims, id, req.Name)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, family)
}

// Delete godoc
// @Summary Delete a family
// @Description Deletes the caller's family with its chores, logs and invitations. Former members become unbound. Only the creator may delete it.
// @Tags family
// @Produce json
// @Security BearerAuth
// @Param id path string true "Family ID"
// @Success 200 {object} controllers.DeleteFamilySuccessResponse "data contains a token without the family"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (caller is not the creator)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /family/{id} [delete]
func (c *FamilyController) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	token, err := c.Service.Delete(r.Context(), claims, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, FamilyDeletedResponse{Token: token, TokenType: "Bearer"})
}

// ListMembers godoc
// @Summary List family members
// @Description Returns the users bound to the caller's own family.
// @Tags family
// @Produce json
// @Security BearerAuth
// @Param id path string true "Family ID"
// @Success 200 {object} controllers.ListMembersSuccessResponse "data contains the members"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /family/{id}/users [get]
func (c *FamilyController) ListMembers(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	users, err := c.Service.ListMembers(r.Context(), claims, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}
	if users == nil {
		users = []*domain.User{}
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, users)
}

// ListAll godoc
// @Summary List all families
// @Description Paginated list of every family. Requires the global admin role.
// @Tags family
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListFamiliesSuccessResponse "data contains items and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /family/getall [get]
func (c *FamilyController) ListAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	params := helpers.ParsePagination(r)
	families, total, err := c.Service.ListAll(r.Context(), claims, params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}
	if families == nil {
		families = []*domain.Family{}
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, FamilyListResponse{
		Items:      families,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}
