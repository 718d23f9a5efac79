package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"choretracker/internal/delivery/http/helpers"
	"choretracker/internal/domain"
)

// ChoreRequest is the request body for POST /chore/add and PUT /chore/{id}. The family is
// always the caller's own and cannot be set or changed.
type ChoreRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate implements Validator.
func (c ChoreRequest) Validate() []string {
	if strings.TrimSpace(c.Name) == "" {
		return []string{"name is required"}
	}
	return nil
}

// DeleteManyRequest is the request body for POST /chore/deletemany and POST /chorelog/deletemany.
type DeleteManyRequest struct {
	IDs []string `json:"ids"`
}

// Validate implements Validator.
func (d DeleteManyRequest) Validate() []string {
	if len(d.IDs) == 0 {
		return []string{"ids is required"}
	}
	for _, id := range d.IDs {
		if !helpers.ValidID(id) {
			return []string{"ids must be valid uuids"}
		}
	}
	return nil
}

// DeleteManyResponse reports how many rows were removed.
type DeleteManyResponse struct {
	Deleted int `json:"deleted"`
}

// ChoreSuccessResponse is the success response envelope for a single chore.
type ChoreSuccessResponse struct {
	Data  *domain.Chore     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListChoresSuccessResponse is the success response envelope for GET /chore/getall (200).
type ListChoresSuccessResponse struct {
	Data  []*domain.Chore   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// DeleteManySuccessResponse is the success response envelope for the deletemany endpoints (200).
type DeleteManySuccessResponse struct {
	Data  DeleteManyResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// ChoreController handles chore endpoints.
type ChoreController struct {
	Logger  *slog.Logger
	Service domain.ChoreService
}

// NewChoreController creates a ChoreController with the given logger and service.
func NewChoreController(logger *slog.Logger, svc domain.ChoreService) *ChoreController {
	return &ChoreController{Logger: logger, Service: svc}
}

// Create godoc
// @Summary Create a chore
// @Description Creates a chore in the caller's family.
// @Tags chore
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ChoreRequest true "Chore data"
// @Success 201 {object} controllers.ChoreSuccessResponse "data contains the created chore"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (caller has no family)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /chore/add [post]
func (c *ChoreController) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	var req ChoreRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	chore, err := c.Service.Create(r.Context(), claims, domain.ChoreInput{Name: req.Name, Description: req.Description})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusCreated, chore)
}

// List godoc
// @Summary List chores
// @Description Returns the chores of the caller's family.
// @Tags chore
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListChoresSuccessResponse "data contains the chores"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (caller has no family)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /chore/getall [get]
func (c *ChoreController) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	chores, err := c.Service.List(r.Context(), claims)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}
	if chores == nil {
		chores = []*domain.Chore{}
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, chores)
}

// Get godoc
// @Summary Get a chore
// @Tags chore
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chore ID"
// @Success 200 {object} controllers.ChoreSuccessResponse "data contains the chore"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /chore/{id} [get]
func (c *ChoreController) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	chore, err := c.Service.Get(r.Context(), claims, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, chore)
}

// Update godoc
// @Summary Update a chore
// @Description Replaces the name and description of a chore in the caller's family.
// @Tags chore
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chore ID"
// @Param body body ChoreRequest true "Chore data"
// @Success 200 {object} controllers.ChoreSuccessResponse "data contains the updated chore"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /chore/{id} [put]
func (c *ChoreController) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	var req ChoreRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	chore, err := c.Service.Update(r.Context(), claims, id, domain.ChoreInput{Name: req.Name, Description: req.Description})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, chore)
}

// Delete godoc
// @Summary Delete a chore
// @Tags chore
// @Security BearerAuth
// @Param id path string true "Chore ID"
// @Success 204 "No Content"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /chore/delete/{id} [delete]
func (c *ChoreController) Delete(w http.ResponseWriter, r *http.Request) {
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

// DeleteMany godoc
// @Summary Delete several chores
// @Description Deletes the listed chores that belong to the caller's family. Ids of other families are ignored. Returns the number removed.
// @Tags chore
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body DeleteManyRequest true "Chore IDs"
// @Success 200 {object} controllers.DeleteManySuccessResponse "data.deleted is the number removed"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (caller has no family)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /chore/deletemany [post]
func (c *ChoreController) DeleteMany(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	var req DeleteManyRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	n, err := c.Service.DeleteMany(r.Context(), claims, req.IDs)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteManyResponse{Deleted: n})
}
