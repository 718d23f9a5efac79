package controllers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"choretracker/internal/delivery/http/helpers"
	"choretracker/internal/domain"
)

// ChoreLogRequest is the request body for POST /chorelog/add and PUT /chorelog/{id}.
// On update an empty chore_id or user_id keeps the current value.
type ChoreLogRequest struct {
	ChoreID     string     `json:"chore_id"`
	UserID      string     `json:"user_id"`
	DueDate     *time.Time `json:"due_date"`
	IsCompleted bool       `json:"is_completed"`
}

// Validate implements Validator.
func (c ChoreLogRequest) Validate() []string {
	var errs []string
	if id := strings.TrimSpace(c.ChoreID); id != "" && !helpers.ValidID(id) {
		errs = append(errs, "chore_id must be a valid id")
	}
	if id := strings.TrimSpace(c.UserID); id != "" && !helpers.ValidID(id) {
		errs = append(errs, "user_id must be a valid id")
	}
	return errs
}

func (c ChoreLogRequest) input() domain.ChoreLogInput {
	return domain.ChoreLogInput{
		ChoreID:     c.ChoreID,
		UserID:      c.UserID,
		DueDate:     c.DueDate,
		IsCompleted: c.IsCompleted,
	}
}

// ChoreLogSuccessResponse is the success response envelope for a single chore log.
type ChoreLogSuccessResponse struct {
	Data  *domain.ChoreLog  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListChoreLogsSuccessResponse is the success response envelope for chore log lists (200).
type ListChoreLogsSuccessResponse struct {
	Data  []*domain.ChoreLog `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// ChoreLogController handles chore log endpoints.
type ChoreLogController struct {
	Logger  *slog.Logger
	Service domain.ChoreLogService
}

// NewChoreLogController creates a ChoreLogController with the given logger and service.
func NewChoreLogController(logger *slog.Logger, svc domain.ChoreLogService) *ChoreLogController {
	return &ChoreLogController{Logger: logger, Service: svc}
}

// Create godoc
// @Summary Log a chore assignment
// @Description Records a chore assignment. The chore and the assignee must belong to the caller's family; the caller is recorded as reporter.
// @Tags chorelog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ChoreLogRequest true "Chore log data"
// @Success 201 {object} controllers.ChoreLogSuccessResponse "data contains the created log entry"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (caller has no family)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /chorelog/add [post]
func (c *ChoreLogController) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	var req ChoreLogRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	entry, err := c.Service.Create(r.Context(), claims, req.input())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusCreated, entry)
}

// Update godoc
// @Summary Update a chore log
// @Tags chorelog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chore log ID"
// @Param body body ChoreLogRequest true "Chore log data"
// @Success 200 {object} controllers.ChoreLogSuccessResponse "data contains the updated log entry"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /chorelog/{id} [put]
func (c *ChoreLogController) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	var req ChoreLogRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	entry, err := c.Service.Update(r.Context(), claims, id, req.input())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, nil)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, entry)
}

// Delete godoc
// @Summary Delete a chore log
// @Tags chorelog
// @Security BearerAuth
// @Param id path string true "Chore log ID"
// @Success 204 "No Content"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /chorelog/{id} [delete]
func (c *ChoreLogController) Delete(w http.ResponseWriter, r *http.Request) {
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

// ListForFamily godoc
// @Summary List the family's chore logs
// @Tags chorelog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListChoreLogsSuccessResponse "data contains the log entries"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (caller has no family)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /chorelog/family [get]
func (c *ChoreLogController) ListForFamily(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	c.writeList(w, r)(c.Service.ListForFamily(r.Context(), claims))
}

// ListForUser godoc
// @Summary List a member's chore logs
// @Description The user must belong to the caller's family.
// @Tags chorelog
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Success 200 {object} controllers.ListChoreLogsSuccessResponse "data contains the log entries"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /chorelog/user/{userID} [get]
func (c *ChoreLogController) ListForUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	userID, ok := helpers.PathID(w, r, "userID")
	if !ok {
		return
	}
	c.writeList(w, r)(c.Service.ListForUser(r.Context(), claims, userID))
}

// ListForChore godoc
// @Summary List a chore's logs
// @Description The chore must belong to the caller's family.
// @Tags chorelog
// @Produce json
// @Security BearerAuth
// @Param choreID path string true "Chore ID"
// @Success 200 {object} controllers.ListChoreLogsSuccessResponse "data contains the log entries"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /chorelog/chore/{choreID} [get]
func (c *ChoreLogController) ListForChore(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	choreID, ok := helpers.PathID(w, r, "choreID")
	if !ok {
		return
	}
	c.writeList(w, r)(c.Service.ListForChore(r.Context(), claims, choreID))
}

// ListForWeek godoc
// @Summary List the family's chore logs due in an ISO week
// @Description Without year and week the current ISO week (UTC) is used. Entries without a due date are not listed.
// @Tags chorelog
// @Produce json
// @Security BearerAuth
// @Param year query int false "ISO year"
// @Param week query int false "ISO week number (1-53)"
// @Success 200 {object} controllers.ListChoreLogsSuccessResponse "data contains the log entries"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (caller has no family)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /chorelog/family/week [get]
func (c *ChoreLogController) ListForWeek(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(w, r)
	if !ok {
		return
	}
	year, week, ok := parseISOWeek(w, r)
	if !ok {
		return
	}
	c.writeList(w, r)(c.Service.ListForWeek(r.Context(), claims, year, week))
}

// parseISOWeek reads year and week from the query string, defaulting both to the current week.
func parseISOWeek(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	q := r.URL.Query()
	ys, ws := q.Get("year"), q.Get("week")
	if ys == "" && ws == "" {
		year, week := time.Now().UTC().ISOWeek()
		return year, week, true
	}
	year, yerr := strconv.Atoi(ys)
	week, werr := strconv.Atoi(ws)
	if yerr != nil || werr != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "year and week must both be integers")
		return 0, 0, false
	}
	return year, week, true
}

// DeleteMany godoc
// @Summary Delete several chore logs
// @Description Deletes the listed log entries whose chore belongs to the caller's family. Other ids are ignored. Returns the number removed.
// @Tags chorelog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body DeleteManyRequest true "Chore log IDs"
// @Success 200 {object} controllers.DeleteManySuccessResponse "data.deleted is the number removed"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (caller has no family)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /chorelog/deletemany [post]
func (c *ChoreLogController) DeleteMany(w http.ResponseWriter, r *http.Request) {
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

func (c *ChoreLogController) writeList(w http.ResponseWriter, r *http.Request) func([]*domain.ChoreLog, error) {
	return func(entries []*domain.ChoreLog, err error) {
		if err != nil {
			helpers.WriteServiceError(w, r, c.Logger, err, nil)
			return
		}
		if entries == nil {
			entries = []*domain.ChoreLog{}
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, entries)
	}
}
