package http

import (
	"errors"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/gateway"
	"expensetracker/internal/log"
	"expensetracker/internal/observable"
	"expensetracker/internal/viewstate"
)

// handleListExpenses runs one list view: load, then filter, then sort, in the
// order a user would apply them.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	params, err := ParseListParams(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	c := viewstate.NewListController(s.gw, owner, s.viewOptions(ctx)...)
	defer c.Close()

	if err := c.Reload(ctx); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to load expenses",
			log.FieldOwnerID, owner,
			log.FieldError, err)
		writeError(w, r, http.StatusBadGateway, lastError(c.Errors(), err))
		return
	}
	if params.Filter {
		c.ApplyFilter(params.MinText, params.MaxText, params.Categories)
	}
	resp := listResponse{}
	if params.Sort != nil {
		c.ApplySort(*params.Sort)
		resp.Sort = params.Sort.String()
	}

	items, _ := c.Expenses().Get()
	resp.Items = nonNil(items)
	resp.Count = len(resp.Items)
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	e, err := decodeNewExpense(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.gw.Create(ctx, owner, e)
	switch {
	case err == nil:
	case isValidationError(err):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	default:
		log.FromContext(ctx).ErrorContext(ctx, "Failed to create expense",
			log.FieldOwnerID, owner,
			log.FieldError, err)
		writeError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Location", "/api/expenses/"+id)
	writeJSON(w, r, http.StatusCreated, createResponse{ID: id})
}

// handleDeleteExpense deletes through a list view so the response carries the
// reloaded collection.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id := r.PathValue("id")

	c := viewstate.NewListController(s.gw, owner, s.viewOptions(ctx)...)
	defer c.Close()

	if err := c.Delete(ctx, core.Expense{ID: id, OwnerID: owner}); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, gateway.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, r, status, lastError(c.Errors(), err))
		return
	}

	items, _ := c.Expenses().Get()
	items = nonNil(items)
	writeJSON(w, r, http.StatusOK, listResponse{Items: items, Count: len(items)})
}

// lastError prefers the message the controller published for the user.
func lastError(errs *observable.Value[string], err error) string {
	if msg, ok := errs.Get(); ok && msg != "" {
		return msg
	}
	return err.Error()
}
