package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"expensetracker/internal/core"
)

const maxBodyBytes = 64 << 10

var errMissingOwner = errors.New("missing " + HeaderOwner + " header")

// ListParams are the list query options: ?sort=amount:desc&min=10&max=&category=Food.
// Filter is set when any of min, max or category appears in the query.
type ListParams struct {
	Sort       *core.SortOrder
	MinText    string
	MaxText    string
	Categories []string
	Filter     bool
}

func ParseListParams(q url.Values) (ListParams, error) {
	p := ListParams{
		MinText:    q.Get("min"),
		MaxText:    q.Get("max"),
		Categories: splitCategories(q["category"]),
	}
	_, hasMin := q["min"]
	_, hasMax := q["max"]
	p.Filter = hasMin || hasMax || len(p.Categories) > 0

	if s := q.Get("sort"); s != "" {
		order, err := core.ParseSortOrder(s)
		if err != nil {
			return ListParams{}, err
		}
		p.Sort = &order
	}
	return p, nil
}

// splitCategories accepts repeated parameters and comma lists.
func splitCategories(values []string) []string {
	var out []string
	for _, v := range values {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, c)
			}
		}
	}
	return out
}

func ownerFrom(r *http.Request) (string, error) {
	owner := strings.TrimSpace(r.Header.Get(HeaderOwner))
	if owner == "" {
		return "", errMissingOwner
	}
	return owner, nil
}

func decodeNewExpense(w http.ResponseWriter, r *http.Request) (core.NewExpense, error) {
	var e core.NewExpense
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		return core.NewExpense{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return core.NewExpense{}, errors.New("invalid JSON body: trailing data")
	}
	return e, nil
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrEmptyName, core.ErrNameTooLong, core.ErrInvalidDate,
		core.ErrInvalidAmount, core.ErrEmptyCategory, core.ErrEmptyOwner,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
