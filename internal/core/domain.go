package core

import (
	"errors"
	"math"
	"strings"
)

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Shopping      Category = "Shopping"
	Entertainment Category = "Entertainment"
	Health        Category = "Health"
	Bills         Category = "Bills"
	Other         Category = "Other"

	// Uncategorized labels records without a category in category totals only.
	Uncategorized = "Uncategorized"
)

type (
	Category string

	// Expense is a single spending entry as delivered by the gateway.
	// Date keeps the raw d/M/yyyy text so malformed values survive the round trip.
	Expense struct {
		ID           string  `json:"id"`
		OwnerID      string  `json:"owner_id"`
		Name         string  `json:"name"`
		Date         string  `json:"date"`
		Amount       float64 `json:"amount"`
		Category     string  `json:"category"`
		CategoryIcon string  `json:"category_icon,omitempty"`
	}

	// NewExpense is an expense before the gateway has assigned an ID.
	NewExpense struct {
		Name         string  `json:"name"`
		Date         string  `json:"date"`
		Amount       float64 `json:"amount"`
		Category     string  `json:"category"`
		CategoryIcon string  `json:"category_icon,omitempty"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyCategory   = errors.New("empty category")
	ErrEmptyOwner      = errors.New("empty owner")
	ErrNameTooLong     = errors.New("name too long (max 200 characters)")
	ErrUnknownCategory = errors.New("unknown category")
	ErrNotFound        = errors.New("expense not found")
)

// Categories lists the selectable categories in display order.
var Categories = []Category{Food, Transport, Shopping, Entertainment, Health, Bills, Other}

var categoryIcons = map[Category]string{
	Food:          "ic_food",
	Transport:     "ic_transport",
	Shopping:      "ic_shopping",
	Entertainment: "ic_entertainment",
	Health:        "ic_health",
	Bills:         "ic_bills",
	Other:         "ic_other",
}

// IconFor returns the icon reference for a known category, or "" otherwise.
func IconFor(c Category) string {
	return categoryIcons[c]
}

// IsKnown reports whether c belongs to the fixed category set.
func (c Category) IsKnown() bool {
	_, ok := categoryIcons[c]
	return ok
}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

// Validate checks what the entry form used to check before saving.
func (e NewExpense) Validate() error {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return ErrNameTooLong
	}
	if _, err := ParseDate(e.Date); err != nil {
		return err
	}
	if e.Amount < 0 || math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// WithID binds a pending expense to its gateway-assigned identity.
func (e NewExpense) WithID(id, ownerID string) Expense {
	icon := e.CategoryIcon
	if icon == "" {
		icon = IconFor(Category(e.Category))
	}
	return Expense{
		ID:           id,
		OwnerID:      ownerID,
		Name:         strings.TrimSpace(e.Name),
		Date:         strings.TrimSpace(e.Date),
		Amount:       e.Amount,
		Category:     strings.TrimSpace(e.Category),
		CategoryIcon: icon,
	}
}
