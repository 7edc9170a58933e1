package charge

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emr/emr/internal/domain/pricing"
)

// Category groups charges by the department that performs them.
type Category string

const (
	CategoryLab          Category = "lab"
	CategoryNursing      Category = "nursing"
	CategoryRadiology    Category = "radiology"
	CategoryDrug         Category = "drug"
	CategoryConsultation Category = "consultation"
	CategoryWard         Category = "ward"
	CategoryOther        Category = "other"
)

var Categories = []Category{
	CategoryLab, CategoryNursing, CategoryRadiology, CategoryDrug,
	CategoryConsultation, CategoryWard, CategoryOther,
}

func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown charge category %q", s)
}

// Charge is a billable catalog item with one fee per provider tier.
type Charge struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name" validate:"required,notblank,max=255"`
	Category    Category  `json:"category" validate:"required"`
	Description *string   `json:"description,omitempty"`
	pricing.FeeSchedule
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Charge) Fees() pricing.FeeSchedule { return c.FeeSchedule }
func (c *Charge) Qty() int                  { return 1 }

type ListFilter struct {
	Category Category
	Active   *bool
	Query    string
}
