package report

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/emr/emr/internal/domain/pricing"
)

type Dimension string

const (
	DimDiagnosis  Dimension = "diagnosis"
	DimMedication Dimension = "medication"
	DimLab        Dimension = "lab"
	DimRadiology  Dimension = "radiology"
	DimDepartment Dimension = "department"
)

func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(strings.ToLower(strings.TrimSpace(s))); d {
	case DimDiagnosis, DimMedication, DimLab, DimRadiology, DimDepartment:
		return d, nil
	}
	return "", ErrInvalidDimension.Withf("unknown dimension %q", s)
}

// Unspecified groups records that carry no value for the dimension.
const Unspecified = "Unspecified"

// Record is one billable or clinical fact fed to Categorize. Name is the
// diagnosis, drug or charge name; Department is the charge category or, for
// diagnoses, the encounter type.
type Record struct {
	EncounterID uuid.UUID `json:"encounter_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	PatientName string    `json:"patient_name,omitempty"`
	Date        string    `json:"date"`
	Department  string    `json:"department"`
	Name        string    `json:"name"`
	Quantity    int       `json:"quantity"`
	Amount      float64   `json:"amount"`
}

type Category struct {
	Name       string   `json:"name"`
	Count      int      `json:"count"`
	Revenue    float64  `json:"revenue"`
	Percentage float64  `json:"percentage"`
	Records    []Record `json:"records"`
}

func key(d Dimension, r Record) string {
	v := r.Name
	if d == DimDepartment {
		v = r.Department
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return Unspecified
	}
	return v
}

// Categorize groups records by the dimension's key, case-insensitively.
// Percentage is the category's share of total revenue rounded to one
// decimal, and 0 for every category when total revenue is 0. Categories are
// ordered by revenue, then count, both descending, then by name.
func Categorize(records []Record, d Dimension) []Category {
	index := make(map[string]int)
	out := make([]Category, 0)
	var total float64

	for _, r := range records {
		name := key(d, r)
		k := strings.ToLower(name)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Category{Name: name})
		}
		out[i].Count++
		out[i].Revenue += r.Amount
		out[i].Records = append(out[i].Records, r)
		total += r.Amount
	}

	for i := range out {
		out[i].Revenue = pricing.Round2(out[i].Revenue)
		if total > 0 {
			out[i].Percentage = pricing.Round1(out[i].Revenue / total * 100)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	return out
}

// Report is a categorized view over a date range.
type Report struct {
	Title      string     `json:"title"`
	Dimension  Dimension  `json:"dimension,omitempty"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	Count      int        `json:"count"`
	Revenue    float64    `json:"revenue"`
	Categories []Category `json:"categories"`
}

func build(title string, d Dimension, from, to string, records []Record) *Report {
	r := &Report{
		Title:      title,
		Dimension:  d,
		From:       from,
		To:         to,
		Categories: Categorize(records, d),
	}
	for _, c := range r.Categories {
		r.Count += c.Count
		r.Revenue += c.Revenue
	}
	r.Revenue = pricing.Round2(r.Revenue)
	return r
}
