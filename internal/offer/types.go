package offer

import (
	"fmt"
	"strconv"
)

// Column names the marketplace uses in its offer table.
const (
	ColumnID    = "ID"
	ColumnPrice = "$/hr"
	ColumnGPU   = "Model"
)

// Criteria describes what a caller is willing to rent.
type Criteria struct {
	GPUName        string
	MinReliability float64
	NumGPUs        int
	MinRAMGB       int
	MaxUSDPerHour  float64
}

func DefaultCriteria() Criteria {
	return Criteria{
		GPUName:        "RTX_3090",
		MinReliability: 0.99,
		NumGPUs:        1,
		MinRAMGB:       8,
		MaxUSDPerHour:  1.0,
	}
}

func (c Criteria) Validate() error {
	if c.GPUName == "" {
		return fmt.Errorf("gpu name is required")
	}
	if c.MinReliability < 0 || c.MinReliability > 1 {
		return fmt.Errorf("reliability %v out of range [0, 1]", c.MinReliability)
	}
	if c.NumGPUs < 1 {
		return fmt.Errorf("gpu count must be at least 1, got %d", c.NumGPUs)
	}
	if c.MinRAMGB < 0 {
		return fmt.Errorf("minimum RAM must not be negative, got %d", c.MinRAMGB)
	}
	if c.MaxUSDPerHour < 0 {
		return fmt.Errorf("maximum price must not be negative, got %v", c.MaxUSDPerHour)
	}
	return nil
}

// Offer is one row of a marketplace search. Columns keeps the header
// order so the row can be printed back the way it arrived.
type Offer struct {
	Columns []string
	Fields  map[string]string
}

func (o Offer) Get(column string) string {
	return o.Fields[column]
}

func (o Offer) ID() string {
	return o.Fields[ColumnID]
}

func (o Offer) GPUName() string {
	return o.Fields[ColumnGPU]
}

// PricePerHour parses the $/hr column.
func (o Offer) PricePerHour() (float64, error) {
	raw, ok := o.Fields[ColumnPrice]
	if !ok {
		return 0, &PriceError{OfferID: o.ID(), Value: "", Err: fmt.Errorf("no %q column", ColumnPrice)}
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &PriceError{OfferID: o.ID(), Value: raw, Err: err}
	}
	return price, nil
}

// Handle identifies a launched instance. It is opaque to this package.
type Handle string

func (h Handle) String() string {
	return string(h)
}

// DestroyResult is the outcome of a destroy request. Reason is empty
// when OK is true.
type DestroyResult struct {
	OK     bool
	Reason string
}

// SearchResult carries the parsed offers of one query together with any
// diagnostic lines the marketplace printed alongside them.
type SearchResult struct {
	Offers      []Offer
	Diagnostics []string
}
