package offer

import "fmt"

// RowError reports a table row that does not line up with the header.
type RowError struct {
	Line    int
	Want    int
	Got     int
	Content string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("offer table line %d: want %d fields, got %d: %q", e.Line, e.Want, e.Got, e.Content)
}

// PriceError reports an offer whose $/hr column is not a number.
type PriceError struct {
	OfferID string
	Value   string
	Err     error
}

func (e *PriceError) Error() string {
	return fmt.Sprintf("offer %s: bad price %q: %v", e.OfferID, e.Value, e.Err)
}

func (e *PriceError) Unwrap() error {
	return e.Err
}
