package offer

// FilterByMaxPrice keeps offers priced at or below maxPrice, in input
// order. A row with an unparseable price aborts the whole filter.
func FilterByMaxPrice(offers []Offer, maxPrice float64) ([]Offer, error) {
	var filtered []Offer
	for _, o := range offers {
		price, err := o.PricePerHour()
		if err != nil {
			return nil, err
		}
		if price <= maxPrice {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}
