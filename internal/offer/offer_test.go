package offer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTable = `ID        CUDA  N  Model     PCIE  cpu_ghz  vCPUs  RAM   Disk  $/hr    DLP    score  Driver     Net_up  Net_down  R     Max_Days  mach_id  status    host_id  ports  country
4510117   12.2  1x RTX_3090  24.6  3.5      16.0   64.0  500   0.2134  35.5   166.4  535.54.03  712.3   812.1     99.7  30.0      12345    verified  1001     100    Sweden, SE
4511120   12.4  1x RTX_3090  12.1  4.0      8.0    32.0  200   0.3120  33.1   106.1  550.90.07  94.4    301.2     99.5  7.2       22222    verified  1002     50     United States, US
`

func TestParseTable(t *testing.T) {
	offers, err := ParseTable(sampleTable)
	require.NoError(t, err)
	require.Len(t, offers, 2)

	assert.Equal(t, "4510117", offers[0].ID())
	assert.Equal(t, "RTX_3090", offers[0].GPUName())
	assert.Equal(t, "1x", offers[0].Get("N"))
	// The last column keeps its inner whitespace.
	assert.Equal(t, "Sweden, SE", offers[0].Get("country"))
	assert.Equal(t, "United States, US", offers[1].Get("country"))

	price, err := offers[1].PricePerHour()
	require.NoError(t, err)
	assert.InDelta(t, 0.3120, price, 1e-9)
	assert.Equal(t, "ID", offers[0].Columns[0])
}

func TestParseTableEmpty(t *testing.T) {
	for _, in := range []string{"", "\n\n", "   "} {
		offers, err := ParseTable(in)
		assert.NoError(t, err)
		assert.Empty(t, offers)
	}
}

func TestParseTableHeaderOnly(t *testing.T) {
	offers, err := ParseTable("ID  $/hr  Model\n")
	assert.NoError(t, err)
	assert.Empty(t, offers)
}

func TestParseTableShortRow(t *testing.T) {
	_, err := ParseTable("ID  $/hr  Model\n1  0.5  RTX_3090\n2  0.6\n")
	require.Error(t, err)

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 3, rowErr.Line)
	assert.Equal(t, 3, rowErr.Want)
	assert.Equal(t, 2, rowErr.Got)
}

func TestSplitN(t *testing.T) {
	tests := []struct {
		line string
		n    int
		want []string
	}{
		{"a b c", 3, []string{"a", "b", "c"}},
		{"a   b\tc d e", 3, []string{"a", "b", "c d e"}},
		{"a b c", 1, []string{"a b c"}},
		{"a", 3, []string{"a"}},
		{"", 2, nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitN(tt.line, tt.n), "splitN(%q, %d)", tt.line, tt.n)
	}
}

func offerWithPrice(id, price string) Offer {
	return Offer{
		Columns: []string{ColumnID, ColumnPrice},
		Fields:  map[string]string{ColumnID: id, ColumnPrice: price},
	}
}

func TestFilterByMaxPrice(t *testing.T) {
	offers := []Offer{
		offerWithPrice("a", "0.8"),
		offerWithPrice("b", "1.2"),
		offerWithPrice("c", "1.0"),
		offerWithPrice("d", "0.1"),
	}
	got, err := FilterByMaxPrice(offers, 1.0)
	require.NoError(t, err)

	var ids []string
	for _, o := range got {
		ids = append(ids, o.ID())
		price, err := o.PricePerHour()
		require.NoError(t, err)
		assert.LessOrEqual(t, price, 1.0)
	}
	// Relative order of the input survives.
	assert.Equal(t, []string{"a", "c", "d"}, ids)
}

func TestFilterByMaxPriceNothingEligible(t *testing.T) {
	got, err := FilterByMaxPrice([]Offer{offerWithPrice("a", "3.0")}, 1.0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilterByMaxPriceBadPrice(t *testing.T) {
	offers := []Offer{offerWithPrice("a", "0.8"), offerWithPrice("b", "n/a")}
	_, err := FilterByMaxPrice(offers, 1.0)
	require.Error(t, err)

	var priceErr *PriceError
	require.True(t, errors.As(err, &priceErr))
	assert.Equal(t, "b", priceErr.OfferID)
	assert.Equal(t, "n/a", priceErr.Value)
}

func TestPricePerHourMissingColumn(t *testing.T) {
	o := Offer{Fields: map[string]string{ColumnID: "x"}}
	_, err := o.PricePerHour()
	assert.Error(t, err)
}

func TestCriteriaValidate(t *testing.T) {
	assert.NoError(t, DefaultCriteria().Validate())

	bad := []func(*Criteria){
		func(c *Criteria) { c.GPUName = "" },
		func(c *Criteria) { c.MinReliability = 1.5 },
		func(c *Criteria) { c.MinReliability = -0.1 },
		func(c *Criteria) { c.NumGPUs = 0 },
		func(c *Criteria) { c.MinRAMGB = -1 },
		func(c *Criteria) { c.MaxUSDPerHour = -2 },
	}
	for i, mutate := range bad {
		c := DefaultCriteria()
		mutate(&c)
		assert.Error(t, c.Validate(), "case %d", i)
	}
}
