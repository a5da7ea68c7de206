package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatch/vulnwatch/internal/core"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		CatalogVersion: "2024.02.15",
		Vulnerabilities: []Entry{
			{CVEID: "CVE-2021-44228", VendorProject: "Apache", Product: "Log4j", DateAdded: "2021-12-10"},
			{CVEID: "CVE-2023-23397", VendorProject: "Microsoft", Product: "Outlook", DateAdded: "2023-03-14"},
			{CVEID: "CVE-2024-21887", VendorProject: "Ivanti", Product: "Connect Secure", DateAdded: "2024-01-10"},
			{CVEID: "CVE-2020-0601", VendorProject: "Microsoft", Product: "Windows", DateAdded: "bad-date"},
		},
	}
}

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2023-03-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 3, 14, 0, 0, 0, 0, time.UTC), parsed)

	_, err = ParseDate("14/03/2023")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = ParseDate("")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestRecentSkipsUnparseableDates(t *testing.T) {
	entries := Recent(sampleSnapshot(), 365*10)

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.CVEID)
	}
	assert.NotContains(t, ids, "CVE-2020-0601")
}

func TestInRange(t *testing.T) {
	start, _ := ParseDate("2023-01-01")
	end, _ := ParseDate("2023-12-31")

	matched, err := InRange(sampleSnapshot(), start, end)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "CVE-2023-23397", matched[0].CVEID)
}

func TestInRangeInclusiveBounds(t *testing.T) {
	start, _ := ParseDate("2021-12-10")
	end, _ := ParseDate("2021-12-10")

	matched, err := InRange(sampleSnapshot(), start, end)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "CVE-2021-44228", matched[0].CVEID)
}

func TestInRangeRejectsInvertedBounds(t *testing.T) {
	start, _ := ParseDate("2024-01-01")
	end, _ := ParseDate("2023-01-01")

	_, err := InRange(sampleSnapshot(), start, end)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestSearchByVendorCaseInsensitive(t *testing.T) {
	matched, err := Search(sampleSnapshot(), SearchFilters{Vendor: "microsoft"})
	require.NoError(t, err)
	require.Len(t, matched, 2)
}

func TestSearchCombinesFilters(t *testing.T) {
	matched, err := Search(sampleSnapshot(), SearchFilters{Vendor: "Microsoft", Product: "outlook"})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "CVE-2023-23397", matched[0].CVEID)
}

func TestSearchSortsNewestFirst(t *testing.T) {
	matched, err := Search(sampleSnapshot(), SearchFilters{Start: "2020-01-01"})
	require.NoError(t, err)
	require.Len(t, matched, 3)
	assert.Equal(t, "CVE-2024-21887", matched[0].CVEID)
	assert.Equal(t, "CVE-2023-23397", matched[1].CVEID)
	assert.Equal(t, "CVE-2021-44228", matched[2].CVEID)
}

func TestSearchRejectsBadDates(t *testing.T) {
	_, err := Search(sampleSnapshot(), SearchFilters{Start: "garbage"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestLookupCaseInsensitive(t *testing.T) {
	matches := Lookup(sampleSnapshot(), "cve-2021-44228")
	require.Len(t, matches, 1)
	assert.Equal(t, "Log4j", matches[0].Product)

	assert.Empty(t, Lookup(sampleSnapshot(), "CVE-2099-0001"))
}

func TestPaginate(t *testing.T) {
	entries := sampleSnapshot().Vulnerabilities

	page, total := Paginate(entries, 1, 2)
	assert.Equal(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "CVE-2021-44228", page[0].CVEID)

	page, total = Paginate(entries, 2, 2)
	assert.Equal(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "CVE-2024-21887", page[0].CVEID)

	page, total = Paginate(entries, 9, 2)
	assert.Equal(t, 4, total)
	assert.Empty(t, page)
}
