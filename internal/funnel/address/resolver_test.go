// internal/funnel/address/resolver_test.go
package address

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energylab-funnel/internal/common/errors"
	"energylab-funnel/internal/common/logger"
)

func newTestResolver(t *testing.T, baseURL string) *Resolver {
	t.Helper()
	return NewResolver(Config{BaseURL: baseURL, Timeout: 2 * time.Second}, logger.NewTestLogger(t))
}

func TestIsPostcodeValid(t *testing.T) {
	valid := []string{"SW1A 1AA", "sw1a1aa", "M1 1AE", "B33 8TH", "CR2 6XH", "DN55 1PT", " EC1A 1BB "}
	for _, pc := range valid {
		assert.True(t, IsPostcodeValid(pc), "expected %q to be valid", pc)
	}

	invalid := []string{"", "1234", "SW1A", "SW1A 1AAA", "ABC 123", "12A 3BC"}
	for _, pc := range invalid {
		assert.False(t, IsPostcodeValid(pc), "expected %q to be invalid", pc)
	}
}

func TestResolveInvalidPostcodeFailsFast(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	resolver := newTestResolver(t, server.URL)
	_, err := resolver.Resolve(context.Background(), "1234")

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodePostcodeInvalid, stdErr.Code)
	assert.False(t, called, "invalid postcode must not reach the lookup service")
}

func TestResolveMapsPositionalColumns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/addresses/SW1A1AA", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"addresses": [
				{
					"Column 0": "SW1A 1AA",
					"Column1": "London",
					"Column 2": "Westminster",
					"Column2": "Greater London",
					"Column4": "High St",
					"Column6": "7",
					"Column7": "Rose Court",
					"Column8": "2",
					"Column 12": "100023336956"
				}
			]
		}`))
	}))
	defer server.Close()

	resolver := newTestResolver(t, server.URL)
	candidates, err := resolver.Resolve(context.Background(), "SW1A 1AA")

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	got := candidates[0]
	assert.Equal(t, "Rose Court", got.HouseName)
	assert.Equal(t, "7", got.HouseNumber)
	assert.Equal(t, "2", got.FlatNumber)
	assert.Equal(t, "High St", got.Street)
	assert.Equal(t, "Westminster", got.Locality)
	assert.Equal(t, "Greater London", got.County)
	assert.Equal(t, "London", got.Town)
	assert.Equal(t, "SW1A 1AA", got.Postcode)
	assert.Equal(t, "100023336956", got.UPRN)
}

func TestResolveSortsNumberedThenNamed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"addresses": [
				{"Column6": "12", "Column4": "High St"},
				{"Column6": "4", "Column4": "High St"},
				{"Column7": "Oak House", "Column4": "High St"},
				{"Column6": "7", "Column4": "High St"}
			]
		}`))
	}))
	defer server.Close()

	resolver := newTestResolver(t, server.URL)
	candidates, err := resolver.Resolve(context.Background(), "SW1A 1AA")

	require.NoError(t, err)
	require.Len(t, candidates, 4)
	assert.Equal(t, "4", candidates[0].HouseNumber)
	assert.Equal(t, "7", candidates[1].HouseNumber)
	assert.Equal(t, "12", candidates[2].HouseNumber)
	assert.Equal(t, "Oak House", candidates[3].HouseName)
}

func TestResolveSortsSuffixedHouseNumbersNumerically(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"addresses": [
				{"Column6": "12a", "Column4": "High St"},
				{"Column6": "4", "Column4": "High St"},
				{"Column7": "Oak House", "Column4": "High St"}
			]
		}`))
	}))
	defer server.Close()

	resolver := newTestResolver(t, server.URL)
	candidates, err := resolver.Resolve(context.Background(), "SW1A 1AA")

	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, "4", candidates[0].HouseNumber)
	assert.Equal(t, "12a", candidates[1].HouseNumber, "suffixed numbers sort by their numeric prefix")
	assert.Equal(t, "Oak House", candidates[2].HouseName)
}

func TestParseHouseNumber(t *testing.T) {
	cases := []struct {
		in string
		n  int
		ok bool
	}{
		{"12", 12, true},
		{"12a", 12, true},
		{" 7 ", 7, true},
		{"Oak House", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		n, ok := parseHouseNumber(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.n, n, "input %q", tc.in)
	}
}

func TestClassifyLookupFailure(t *testing.T) {
	timeoutErr := fmt.Errorf("calling lookup service: %w", &net.DNSError{Err: "lookup timeout", IsTimeout: true})
	assert.Equal(t, errors.ErrCodeAddressLookupTimeout, classifyLookupFailure(timeoutErr).Code)

	plainErr := fmt.Errorf("lookup service returned status 502")
	assert.Equal(t, errors.ErrCodeAddressLookupFailed, classifyLookupFailure(plainErr).Code)
}

func TestResolveEmptyResultIsNoAddressesFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "addresses": []}`))
	}))
	defer server.Close()

	resolver := newTestResolver(t, server.URL)
	_, err := resolver.Resolve(context.Background(), "SW1A 1AA")

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeNoAddressesFound, stdErr.Code)
}

func TestResolveFallsBackToPlaceholders(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"http 500": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"success false": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success": false, "addresses": []}`))
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			resolver := newTestResolver(t, server.URL)
			candidates, err := resolver.Resolve(context.Background(), "SW1A 1AA")

			require.NoError(t, err)
			require.Len(t, candidates, 3)
			assert.Equal(t, "Ashley House", candidates[0].HouseName)
			assert.Equal(t, "456", candidates[1].HouseNumber)
			assert.Equal(t, "The Old Mill", candidates[2].HouseName)
			for _, c := range candidates {
				assert.Equal(t, "SW1A 1AA", c.Postcode)
			}
		})
	}
}

func TestResolveFallsBackWhenUnreachable(t *testing.T) {
	resolver := newTestResolver(t, "http://127.0.0.1:1")
	candidates, err := resolver.Resolve(context.Background(), "SW1A 1AA")

	require.NoError(t, err)
	assert.Len(t, candidates, 3)
}

func TestBuildLines(t *testing.T) {
	tests := []struct {
		name        string
		flat        string
		houseName   string
		houseNumber string
		street      string
		wantLine1   string
		wantLine2   string
	}{
		{
			name:      "flat and house name",
			flat:      "2",
			houseName: "Rose Court",
			street:    "High St",
			wantLine1: "2 Rose Court",
			wantLine2: "High St",
		},
		{
			name:        "flat and house name with house number",
			flat:        "2",
			houseName:   "Rose Court",
			houseNumber: "7",
			street:      "High St",
			wantLine1:   "2 Rose Court",
			wantLine2:   "7 High St",
		},
		{
			name:      "house name only",
			houseName: "Oak House",
			street:    "High St",
			wantLine1: "Oak House",
			wantLine2: "High St",
		},
		{
			name:        "house number only",
			houseNumber: "12",
			street:      "High St",
			wantLine1:   "12 High St",
			wantLine2:   "",
		},
		{
			name:      "street only",
			street:    "High St",
			wantLine1: "High St",
			wantLine2: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildLines(tt.flat, tt.houseName, tt.houseNumber, tt.street)
			assert.Equal(t, tt.wantLine1, got.Line1)
			assert.Equal(t, tt.wantLine2, got.Line2)
		})
	}
}

func TestFormatDisplaySkipsEmptyFields(t *testing.T) {
	c := Candidate{
		HouseName:  "Rose Court",
		FlatNumber: "2",
		Street:     "High St",
		Town:       "London",
		Postcode:   "SW1A 1AA",
	}
	assert.Equal(t, "Rose Court, 2, High St, London, SW1A 1AA", c.FormatDisplay())
}
