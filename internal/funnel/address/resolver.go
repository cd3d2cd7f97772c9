// internal/funnel/address/resolver.go
package address

import (
	"context"
	"encoding/json"
	errs "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"energylab-funnel/internal/common/errors"
	"energylab-funnel/internal/common/httpclient"
	"energylab-funnel/internal/common/logger"
)

// postcodePattern is the UK postcode shape accepted by the funnel. The
// pattern is contractual with the lookup provider and must not be loosened.
var postcodePattern = regexp.MustCompile(`^[A-Za-z]{1,2}\d[A-Za-z\d]? ?\d[A-Za-z]{2}$`)

// IsPostcodeValid reports whether the trimmed input matches the accepted
// UK postcode shape.
func IsPostcodeValid(postcode string) bool {
	return postcodePattern.MatchString(strings.TrimSpace(postcode))
}

// Config holds the address lookup client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Resolver looks up candidate addresses for a postcode and normalizes the
// provider's positional response. When the provider is unreachable it
// degrades to a fixed placeholder list so the funnel can continue.
type Resolver struct {
	cfg    Config
	client *httpclient.Client
	logger logger.Logger
}

// NewResolver creates an address resolver.
func NewResolver(cfg Config, log logger.Logger) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Resolver{
		cfg:    cfg,
		client: httpclient.New(cfg.Timeout),
		logger: log,
	}
}

// Resolve validates the postcode, queries the lookup provider, and returns
// sorted candidates. An invalid postcode fails fast without any network
// call. Provider failures degrade to placeholder candidates rather than
// erroring; an empty result set returns ErrNoAddressesFound.
func (r *Resolver) Resolve(ctx context.Context, postcode string) ([]Candidate, error) {
	trimmed := strings.TrimSpace(postcode)
	if !IsPostcodeValid(trimmed) {
		return nil, errors.NewPostcodeInvalidError(postcode)
	}

	compact := strings.ReplaceAll(trimmed, " ", "")
	endpoint := fmt.Sprintf("%s/api/addresses/%s", strings.TrimRight(r.cfg.BaseURL, "/"), url.PathEscape(compact))

	resp, err := r.fetch(ctx, endpoint)
	if err != nil {
		degraded := classifyLookupFailure(err)
		r.logger.Warn("Address lookup failed, serving placeholder addresses", map[string]interface{}{
			"postcode": trimmed,
			"code":     string(degraded.Code),
			"error":    degraded.Details,
		})
		return placeholderCandidates(trimmed), nil
	}

	if len(resp.Addresses) == 0 {
		return nil, errors.NewNoAddressesFoundError(trimmed)
	}

	candidates := adaptCandidates(resp.Addresses)
	sortCandidates(candidates)

	r.logger.Debug("Address lookup succeeded", map[string]interface{}{
		"postcode": trimmed,
		"count":    len(candidates),
	})
	return candidates, nil
}

func (r *Resolver) fetch(ctx context.Context, endpoint string) (*lookupResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling lookup service: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup service returned status %d", httpResp.StatusCode)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading lookup response: %w", err)
	}

	var parsed lookupResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing lookup response: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("lookup service reported failure")
	}
	return &parsed, nil
}

// classifyLookupFailure distinguishes provider timeouts from other lookup
// failures for diagnostics. Both degrade to the placeholder list.
func classifyLookupFailure(err error) *errors.StandardError {
	var ne net.Error
	if errs.As(err, &ne) && ne.Timeout() {
		return errors.NewAddressLookupTimeoutError(err)
	}
	return errors.NewAddressLookupFailedError(err)
}

// sortCandidates orders numbered addresses ascending by house number, then
// unnumbered ones lexicographically by house name.
func sortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		ni, okI := parseHouseNumber(cs[i].HouseNumber)
		nj, okJ := parseHouseNumber(cs[j].HouseNumber)
		switch {
		case okI && okJ:
			return ni < nj
		case okI:
			return true
		case okJ:
			return false
		default:
			return cs[i].HouseName < cs[j].HouseName
		}
	})
}

// parseHouseNumber reads the leading digits so suffixed numbers like "12a"
// still sort numerically.
func parseHouseNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// placeholderCandidates is the degraded-mode address list. The entries are
// fixed apart from the caller's postcode so the rest of the funnel can be
// exercised when the lookup provider is down.
func placeholderCandidates(postcode string) []Candidate {
	return []Candidate{
		{
			HouseName:   "Ashley House",
			HouseNumber: "123",
			Street:      "Main Street",
			Town:        "London",
			Postcode:    postcode,
			UPRN:        "123456789",
		},
		{
			HouseNumber: "456",
			Street:      "Oak Avenue",
			Town:        "London",
			Postcode:    postcode,
			UPRN:        "987654321",
		},
		{
			HouseName: "The Old Mill",
			Street:    "High Street",
			Town:      "London",
			Postcode:  postcode,
			UPRN:      "555666777",
		},
	}
}
