package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/pkg/config"
	"github.com/manoharb30/insight-lookinsight/pkg/httputil"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
	"github.com/manoharb30/insight-lookinsight/pkg/redis"
)

// SEC serves this page instead of content when it flags a client as an
// undeclared automated tool.
const trafficBlockMarker = "Undeclared Automated Tool"

// Filing forms worth scanning for distress signals.
var relevantForms = map[string]bool{
	"8-K":  true,
	"10-K": true,
	"10-Q": true,
}

// Source implements contracts.DocumentCatalog over SEC EDGAR. Filing text
// is cleaned once and cached in Redis keyed by accession number; filings
// are immutable once published, so the cache never needs invalidation.
type Source struct {
	http   *httputil.Client
	cfg    config.EDGARConfig
	cache  *redis.Cache
	logger *logger.Logger

	mu      sync.RWMutex
	filings map[string]filingLocation // accession -> archive location
}

type filingLocation struct {
	cik        string
	primaryDoc string
}

// NewSource creates the EDGAR catalog. The HTTP client must already carry
// the declared User-Agent and the shared EDGAR rate limiter; SEC blocks
// anonymous or bursty clients.
func NewSource(cfg *config.Config, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Source {
	return &Source{
		http:    httpClient,
		cfg:     cfg.EDGAR,
		cache:   cache,
		logger:  log,
		filings: make(map[string]filingLocation),
	}
}

type companyTicker struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// ResolveSubject maps a ticker to its CIK and company name using the SEC
// company-ticker directory. Hits are cached.
func (s *Source) ResolveSubject(ctx context.Context, ticker string) (contracts.SubjectContext, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return contracts.SubjectContext{}, fmt.Errorf("empty ticker")
	}

	var cached contracts.SubjectContext
	if s.cache != nil {
		if found, err := s.cache.Get(ctx, redis.CIKKey(ticker), &cached); err == nil && found {
			return cached, nil
		}
	}

	body, err := s.fetch(ctx, s.cfg.BaseURL+"/files/company_tickers.json")
	if err != nil {
		return contracts.SubjectContext{}, fmt.Errorf("fetch company tickers: %w", err)
	}

	var directory map[string]companyTicker
	if err := json.Unmarshal(body, &directory); err != nil {
		return contracts.SubjectContext{}, fmt.Errorf("decode company tickers: %w", err)
	}

	for _, entry := range directory {
		if strings.EqualFold(entry.Ticker, ticker) {
			subject := contracts.SubjectContext{
				Ticker:      ticker,
				CIK:         fmt.Sprintf("%010d", entry.CIK),
				CompanyName: entry.Title,
			}
			if s.cache != nil {
				_ = s.cache.Set(ctx, redis.CIKKey(ticker), subject, redis.TTLLong)
			}
			return subject, nil
		}
	}

	return contracts.SubjectContext{}, fmt.Errorf("ticker %s not found in EDGAR directory", ticker)
}

type submissionsResponse struct {
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// RecentFilings lists a company's relevant filings within the lookback
// window, newest first, capped at the configured maximum. The index is
// cached briefly; new filings appear on EDGAR throughout the day.
func (s *Source) RecentFilings(ctx context.Context, cik string) ([]contracts.FilingRef, error) {
	indexKey := redis.FilingIndexKey(cik, "recent")
	if s.cache != nil {
		var cached []contracts.FilingRef
		if found, err := s.cache.Get(ctx, indexKey, &cached); err == nil && found {
			s.rememberLocations(cik, cached)
			return cached, nil
		}
	}

	body, err := s.fetch(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", s.cfg.DataBaseURL, cik))
	if err != nil {
		return nil, fmt.Errorf("fetch submissions for CIK %s: %w", cik, err)
	}

	var subs submissionsResponse
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, fmt.Errorf("decode submissions for CIK %s: %w", cik, err)
	}

	cutoff := time.Now().AddDate(0, -s.cfg.LookbackMonths, 0)
	recent := subs.Filings.Recent

	var filings []contracts.FilingRef
	for i := range recent.AccessionNumber {
		if len(filings) >= s.cfg.MaxFilings {
			break
		}
		if !relevantForms[recent.Form[i]] {
			continue
		}
		filed, err := time.Parse(contracts.DateLayout, recent.FilingDate[i])
		if err != nil || filed.Before(cutoff) {
			continue
		}

		ref := contracts.FilingRef{
			Accession:  recent.AccessionNumber[i],
			FilingType: recent.Form[i],
			FilingDate: recent.FilingDate[i],
			PrimaryDoc: recent.PrimaryDocument[i],
		}
		filings = append(filings, ref)
	}
	s.rememberLocations(cik, filings)

	if s.cache != nil {
		_ = s.cache.Set(ctx, indexKey, filings, redis.TTLMedium)
	}

	s.logger.WithFields(map[string]interface{}{
		"cik":     cik,
		"filings": len(filings),
	}).Debug("Listed recent filings")

	return filings, nil
}

// rememberLocations records where each filing's primary document lives,
// so GetSourceText can build archive URLs for cached indexes too.
func (s *Source) rememberLocations(cik string, filings []contracts.FilingRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ref := range filings {
		s.filings[ref.Accession] = filingLocation{cik: cik, primaryDoc: ref.PrimaryDoc}
	}
}

// GetSourceText downloads and cleans the filing's primary document. The
// accession must have been seen by RecentFilings in this process, or be
// present in the cache from an earlier run.
func (s *Source) GetSourceText(ctx context.Context, documentID string) (string, error) {
	var cached string
	if s.cache != nil {
		if found, err := s.cache.Get(ctx, redis.FilingTextKey(documentID), &cached); err == nil && found {
			return cached, nil
		}
	}

	s.mu.RLock()
	loc, ok := s.filings[documentID]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown accession %s: not listed in this session", documentID)
	}

	url := fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s",
		s.cfg.BaseURL,
		strings.TrimLeft(loc.cik, "0"),
		strings.ReplaceAll(documentID, "-", ""),
		loc.primaryDoc,
	)

	body, err := s.fetch(ctx, url)
	if err != nil {
		return "", fmt.Errorf("download filing %s: %w", documentID, err)
	}

	text := CleanFilingHTML(string(body))
	if text == "" {
		return "", fmt.Errorf("filing %s produced no text", documentID)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, redis.FilingTextKey(documentID), text, s.cfg.CacheTTL)
	}

	return text, nil
}

// fetch performs a GET and guards against the SEC traffic-block page.
func (s *Source) fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := s.http.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("edgar status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if strings.Contains(string(body), trafficBlockMarker) {
		return nil, fmt.Errorf("sec traffic detection triggered, slow down requests")
	}

	return body, nil
}
