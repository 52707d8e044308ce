package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/pkg/config"
	"github.com/manoharb30/insight-lookinsight/pkg/httputil"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

const filingHTML = `<html><head><style>p{color:red}</style></head><body>
<p>Item 5.02. Departure of Directors or Certain Officers.</p>
<p>On March 1, 2024, John Alden notified the board of directors of his decision
to resign as chief executive officer of the company, effective immediately.</p>
<p>Item 8.01. Other Events.</p>
<p>The company also announced a workforce reduction affecting approximately 25%
of its employees across all business units.</p>
<script>var x = 1;</script>
</body></html>`

func newTestSource(t *testing.T, server *httptest.Server) *Source {
	t.Helper()
	cfg := &config.Config{
		Env:      "test",
		LogLevel: "error",
		EDGAR: config.EDGARConfig{
			BaseURL:        server.URL,
			DataBaseURL:    server.URL,
			UserAgent:      "radar test@example.com",
			MaxFilings:     10,
			LookbackMonths: 24,
			CacheTTL:       time.Hour,
		},
	}
	log := logger.Discard()
	client := httputil.New(cfg, log).DisableRetry().WithHeader("User-Agent", cfg.EDGAR.UserAgent)
	return NewSource(cfg, client, nil, log)
}

func edgarHandler(t *testing.T, recentDate, oldDate string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/company_tickers.json":
			json.NewEncoder(w).Encode(map[string]companyTicker{
				"0": {CIK: 320193, Ticker: "AAPL", Title: "Apple Inc."},
				"1": {CIK: 1234567, Ticker: "ACME", Title: "Acme Corp"},
			})
		case "/submissions/CIK0001234567.json":
			fmt.Fprintf(w, `{"filings":{"recent":{
				"accessionNumber":["0001234567-24-000001","0001234567-24-000002","0001234567-22-000003","0001234567-24-000004"],
				"form":["8-K","DEF 14A","8-K","10-K"],
				"filingDate":[%q,%q,%q,%q],
				"primaryDocument":["d8k.htm","proxy.htm","old8k.htm","d10k.htm"]
			}}}`, recentDate, recentDate, oldDate, recentDate)
		case "/Archives/edgar/data/1234567/000123456724000001/d8k.htm":
			fmt.Fprint(w, filingHTML)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestResolveSubject(t *testing.T) {
	server := httptest.NewServer(edgarHandler(t, "2024-03-01", "2022-01-01"))
	defer server.Close()
	s := newTestSource(t, server)

	subject, err := s.ResolveSubject(context.Background(), "acme")

	require.NoError(t, err)
	assert.Equal(t, "ACME", subject.Ticker)
	assert.Equal(t, "0001234567", subject.CIK)
	assert.Equal(t, "Acme Corp", subject.CompanyName)
}

func TestResolveSubject_Unknown(t *testing.T) {
	server := httptest.NewServer(edgarHandler(t, "2024-03-01", "2022-01-01"))
	defer server.Close()
	s := newTestSource(t, server)

	_, err := s.ResolveSubject(context.Background(), "ZZZZ")
	assert.Error(t, err)
}

func TestRecentFilings_FiltersFormsAndAge(t *testing.T) {
	recent := time.Now().AddDate(0, -1, 0).Format(contracts.DateLayout)
	old := time.Now().AddDate(0, -30, 0).Format(contracts.DateLayout)

	server := httptest.NewServer(edgarHandler(t, recent, old))
	defer server.Close()
	s := newTestSource(t, server)

	filings, err := s.RecentFilings(context.Background(), "0001234567")

	require.NoError(t, err)
	// The proxy statement and the filing outside the lookback are skipped.
	require.Len(t, filings, 2)
	assert.Equal(t, "0001234567-24-000001", filings[0].Accession)
	assert.Equal(t, "8-K", filings[0].FilingType)
	assert.Equal(t, "10-K", filings[1].FilingType)
}

func TestGetSourceText(t *testing.T) {
	recent := time.Now().AddDate(0, -1, 0).Format(contracts.DateLayout)
	server := httptest.NewServer(edgarHandler(t, recent, "2022-01-01"))
	defer server.Close()
	s := newTestSource(t, server)

	_, err := s.RecentFilings(context.Background(), "0001234567")
	require.NoError(t, err)

	text, err := s.GetSourceText(context.Background(), "0001234567-24-000001")

	require.NoError(t, err)
	assert.Contains(t, text, "resign as chief executive officer")
	assert.Contains(t, text, "workforce reduction")
	assert.NotContains(t, text, "<p>")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "color:red")
}

func TestGetSourceText_UnknownAccession(t *testing.T) {
	server := httptest.NewServer(edgarHandler(t, "2024-03-01", "2022-01-01"))
	defer server.Close()
	s := newTestSource(t, server)

	_, err := s.GetSourceText(context.Background(), "0000000000-00-000000")
	assert.Error(t, err)
}

func TestFetch_TrafficBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Your Request Originates from an Undeclared Automated Tool")
	}))
	defer server.Close()
	s := newTestSource(t, server)

	_, err := s.fetch(context.Background(), server.URL+"/anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "traffic detection")
}

func TestCleanFilingHTML_PlainText(t *testing.T) {
	text := CleanFilingHTML("just   plain\n\n\n\ntext here")
	assert.Equal(t, "just plain\n\ntext here", text)
}

func TestSectionItems(t *testing.T) {
	text := CleanFilingHTML(filingHTML)
	sections := SectionItems(text)

	require.Len(t, sections, 2)
	assert.Equal(t, "5.02", sections[0].Number)
	assert.Contains(t, sections[0].Text, "resign as chief executive officer")
	assert.Equal(t, "8.01", sections[1].Number)
	assert.Contains(t, sections[1].Text, "workforce reduction")
}

func TestSectionItems_NoHeaders(t *testing.T) {
	assert.Nil(t, SectionItems("no items in this text at all"))
}
