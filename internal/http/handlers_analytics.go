package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"kharcha/internal/analytics"
	"kharcha/internal/core"
)

// serveCached writes a cached analytics response if one exists, otherwise
// computes it via build, caches the encoded bytes, and writes them. The
// request URI is the cache key, so each parameter combination caches
// separately.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, build func() (any, error)) {
	key := r.URL.RequestURI()
	if data, ok := s.analyticsCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := build()
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.analyticsCache.Set(key, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// analyticsReference resolves the optional year and month query parameters
// into the reference time the aggregation runs against. Absent parameters
// default to the current month.
func analyticsReference(r *http.Request) (time.Time, error) {
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())

	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1970 || y > 9999 {
			return time.Time{}, fmt.Errorf("%w: year %q", core.ErrInvalidDate, v)
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return time.Time{}, fmt.Errorf("%w: month %q", core.ErrInvalidDate, v)
		}
		month = m
	}

	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	ref, err := analyticsReference(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.serveCached(w, r, func() (any, error) {
		transactions, err := s.ledger.ListTransactions(r.Context())
		if err != nil {
			return nil, err
		}
		return analytics.MonthlySummary(transactions, ref)
	})
}

func (s *Server) handleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	ref, err := analyticsReference(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.serveCached(w, r, func() (any, error) {
		transactions, err := s.ledger.ListTransactions(r.Context())
		if err != nil {
			return nil, err
		}
		return analytics.Overview(transactions, ref), nil
	})
}

func (s *Server) handleAnalyticsTrends(w http.ResponseWriter, r *http.Request) {
	months := 0
	if v := r.URL.Query().Get("months"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 120 {
			writeError(w, r, fmt.Errorf("%w: months %q", core.ErrInvalidDate, v))
			return
		}
		months = m
	}

	s.serveCached(w, r, func() (any, error) {
		transactions, err := s.ledger.ListTransactions(r.Context())
		if err != nil {
			return nil, err
		}
		points := analytics.Trends(transactions, time.Now().UTC(), months)
		return map[string]any{"trends": points}, nil
	})
}
