package githubapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	client := NewClient("")
	client.BaseURL = serverURL
	client.RequestDelay = time.Millisecond
	return client
}

func TestFetchAllPagesFollowsPagination(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)

		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		count := 100
		if page == 2 {
			count = 50
		}

		items := make([]map[string]interface{}, count)
		for i := range items {
			items[i] = map[string]interface{}{"id": (page-1)*100 + i}
		}
		json.NewEncoder(w).Encode(items)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	records, err := client.FetchAllPages(context.Background(), "/repos/acme/widgets/pulls", nil)

	require.NoError(t, err)
	assert.Len(t, records, 150)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestFetchAllPagesStopsOnEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	records, err := client.FetchAllPages(context.Background(), "/repos/acme/widgets/pulls", nil)

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRateLimitHeadersAreTracked(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute).Unix()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "42")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetRepository(context.Background(), "acme", "widgets")
	require.NoError(t, err)

	remaining, resetAt := client.RateLimitState()
	assert.Equal(t, 42, remaining)
	assert.Equal(t, reset, resetAt.Unix())
}

func TestExhaustedQuotaWaitsUntilReset(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(2*time.Second).Unix(), 10))
		} else {
			w.Header().Set("X-RateLimit-Remaining", "100")
		}
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetRepository(context.Background(), "acme", "widgets")
	require.NoError(t, err)

	start := time.Now()
	_, err = client.GetRepository(context.Background(), "acme", "widgets")
	require.NoError(t, err)

	// The second request sleeps through the reset plus the safety buffer
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestRateLimitRejectionRetriesOnce(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"message": "API rate limit exceeded"}`))
			return
		}
		w.Write([]byte(`{"id": 1}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	repo, err := client.GetRepository(context.Background(), "acme", "widgets")

	require.NoError(t, err)
	assert.Equal(t, int64(1), repo.GetID())
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestPersistentRateLimitRejectionFails(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "API rate limit exceeded"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FetchPage(context.Background(), "/repos/acme/widgets/pulls", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestNonRateLimitForbiddenIsNotRetried(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "Resource not accessible"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FetchPage(context.Background(), "/repos/acme/widgets/pulls", nil)

	require.Error(t, err)
	var requestErr *RequestFailedError
	require.True(t, errors.As(err, &requestErr))
	assert.Equal(t, http.StatusForbidden, requestErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestRequestFailedErrorCarriesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Not Found"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetRepository(context.Background(), "acme", "missing")

	require.Error(t, err)
	var requestErr *RequestFailedError
	require.True(t, errors.As(err, &requestErr))
	assert.Equal(t, http.StatusNotFound, requestErr.Status)
}

func TestValidateRepositoryAccessWrapsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Not Found"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	err := client.ValidateRepositoryAccess(context.Background(), "acme", "private")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAccessDenied))
}

func TestGetPullRequestsSendsStateParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "closed", r.URL.Query().Get("state"))
		fmt.Fprint(w, `[{"id": 10, "number": 3, "title": "Fix bug", "state": "closed"}]`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	pulls, err := client.GetPullRequests(context.Background(), "acme", "widgets", "closed")

	require.NoError(t, err)
	require.Len(t, pulls, 1)
	assert.Equal(t, 3, pulls[0].GetNumber())
	assert.Equal(t, "Fix bug", pulls[0].GetTitle())
}

func TestMinimumDelayBetweenRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.RequestDelay = 100 * time.Millisecond

	start := time.Now()
	_, err := client.GetRepository(context.Background(), "acme", "widgets")
	require.NoError(t, err)
	_, err = client.GetRepository(context.Background(), "acme", "widgets")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
