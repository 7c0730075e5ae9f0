//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/publishq/publishqd/internal/testutil"
	"github.com/stretchr/testify/require"
)

// defaultContent scores comfortably above the compliance threshold and fits
// every platform's character limit.
const defaultContent = "Rolling out the new autumn collection with behind the scenes footage from the studio team."

// itemView is the queue item shape tests decode responses into.
type itemView struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Content           string       `json:"content"`
	Tags              []string     `json:"tags"`
	MediaURLs         []string     `json:"media_urls"`
	CreatedBy         string       `json:"created_by"`
	Priority          string       `json:"priority"`
	Platforms         []targetView `json:"platforms"`
	ScheduledAt       time.Time    `json:"scheduled_at"`
	EstimatedDuration int          `json:"estimated_duration"`
	ActualDuration    int          `json:"actual_duration"`
	RetryAttempts     int          `json:"retry_attempts"`
	MaxRetries        int          `json:"max_retries"`
	FailureReason     string       `json:"failure_reason"`
	StartedAt         *time.Time   `json:"started_at"`
	CompletedAt       *time.Time   `json:"completed_at"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// targetView is the per-platform target shape within an item.
type targetView struct {
	Platform    string     `json:"platform"`
	Status      string     `json:"status"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	PublishedAt *time.Time `json:"published_at"`
	Error       string     `json:"error"`
	RetryCount  int        `json:"retry_count"`
	PostID      string     `json:"post_id"`
	URL         string     `json:"url"`
	FailedAt    *time.Time `json:"failed_at"`
}

// target returns the platform target of an item, failing the test when the
// item does not address the platform.
func (i itemView) target(t *testing.T, platform string) targetView {
	t.Helper()
	for _, tg := range i.Platforms {
		if tg.Platform == platform {
			return tg
		}
	}
	t.Fatalf("item %s has no target for platform %s", i.ID, platform)
	return targetView{}
}

type enqueueOption func(map[string]interface{})

func withContent(content string) enqueueOption {
	return func(m map[string]interface{}) {
		m["content"] = content
	}
}

func withPriority(priority string) enqueueOption {
	return func(m map[string]interface{}) {
		m["priority"] = priority
	}
}

func withTags(tags ...string) enqueueOption {
	return func(m map[string]interface{}) {
		m["tags"] = tags
	}
}

func withMediaURLs(urls ...string) enqueueOption {
	return func(m map[string]interface{}) {
		m["media_urls"] = urls
	}
}

func withCreatedBy(author string) enqueueOption {
	return func(m map[string]interface{}) {
		m["created_by"] = author
	}
}

func withScheduledAt(at time.Time) enqueueOption {
	return func(m map[string]interface{}) {
		m["scheduled_at"] = at
	}
}

func withEstimatedDuration(seconds int) enqueueOption {
	return func(m map[string]interface{}) {
		m["estimated_duration"] = seconds
	}
}

func withMaxRetries(n int) enqueueOption {
	return func(m map[string]interface{}) {
		m["max_retries"] = n
	}
}

// enqueueItem enqueues an item and returns its ID.
// Use t.Cleanup with deleteQueueItem for automatic removal.
func enqueueItem(t *testing.T, client *testutil.Client, title string, platforms []string, opts ...enqueueOption) string {
	t.Helper()

	payload := map[string]interface{}{
		"title":     title,
		"content":   defaultContent,
		"platforms": platforms,
	}
	for _, opt := range opts {
		opt(payload)
	}

	resp, err := client.POST("/api/v1/queue/items", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data itemView `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}

// deleteQueueItem removes an item. Does not fail if already deleted.
func deleteQueueItem(t *testing.T, client *testutil.Client, id string) {
	t.Helper()
	resp, err := client.DELETE("/api/v1/queue/items/" + id)
	if err != nil {
		t.Logf("cleanup warning (item %s): %v", id, err)
		return
	}
	resp.Body.Close()
}

// getQueueItem fetches one item.
func getQueueItem(t *testing.T, client *testutil.Client, id string) itemView {
	t.Helper()
	resp, err := client.GET("/api/v1/queue/items/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data itemView `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// listQueueItems fetches the item list with an optional raw query string.
func listQueueItems(t *testing.T, client *testutil.Client, query string) ([]itemView, int) {
	t.Helper()
	resp, err := client.GET("/api/v1/queue/items" + query)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			Items []itemView `json:"items"`
			Total int        `json:"total"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.Items, result.Data.Total
}

// indexOf returns the position of an item in a listing, or -1.
func indexOf(items []itemView, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// runInfoView is the scheduler status shape tests decode responses into.
type runInfoView struct {
	State          string     `json:"state"`
	StartedAt      *time.Time `json:"started_at"`
	ItemsCompleted int        `json:"items_completed"`
	LastTickAt     *time.Time `json:"last_tick_at"`
}

// postScheduler sends a scheduler command and decodes the returned run info.
func postScheduler(t *testing.T, client *testutil.Client, command string) (runInfoView, int) {
	t.Helper()
	resp, err := client.POST("/api/v1/queue/"+command, nil)
	require.NoError(t, err)

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return runInfoView{}, resp.StatusCode
	}

	var result struct {
		Data runInfoView `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data, http.StatusOK
}

// schedulerStatus fetches the current run info.
func schedulerStatus(t *testing.T, client *testutil.Client) runInfoView {
	t.Helper()
	resp, err := client.GET("/api/v1/queue/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data runInfoView `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// startScheduler starts the loop and registers a cleanup that stops it.
func startScheduler(t *testing.T, client *testutil.Client) {
	t.Helper()
	info, status := postScheduler(t, client, "start")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "running", info.State)
	t.Cleanup(func() { stopScheduler(t, client) })
}

// stopScheduler stops the loop. Stopping a stopped loop is fine.
func stopScheduler(t *testing.T, client *testutil.Client) {
	t.Helper()
	_, status := postScheduler(t, client, "stop")
	require.Equal(t, http.StatusOK, status)
}

// waitForAllPublished polls an item until every target is published.
func waitForAllPublished(t *testing.T, client *testutil.Client, id string) itemView {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		item := getQueueItem(t, client, id)
		published := len(item.Platforms) > 0
		for _, tg := range item.Platforms {
			if tg.Status != "published" {
				published = false
				break
			}
		}
		if published {
			return item
		}
		if time.Now().After(deadline) {
			t.Fatalf("item %s did not publish in time: %+v", id, item.Platforms)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// resetViewAfterTest restores the default listing view when the test ends.
func resetViewAfterTest(t *testing.T, client *testutil.Client) {
	t.Helper()
	t.Cleanup(func() {
		resp, err := client.PUT("/api/v1/queue/view", map[string]interface{}{})
		if err != nil {
			t.Logf("cleanup warning (view): %v", err)
			return
		}
		resp.Body.Close()
	})
}
