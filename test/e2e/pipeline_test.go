package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papergraph/paperd/pkg/graphstore"
)

// TestJobLifecycleHappyPath exercises scenario 6: submit a paper over
// HTTP, poll its job until it settles, and confirm the graph was
// persisted — the full surface a client actually drives.
func TestJobLifecycleHappyPath(t *testing.T) {
	app := NewTestApp(t)
	app.ScriptHappyPath()

	body, err := json.Marshal(map[string]interface{}{
		"paper_id": "attention-is-all-you-need",
		"raw_text": "We propose the Transformer, a model based entirely on attention.",
		"title":    "Attention Is All You Need",
	})
	require.NoError(t, err)

	resp, err := http.Post(app.BaseURL+"/v1/tenants/acme/papers", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var submitResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitResp))
	jobID, _ := submitResp["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, string(graphstore.JobStatusPending), submitResp["status"])

	job := waitForTerminalStatus(t, app.BaseURL, "acme", jobID, 5*time.Second)
	require.Equal(t, string(graphstore.JobStatusCompleted), job["Status"])

	exists, err := app.Store.PaperExists(context.Background(), "acme", "attention-is-all-you-need")
	require.NoError(t, err)
	assert.True(t, exists)
}

// TestJobLifecycleSkipsReingestionUnlessForced exercises the pipeline's
// idempotency gate end to end: resubmitting an already-ingested paper
// completes without touching the LLM, and only forceReingest triggers a
// real second run.
func TestJobLifecycleSkipsReingestionUnlessForced(t *testing.T) {
	app := NewTestApp(t)
	app.ScriptHappyPath()

	submit := func(force bool) string {
		body, _ := json.Marshal(map[string]interface{}{
			"paper_id": "dup-paper", "raw_text": "some text", "forceReingest": force,
		})
		resp, err := http.Post(app.BaseURL+"/v1/tenants/acme/papers", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusAccepted, resp.StatusCode)

		var parsed map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
		return parsed["job_id"].(string)
	}

	firstJobID := submit(false)
	firstJob := waitForTerminalStatus(t, app.BaseURL, "acme", firstJobID, 5*time.Second)
	require.Equal(t, string(graphstore.JobStatusCompleted), firstJob["Status"])
	callsAfterFirst := len(app.LLM.Calls())
	assert.NotZero(t, callsAfterFirst)

	secondJobID := submit(false)
	secondJob := waitForTerminalStatus(t, app.BaseURL, "acme", secondJobID, 5*time.Second)
	assert.Equal(t, string(graphstore.JobStatusCompleted), secondJob["Status"])
	assert.Equal(t, callsAfterFirst, len(app.LLM.Calls()), "resubmission without force must not re-run the LLM")

	app.ScriptHappyPath()
	thirdJobID := submit(true)
	thirdJob := waitForTerminalStatus(t, app.BaseURL, "acme", thirdJobID, 5*time.Second)
	assert.Equal(t, string(graphstore.JobStatusCompleted), thirdJob["Status"])
	assert.Greater(t, len(app.LLM.Calls()), callsAfterFirst, "forceReingest must re-run the LLM")
}

func waitForTerminalStatus(t *testing.T, baseURL, tenant, jobID string, timeout time.Duration) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/v1/tenants/" + tenant + "/jobs/" + jobID)
		require.NoError(t, err)
		var job map[string]interface{}
		err = json.NewDecoder(resp.Body).Decode(&job)
		resp.Body.Close()
		require.NoError(t, err)

		switch job["Status"] {
		case string(graphstore.JobStatusCompleted), string(graphstore.JobStatusFailed):
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal status within %s", jobID, timeout)
	return nil
}
