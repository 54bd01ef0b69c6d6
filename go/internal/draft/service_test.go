package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/reconcile"
	"github.com/mcdev12/draftroom/go/internal/sidechannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, f *fixture) (*httptest.Server, *sidechannel.Memory) {
	t.Helper()
	side := sidechannel.NewMemory()
	reconciler := reconcile.NewReconciler(f.repo, side, nil, clockwork.NewFakeClock())

	r := chi.NewRouter()
	NewService(f.app, reconciler).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, side
}

func postAction(t *testing.T, srv *httptest.Server, divisionID, action string, body any) (*http.Response, ActionResult) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(
		fmt.Sprintf("%s/api/divisions/%s/draft/%s", srv.URL, divisionID, action),
		"application/json", &buf,
	)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var result ActionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return resp, result
}

func TestDraftLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t, 2, 4)
	srv, _ := newTestServer(t, f)
	div := f.divisionID.String()

	// Starting before an order exists is a client error with the
	// validation message passed through.
	resp, result := postAction(t, srv, div, "startDraft", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, ErrOrderNotGenerated.Error(), result.Message)

	resp, result = postAction(t, srv, div, "generateOrder", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, result.Success)

	resp, result = postAction(t, srv, div, "startDraft", map[string]any{"picks_per_participant": 2})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, result.Success)

	resp, _ = postAction(t, srv, div, "stopDraft", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSubmitPickOverHTTP(t *testing.T) {
	f := newFixture(t, 2, 4)
	f.seedOrder(t)
	f.start(t, 1)
	srv, _ := newTestServer(t, f)

	body, err := json.Marshal(map[string]any{
		"pick_number":    1,
		"participant_id": f.participants[0].ID,
		"player_id":      f.players[0].ID,
	})
	require.NoError(t, err)

	resp, err := http.Post(
		fmt.Sprintf("%s/api/divisions/%s/draft/picks", srv.URL, f.divisionID),
		"application/json", bytes.NewReader(body),
	)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Out of turn now.
	resp2, err := http.Post(
		fmt.Sprintf("%s/api/divisions/%s/draft/picks", srv.URL, f.divisionID),
		"application/json", bytes.NewReader(body),
	)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestSyncDraftOverHTTP(t *testing.T) {
	f := newFixture(t, 2, 4)
	f.seedOrder(t)
	f.start(t, 1)
	srv, side := newTestServer(t, f)

	_, err := f.pick(t, 1, f.participants[0].ID, f.players[0].ID)
	require.NoError(t, err)

	resp, result := postAction(t, srv, f.divisionID.String(), "syncDraft", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, result.Success)

	p, err := side.ReadProjection(context.Background(), f.divisionID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.PicksCount)
	assert.Equal(t, 2, p.CurrentPickNumber)
}

func TestDivisionStateOverHTTP(t *testing.T) {
	f := newFixture(t, 2, 4)
	f.seedOrder(t)
	f.start(t, 1)
	srv, _ := newTestServer(t, f)

	resp, err := http.Get(fmt.Sprintf("%s/api/divisions/%s/draft/state", srv.URL, f.divisionID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state DivisionState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	require.NotNil(t, state.State)
	assert.True(t, state.State.IsActive)
	assert.Len(t, state.Order, 2)
	assert.NotNil(t, state.Picks)
}

func TestBadRequestsOverHTTP(t *testing.T) {
	f := newFixture(t, 2, 4)
	srv, _ := newTestServer(t, f)

	resp, result := postAction(t, srv, "not-a-uuid", "startDraft", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid division id", result.Message)

	resp, result = postAction(t, srv, f.divisionID.String(), "explode", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "unknown action", result.Message)
}
