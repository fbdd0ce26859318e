package target

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetbridge/sheetbridge/engine/core"
	"github.com/sheetbridge/sheetbridge/pkg/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Smartsheet.APIToken = config.SensitiveString("abcd1234efgh5678ijkl901234")
	cfg.Runtime.RetryDelay = time.Millisecond
	return cfg
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(testConfig(), WithBaseURL(server.URL), WithRateLimit(60000))
}

func TestClient_ErrorMapping(t *testing.T) {
	t.Run("Should map 403 to a permission error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]any{"errorCode": 1013, "message": "no access"})
		}))

		_, err := client.CreateWorkspace(t.Context(), "Alpha")

		require.Error(t, err)
		assert.True(t, core.IsKind(err, core.KindPermission))
		assert.Equal(t, 403, core.StatusCode(err))
	})

	t.Run("Should map 401 to an auth error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, err := client.ListWorkspaces(t.Context())

		require.Error(t, err)
		assert.True(t, core.IsKind(err, core.KindAuth))
	})

	t.Run("Should surface Retry-After on 429 and then succeed", func(t *testing.T) {
		calls := 0
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			if calls == 1 {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(listEnvelope[Workspace]{Data: []Workspace{{ID: 1, Name: "PMO Standards"}}})
		}))

		start := time.Now()
		workspaces, err := client.ListWorkspaces(t.Context())

		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.GreaterOrEqual(t, time.Since(start), time.Second)
		require.Len(t, workspaces, 1)
		assert.Equal(t, "PMO Standards", workspaces[0].Name)
	})

	t.Run("Should not retry 400 responses", func(t *testing.T) {
		calls := 0
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadRequest)
		}))

		_, err := client.ListWorkspaces(t.Context())

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestClient_Batching(t *testing.T) {
	t.Run("Should add all columns in a single request", func(t *testing.T) {
		requests := 0
		var batchLen int
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			var cols []Column
			require.NoError(t, json.NewDecoder(r.Body).Decode(&cols))
			batchLen = len(cols)
			for i := range cols {
				cols[i].ID = int64(100 + i)
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resultEnvelope[[]Column]{ResultCode: 0, Result: cols})
		}))

		cols, err := client.AddColumns(t.Context(), 42, []Column{
			{Title: "Team Members", Type: ColumnMultiContactList},
			{Title: "Equipment", Type: ColumnMultiPicklist},
			{Title: "Cost Centers", Type: ColumnMultiPicklist},
		})

		require.NoError(t, err)
		assert.Equal(t, 1, requests)
		assert.Equal(t, 3, batchLen)
		require.Len(t, cols, 3)
		assert.NotZero(t, cols[0].ID)
	})

	t.Run("Should add rows as one batch and return assigned ids", func(t *testing.T) {
		requests := 0
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			var rows []Row
			require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
			for i := range rows {
				rows[i].ID = int64(500 + i)
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resultEnvelope[[]Row]{Result: rows})
		}))

		rows, err := client.AddRows(t.Context(), 42, []Row{{ToBottom: true}, {ToBottom: true}})

		require.NoError(t, err)
		assert.Equal(t, 1, requests)
		require.Len(t, rows, 2)
		assert.Equal(t, int64(500), rows[0].ID)
	})

	t.Run("Should skip the request entirely for empty batches", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			t.Fatal("no request expected")
		}))

		rows, err := client.AddRows(t.Context(), 42, nil)
		require.NoError(t, err)
		assert.Empty(t, rows)

		cols, err := client.AddColumns(t.Context(), 42, nil)
		require.NoError(t, err)
		assert.Empty(t, cols)
	})
}

func TestClient_DryRun(t *testing.T) {
	t.Run("Should suppress writes and hand out synthetic ids", func(t *testing.T) {
		cfg := testConfig()
		cfg.Runtime.DryRun = true
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			t.Fatal("dry-run must not reach the API")
		}))
		t.Cleanup(server.Close)
		client := NewClient(cfg, WithBaseURL(server.URL), WithRateLimit(60000))

		ws, err := client.CreateWorkspace(t.Context(), "Alpha")
		require.NoError(t, err)
		assert.NotZero(t, ws.ID)

		sheet, err := client.CreateSheetInWorkspace(t.Context(), ws.ID, SheetSpec{
			Name:    "Alpha - Tasks",
			Columns: []Column{{Title: "Task Name", Type: ColumnTextNumber, Primary: true}},
		})
		require.NoError(t, err)
		assert.NotZero(t, sheet.ID)
		require.Len(t, sheet.Columns, 1)
		assert.NotZero(t, sheet.Columns[0].ID)
		assert.NotEqual(t, ws.ID, sheet.ID)
	})
}

func TestParseRetryAfter(t *testing.T) {
	t.Run("Should parse delta seconds", func(t *testing.T) {
		assert.Equal(t, 2*time.Second, parseRetryAfter("2"))
	})

	t.Run("Should return zero for absent or garbage values", func(t *testing.T) {
		assert.Zero(t, parseRetryAfter(""))
		assert.Zero(t, parseRetryAfter("soon"))
	})
}

func TestObjectValues(t *testing.T) {
	t.Run("Should drop contacts with neither name nor email", func(t *testing.T) {
		ov := MultiContact([]core.Contact{
			{Name: "Jane", Email: "j@x.com"},
			{},
			{Name: "NoEmail"},
		})

		require.NotNil(t, ov)
		assert.Equal(t, ObjectTypeMultiContact, ov.ObjectType)
		assert.Len(t, ov.Values, 2)
	})

	t.Run("Should return nil when every contact is empty", func(t *testing.T) {
		assert.Nil(t, MultiContact([]core.Contact{{}}))
		assert.Nil(t, MultiPicklist(nil))
	})

	t.Run("Should mark lenient cells as non-strict", func(t *testing.T) {
		cell := Cell{ColumnID: 1, Value: "Engineering"}.Lenient()

		require.NotNil(t, cell.Strict)
		assert.False(t, *cell.Strict)
	})
}
