package apiserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
	"kharcha/internal/ledger/memory"
	"kharcha/internal/ledger/rest"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newAPI(t *testing.T, store ledger.Store, ready Pinger) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(":0", store, ready, nil).Handler)
	t.Cleanup(srv.Close)
	return srv
}

// The REST client and the server must agree on the wire contract.
func TestRoundTripThroughRESTClient(t *testing.T) {
	store := memory.New()
	srv := newAPI(t, store, nil)
	client := rest.NewClient(srv.URL, rest.WithRateLimit(1000))
	ctx := context.Background()

	id, err := client.Add(ctx, core.NewExpense{
		ItemName: "Chai", Amount: core.MustParseAmount("12.50"), Date: core.NewDate(2024, 3, 5), UserEmail: "Asha@x.io",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = client.Add(ctx, core.NewExpense{
		ItemName: "Auto", Amount: core.MustParseAmount("40"), Date: core.NewDate(2024, 3, 9), UserEmail: "asha@x.io",
	})
	require.NoError(t, err)

	day, err := client.ListByDay(ctx, "asha@x.io", core.NewDate(2024, 3, 5))
	require.NoError(t, err)
	require.Len(t, day.Records, 1)
	assert.Equal(t, id, day.Records[0].ID)
	assert.Equal(t, "12.50", day.Records[0].Amount.String())

	month, err := client.ListByMonth(ctx, "asha@x.io", 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, "52.50", month.Total().String())

	empty, err := client.ListByMonth(ctx, "asha@x.io", 2024, 4)
	require.NoError(t, err)
	assert.Empty(t, empty.Records)

	all, err := client.ListByUser(ctx, "asha@x.io")
	require.NoError(t, err)
	assert.Len(t, all.Records, 2)

	require.NoError(t, client.Delete(ctx, id))
	assert.True(t, errors.Is(client.Delete(ctx, id), ledger.ErrNotFound))

	require.NoError(t, client.SyncUser(ctx, ledger.Identity{Name: "Asha", Email: "ASHA@x.io"}))
	u, ok := store.User("asha@x.io")
	require.True(t, ok)
	assert.Equal(t, "password", u.AuthProvider)

	require.NoError(t, client.Ping(ctx))
}

func TestAddValidation(t *testing.T) {
	srv := newAPI(t, memory.New(), nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"itemName":`},
		{"bad date", `{"itemName":"x","amount":1,"date":"2024-01-01","userEmail":"a@x.io"}`},
		{"impossible date", `{"itemName":"x","amount":1,"date":"31-02-2024","userEmail":"a@x.io"}`},
		{"negative amount", `{"itemName":"x","amount":-1,"date":"01-01-2024","userEmail":"a@x.io"}`},
		{"missing item", `{"amount":1,"date":"01-01-2024","userEmail":"a@x.io"}`},
		{"missing email", `{"itemName":"x","amount":1,"date":"01-01-2024"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/expense/addExpense", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestAddAcceptsStringAmount(t *testing.T) {
	srv := newAPI(t, memory.New(), nil)
	resp, err := http.Post(srv.URL+"/api/expense/addExpense", "application/json",
		strings.NewReader(`{"itemName":"x","amount":"7.25","date":"01-01-2024","userEmail":"a@x.io"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"amount":7.25`)
	assert.Contains(t, string(body), `"date":"01-01-2024"`)
}

func TestByDayAcceptsDayFirstDate(t *testing.T) {
	store := memory.NewSeeded([]core.ExpenseRecord{
		{ID: "e1", ItemName: "Tea", Amount: core.MustParseAmount("5"), Date: core.NewDate(2024, 1, 2), UserEmail: "a@x.io"},
	})
	srv := newAPI(t, store, nil)

	resp, err := http.Get(srv.URL + "/api/expense/getExpensesByDateAndEmail/02-01-2024/a@x.io")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	bad, err := http.Get(srv.URL + "/api/expense/getExpensesByDateAndEmail/yesterday/a@x.io")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestByMonthRejectsBadMonth(t *testing.T) {
	srv := newAPI(t, memory.New(), nil)
	resp, err := http.Get(srv.URL + "/api/expense/getExpensesByMonthAndEmail/13/2024/a@x.io")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddUserRequiresEmail(t *testing.T) {
	srv := newAPI(t, memory.New(), nil)
	resp, err := http.Post(srv.URL+"/api/user/addUser", "application/json", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReadiness(t *testing.T) {
	var down bool
	srv := newAPI(t, memory.New(), pingFunc(func(context.Context) error {
		if down {
			return errors.New("db closed")
		}
		return nil
	}))

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	down = true
	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRequestIDEchoed(t *testing.T) {
	srv := newAPI(t, memory.New(), nil)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("X-Request-ID", "req_fromclient")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req_fromclient", resp.Header.Get("X-Request-ID"))
}
