package status

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/onet/v3/network"

	"github.com/dedis/p2p_auctions/auctions"
	"github.com/dedis/p2p_auctions/rpc"
)

type fakeService struct {
	registry *auctions.Registry
}

func (f *fakeService) Methods() []string {
	return []string{"closeAuction", "ping"}
}

func (f *fakeService) Registry() *auctions.Registry {
	return f.registry
}

func newTestHandler() (*Handler, *auctions.Registry) {
	reg := auctions.NewRegistry()
	desc := &rpc.Descriptor{
		Service:     "aa",
		Transport:   "bb",
		Address:     network.NewAddress(network.TLS, "127.0.0.1:7770"),
		Description: "test node",
	}
	return NewHandler(desc, &fakeService{reg}), reg
}

func get(t *testing.T, h http.Handler, path string, v interface{}) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(w, req)
	if w.Code == http.StatusOK && v != nil {
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
	}
	return w.Code
}

func TestRoutes(t *testing.T) {
	h, reg := newTestHandler()
	r := h.Router()

	var health map[string]string
	require.Equal(t, http.StatusOK, get(t, r, "/health", &health))
	require.Equal(t, "ok", health["status"])

	var id map[string]string
	require.Equal(t, http.StatusOK, get(t, r, "/identity", &id))
	require.Equal(t, "aa", id["service"])
	require.Equal(t, "tls://127.0.0.1:7770", id["address"])

	var methods []string
	require.Equal(t, http.StatusOK, get(t, r, "/methods", &methods))
	require.Equal(t, []string{"closeAuction", "ping"}, methods)

	var list []auctions.AuctionData
	require.Equal(t, http.StatusOK, get(t, r, "/auctions", &list))
	require.Empty(t, list)

	data, err := reg.Create("Pic#1", 75)
	require.NoError(t, err)
	require.NoError(t, reg.PlaceBid(data.ID, "Client#3", 75.5))

	require.Equal(t, http.StatusOK, get(t, r, "/auctions", &list))
	require.Len(t, list, 1)

	var one auctions.AuctionData
	require.Equal(t, http.StatusOK, get(t, r, "/auctions/"+data.ID, &one))
	require.Equal(t, "Pic#1", one.Item)
	require.Equal(t, auctions.OPEN, one.State)
	require.Equal(t, "Client#3", *one.HighestBidder)
	require.Equal(t, 75.5, *one.HighestBid)

	require.Equal(t, http.StatusNotFound, get(t, r, "/auctions/unknown", nil))
	require.Equal(t, http.StatusNotFound, get(t, r, "/nothing", nil))
}

func TestServe(t *testing.T) {
	h, _ := newTestHandler()
	s, err := Serve("127.0.0.1:0", h)
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", s.Addr()))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"ok"`)

	require.NoError(t, s.Close())
	_, err = http.Get(fmt.Sprintf("http://%s/health", s.Addr()))
	require.Error(t, err)
}
