package node

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/onet/v3/network"

	"github.com/dedis/p2p_auctions/centrilized_auctions"
	"github.com/dedis/p2p_auctions/config"
	"github.com/dedis/p2p_auctions/identity"
	"github.com/dedis/p2p_auctions/keystore"
	"github.com/dedis/p2p_auctions/rpc"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

// freePort returns a port p such that p and p+1 are free; onet serves its
// websocket on p+1.
func freePort(t *testing.T) int {
	for i := 0; i < 20; i++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := l.Addr().(*net.TCPAddr).Port
		l2, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port+1))
		l.Close()
		if err == nil {
			l2.Close()
			return port
		}
	}
	t.Fatal("no free port pair")
	return 0
}

func testConfig(t *testing.T) *config.Server {
	cfg := config.DefaultServer()
	cfg.Address = fmt.Sprintf("tls://127.0.0.1:%d", freePort(t))
	cfg.DataDir = t.TempDir()
	cfg.StatusAddress = "127.0.0.1:0"
	return cfg
}

func ping(t *testing.T, descriptor string) error {
	dir, err := rpc.LoadDirectory(descriptor)
	require.NoError(t, err)
	d, err := rpc.ReadDescriptor(descriptor)
	require.NoError(t, err)
	service, err := identity.ParseAddress(d.Service)
	require.NoError(t, err)
	seed := make([]byte, keystore.SeedSize)
	pair, err := identity.NewKeyPair(seed)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	reply, err := centrilized_auctions.NewClient(service, pair, dir).Ping(ctx, 41)
	if err == nil {
		require.Equal(t, int64(42), reply)
	}
	return err
}

func TestStartRestart(t *testing.T) {
	cfg := testConfig(t)

	n, err := Start(cfg)
	require.NoError(t, err)
	first := n.Descriptor
	require.Len(t, n.Address(), 64)
	require.Equal(t, n.Address(), identity.Address(n.Service.PublicKey()))
	require.NotEqual(t, first.Service, first.Transport)
	require.NoError(t, ping(t, cfg.DescriptorPath()))

	resp, err := http.Get(fmt.Sprintf("http://%s/health", n.status.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, n.Close())

	n, err = Start(cfg)
	require.NoError(t, err)
	defer n.Close()
	require.Equal(t, first.Service, n.Descriptor.Service)
	require.Equal(t, first.Transport, n.Descriptor.Transport)
	require.NoError(t, ping(t, cfg.DescriptorPath()))

	d, err := rpc.ReadDescriptor(filepath.Join(cfg.DataDir, "public.toml"))
	require.NoError(t, err)
	require.Equal(t, first.Service, d.Service)
}

func TestStartFailures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Address = "127.0.0.1"
	_, err := Start(cfg)
	require.ErrorIs(t, err, config.ErrAddressInvalid)

	// A data directory that is a file cannot hold the seeds.
	cfg = testConfig(t)
	cfg.DataDir = filepath.Join(cfg.DataDir, "file")
	require.NoError(t, writeFile(cfg.DataDir))
	_, err = Start(cfg)
	require.ErrorIs(t, err, identity.ErrProvisioning)

	// A taken port is reported instead of ending the process.
	cfg = testConfig(t)
	l, err := net.Listen("tcp", network.Address(cfg.Address).NetworkAddress())
	require.NoError(t, err)
	defer l.Close()
	_, err = Start(cfg)
	require.ErrorIs(t, err, ErrBind)
}

func TestStartReturns(t *testing.T) {
	cfg := testConfig(t)
	started := make(chan *Node, 1)
	errs := make(chan error, 1)
	go func() {
		n, err := Start(cfg)
		if err != nil {
			errs <- err
			return
		}
		started <- n
	}()

	select {
	case n := <-started:
		defer n.Close()
		d, err := rpc.ReadDescriptor(cfg.DescriptorPath())
		require.NoError(t, err)
		require.Equal(t, n.Address(), d.Service)
		require.NotNil(t, n.status)
	case err := <-errs:
		t.Fatal(err)
	case <-time.After(15 * time.Second):
		t.Fatal("Start did not return")
	}
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("not a directory"), 0600)
}
