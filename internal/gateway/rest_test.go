package gateway

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lnfee/internal/errors"
)

// newTestREST starts a TLS server and a client that trusts its certificate.
func newTestREST(t *testing.T, handler http.HandlerFunc) *RESTClient {
	t.Helper()

	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	certPath := filepath.Join(dir, "tls.cert")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(certPath, certPEM, 0600))

	macPath := filepath.Join(dir, "admin.macaroon")
	require.NoError(t, os.WriteFile(macPath, []byte{0xde, 0xad, 0xbe, 0xef}, 0600))

	c, err := NewREST(RESTConfig{
		URL:          srv.URL + "/",
		MacaroonPath: macPath,
		TLSPath:      certPath,
		Timeout:      5 * time.Second,
		Policy:       PolicyParams{BaseFeeMsat: 0, TimeLockDelta: 144},
	})
	require.NoError(t, err)
	return c
}

func TestRESTClient_SetFee(t *testing.T) {
	var (
		gotPath string
		gotMac  string
		gotBody Policy
	)
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMac = r.Header.Get("Grpc-Metadata-macaroon")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"failed_updates":[]}`))
	})

	err := c.SetFee(context.Background(), testChannel, 1400, -500, 900_000)
	require.NoError(t, err)

	assert.Equal(t, "/v1/chanpolicy", gotPath)
	assert.Equal(t, "deadbeef", gotMac)
	assert.Equal(t, "abcdef", gotBody.ChanPoint.FundingTxidStr)
	assert.Equal(t, uint32(1), gotBody.ChanPoint.OutputIndex)
	assert.Equal(t, uint32(1400), gotBody.FeeRatePpm)
	assert.Equal(t, uint32(144), gotBody.TimeLockDelta)
	assert.Equal(t, uint64(600_000_000), gotBody.MaxHtlcMsat)
	assert.Equal(t, int32(-500), gotBody.InboundFee.FeeRatePpm)
}

func TestRESTClient_HTTPError(t *testing.T) {
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusForbidden)
	})

	err := c.SetFee(context.Background(), testChannel, 100, 0, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGateway))
	assert.Contains(t, err.Error(), "permission denied")
}

func TestRESTClient_FailedUpdates(t *testing.T) {
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"failed_updates":[{"reason":"UPDATE_FAILURE_NOT_FOUND","update_error":"unknown channel"}]}`))
	})

	err := c.SetFee(context.Background(), testChannel, 100, 0, 1)
	assert.True(t, errors.Is(err, errors.ErrGateway))
	assert.Contains(t, err.Error(), "unknown channel")
}

func TestRESTClient_RejectsPositiveInbound(t *testing.T) {
	called := false
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	err := c.SetFee(context.Background(), testChannel, 100, 5, 1)
	assert.True(t, errors.Is(err, errors.ErrInvalidFee))
	assert.False(t, called, "server must not be called")
}

func TestNewREST_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := NewREST(RESTConfig{URL: "https://localhost:8080", MacaroonPath: filepath.Join(dir, "x"), TLSPath: filepath.Join(dir, "y")})
	assert.Error(t, err)

	_, err = NewREST(RESTConfig{})
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}
