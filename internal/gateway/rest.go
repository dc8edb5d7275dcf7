package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hpungsan/lnfee/internal/channel"
	"github.com/hpungsan/lnfee/internal/errors"
)

// RESTConfig configures the node REST client.
type RESTConfig struct {
	URL          string
	MacaroonPath string
	TLSPath      string
	Timeout      time.Duration
	Policy       PolicyParams
}

// RESTClient posts policy updates to /v1/chanpolicy.
type RESTClient struct {
	url      string
	macaroon string
	client   *http.Client
	policy   PolicyParams
}

var _ FeeSetter = (*RESTClient)(nil)

// NewREST reads the macaroon and TLS certificate and builds the client.
func NewREST(cfg RESTConfig) (*RESTClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.NewInvalidConfig("api.api_url", "is required")
	}

	mac, err := os.ReadFile(cfg.MacaroonPath)
	if err != nil {
		return nil, fmt.Errorf("read macaroon: %w", err)
	}

	tlsConfig, err := loadTLSConfig(cfg.TLSPath)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &RESTClient{
		url:      strings.TrimRight(cfg.URL, "/") + "/v1/chanpolicy",
		macaroon: hex.EncodeToString(mac),
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
		policy: cfg.Policy,
	}, nil
}

func loadTLSConfig(path string) (*tls.Config, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tls cert: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to parse tls cert %s", path)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// updateResponse is the subset of the chanpolicy response we inspect.
type updateResponse struct {
	FailedUpdates []struct {
		Reason      string `json:"reason"`
		UpdateError string `json:"update_error"`
	} `json:"failed_updates"`
}

// SetFee posts the policy for ch.
func (c *RESTClient) SetFee(ctx context.Context, ch channel.Channel, localFee, inboundFee, localBalance int64) error {
	policy, err := NewPolicy(c.policy, ch, localFee, inboundFee, localBalance)
	if err != nil {
		return err
	}

	body, err := json.Marshal(policy)
	if err != nil {
		return errors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.NewGateway(ch.ID, err)
	}
	req.Header.Set("Grpc-Metadata-macaroon", c.macaroon)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.NewGateway(ch.ID, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewGateway(ch.ID, fmt.Errorf("chanpolicy: %s: %s", resp.Status, strings.TrimSpace(string(data))))
	}

	var out updateResponse
	if len(data) > 0 && json.Unmarshal(data, &out) == nil && len(out.FailedUpdates) > 0 {
		f := out.FailedUpdates[0]
		return errors.NewGateway(ch.ID, fmt.Errorf("chanpolicy rejected: %s %s", f.Reason, f.UpdateError))
	}
	return nil
}
