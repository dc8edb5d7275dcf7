package gateway

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/lightningnetwork/lnd/lnrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/hpungsan/lnfee/internal/channel"
	"github.com/hpungsan/lnfee/internal/errors"
)

// GRPCConfig configures the node gRPC client.
type GRPCConfig struct {
	Host         string
	MacaroonPath string
	TLSPath      string
	Policy       PolicyParams
}

// GRPCClient calls UpdateChannelPolicy on the node's Lightning service.
type GRPCClient struct {
	conn   *grpc.ClientConn
	client lnrpc.LightningClient
	policy PolicyParams
}

var _ FeeSetter = (*GRPCClient)(nil)

type macaroonCredential struct {
	macaroon string
}

func (m macaroonCredential) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"macaroon": m.macaroon}, nil
}

func (m macaroonCredential) RequireTransportSecurity() bool {
	return true
}

// NewGRPC builds a client connection. The connection is established lazily
// on the first call.
func NewGRPC(cfg GRPCConfig) (*GRPCClient, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.NewInvalidConfig("api.grpc_host", "is required")
	}

	tlsConfig, err := loadTLSConfig(cfg.TLSPath)
	if err != nil {
		return nil, err
	}

	mac, err := os.ReadFile(cfg.MacaroonPath)
	if err != nil {
		return nil, fmt.Errorf("read macaroon: %w", err)
	}

	conn, err := grpc.NewClient(cfg.Host,
		grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)),
		grpc.WithPerRPCCredentials(macaroonCredential{hex.EncodeToString(mac)}),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Host, err)
	}

	return newGRPCClient(conn, lnrpc.NewLightningClient(conn), cfg.Policy), nil
}

func newGRPCClient(conn *grpc.ClientConn, client lnrpc.LightningClient, policy PolicyParams) *GRPCClient {
	return &GRPCClient{conn: conn, client: client, policy: policy}
}

// Close closes the connection.
func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// PolicyRequest converts a validated policy into the RPC request.
func PolicyRequest(p Policy) *lnrpc.PolicyUpdateRequest {
	return &lnrpc.PolicyUpdateRequest{
		Scope: &lnrpc.PolicyUpdateRequest_ChanPoint{
			ChanPoint: &lnrpc.ChannelPoint{
				FundingTxid: &lnrpc.ChannelPoint_FundingTxidStr{FundingTxidStr: p.ChanPoint.FundingTxidStr},
				OutputIndex: p.ChanPoint.OutputIndex,
			},
		},
		BaseFeeMsat:   p.BaseFeeMsat,
		FeeRatePpm:    p.FeeRatePpm,
		TimeLockDelta: p.TimeLockDelta,
		MaxHtlcMsat:   p.MaxHtlcMsat,
		InboundFee: &lnrpc.InboundFee{
			BaseFeeMsat: p.InboundFee.BaseFeeMsat,
			FeeRatePpm:  p.InboundFee.FeeRatePpm,
		},
	}
}

// SetFee updates the policy of ch.
func (c *GRPCClient) SetFee(ctx context.Context, ch channel.Channel, localFee, inboundFee, localBalance int64) error {
	policy, err := NewPolicy(c.policy, ch, localFee, inboundFee, localBalance)
	if err != nil {
		return err
	}

	resp, err := c.client.UpdateChannelPolicy(ctx, PolicyRequest(policy))
	if err != nil {
		return errors.NewGateway(ch.ID, err)
	}
	if failed := resp.GetFailedUpdates(); len(failed) > 0 {
		f := failed[0]
		return errors.NewGateway(ch.ID, fmt.Errorf("chanpolicy rejected: %s %s", f.GetReason(), f.GetUpdateError()))
	}
	return nil
}
