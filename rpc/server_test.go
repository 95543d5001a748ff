package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"orchai/core/host"
	"orchai/crypto"
	mm "orchai/native/moneymarket"
)

type fakeBackend struct {
	contracts map[crypto.Address]func(json.RawMessage) (json.RawMessage, error)
}

func (f *fakeBackend) Query(_ context.Context, contract crypto.Address, req json.RawMessage) (json.RawMessage, error) {
	handler, ok := f.contracts[contract]
	if !ok {
		return nil, fmt.Errorf("%w: %s", host.ErrUnknownContract, contract)
	}
	return handler(req)
}

func (f *fakeBackend) Block() host.BlockInfo {
	return host.BlockInfo{Height: 42, Time: 1_700_000_000, ChainID: "orchai-rpc"}
}

func dial(t *testing.T, backend Backend) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(backend, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, lis)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSmartQuery(t *testing.T) {
	market := crypto.AccountAddress("market")
	token := crypto.AccountAddress("token")
	var seen json.RawMessage
	backend := &fakeBackend{contracts: map[crypto.Address]func(json.RawMessage) (json.RawMessage, error){
		market: func(req json.RawMessage) (json.RawMessage, error) {
			seen = req
			return json.RawMessage(`{"total_liabilities":"12.5","last_interest_updated":7}`), nil
		},
		token: func(json.RawMessage) (json.RawMessage, error) {
			return nil, &host.ContractError{Op: "query", Code: "token", Target: "x", Err: mm.ErrUnauthorized}
		},
	}}
	client := NewQueryClient(dial(t, backend))
	ctx := context.Background()

	res, err := client.Smart(ctx, market, json.RawMessage(`{"state":{}}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"state":{}}`, string(seen))
	require.JSONEq(t, `{"total_liabilities":"12.5","last_interest_updated":7}`, string(res))

	_, err = client.Smart(ctx, crypto.AccountAddress("nobody"), json.RawMessage(`{"state":{}}`))
	require.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.Smart(ctx, token, json.RawMessage(`{"balance":{}}`))
	require.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = client.Smart(ctx, market, json.RawMessage(`[1]`))
	require.Error(t, err)
}

func TestSmartQueryRejectsBadRequests(t *testing.T) {
	conn := dial(t, &fakeBackend{})
	out := new(structpb.Struct)
	err := conn.Invoke(context.Background(), SmartMethod, &structpb.Struct{}, out)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"contract": structpb.NewStringValue(crypto.AccountAddress("market").String()),
		"msg":      structpb.NewStringValue("state"),
	}}
	err = conn.Invoke(context.Background(), SmartMethod, in, out)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestBlock(t *testing.T) {
	block, err := NewQueryClient(dial(t, &fakeBackend{})).Block(context.Background())
	require.NoError(t, err)
	require.JSONEq(t, `{"height":"42","time":"1700000000","chain_id":"orchai-rpc"}`, string(block))
}

func TestEncodeResultWrapsScalars(t *testing.T) {
	out, err := encodeResult(json.RawMessage(`"1.5"`))
	require.NoError(t, err)
	require.Equal(t, "1.5", out.GetFields()["result"].GetStringValue())

	_, _, err = decodeSmartRequest(nil)
	require.ErrorIs(t, err, errInvalidArgument)
}

func TestHealthService(t *testing.T) {
	conn := dial(t, &fakeBackend{})
	res, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: QueryServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, res.GetStatus())
}
