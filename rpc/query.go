package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"orchai/core/host"
	"orchai/crypto"
)

const (
	QueryServiceName = "orchai.query.v1.Query"
	SmartMethod      = "/" + QueryServiceName + "/Smart"
	BlockMethod      = "/" + QueryServiceName + "/Block"
)

// Backend answers smart queries against committed state.
type Backend interface {
	Query(ctx context.Context, contract crypto.Address, req json.RawMessage) (json.RawMessage, error)
	Block() host.BlockInfo
}

// QueryServer is the Query service. Smart takes {"contract": addr, "msg": {...}}
// and returns the contract response; non-object responses are wrapped as
// {"result": value}.
type QueryServer interface {
	Smart(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Block(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type queryService struct {
	backend Backend
}

func (q *queryService) Smart(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	contract, msg, err := decodeSmartRequest(in)
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := q.backend.Query(ctx, contract, msg)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := encodeResult(res)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

func (q *queryService) Block(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	block := q.backend.Block()
	return structpb.NewStruct(map[string]interface{}{
		"height":   fmt.Sprintf("%d", block.Height),
		"time":     fmt.Sprintf("%d", block.Time),
		"chain_id": block.ChainID,
	})
}

func decodeSmartRequest(in *structpb.Struct) (crypto.Address, json.RawMessage, error) {
	if in == nil {
		return crypto.Address{}, nil, fmt.Errorf("%w: request required", errInvalidArgument)
	}
	rawContract := strings.TrimSpace(in.GetFields()["contract"].GetStringValue())
	contract, err := crypto.DecodeAddress(rawContract)
	if err != nil {
		return crypto.Address{}, nil, fmt.Errorf("%w: contract: %v", errInvalidArgument, err)
	}
	msg := in.GetFields()["msg"].GetStructValue()
	if msg == nil {
		return crypto.Address{}, nil, fmt.Errorf("%w: msg must be an object", errInvalidArgument)
	}
	raw, err := protojson.Marshal(msg)
	if err != nil {
		return crypto.Address{}, nil, fmt.Errorf("%w: msg: %v", errInvalidArgument, err)
	}
	return contract, raw, nil
}

func encodeResult(raw json.RawMessage) (*structpb.Struct, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		out := &structpb.Struct{}
		if err := protojson.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("decode contract response: %w", err)
		}
		return out, nil
	}
	value := &structpb.Value{}
	if err := protojson.Unmarshal(raw, value); err != nil {
		return nil, fmt.Errorf("decode contract response: %w", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"result": value}}, nil
}

// RegisterQueryServer attaches the Query service to s.
func RegisterQueryServer(s grpc.ServiceRegistrar, srv QueryServer) {
	s.RegisterService(&queryServiceDesc, srv)
}

var queryServiceDesc = grpc.ServiceDesc{
	ServiceName: QueryServiceName,
	HandlerType: (*QueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Smart", Handler: smartHandler},
		{MethodName: "Block", Handler: blockHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orchai/query/v1/query.proto",
}

func smartHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QueryServer).Smart(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SmartMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QueryServer).Smart(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func blockHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QueryServer).Block(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: BlockMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QueryServer).Block(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// QueryClient calls the Query service.
type QueryClient struct {
	cc grpc.ClientConnInterface
}

func NewQueryClient(cc grpc.ClientConnInterface) *QueryClient {
	return &QueryClient{cc: cc}
}

// Smart runs msg against contract and returns the JSON response.
func (c *QueryClient) Smart(ctx context.Context, contract crypto.Address, msg json.RawMessage, opts ...grpc.CallOption) (json.RawMessage, error) {
	body := &structpb.Struct{}
	if err := protojson.Unmarshal(msg, body); err != nil {
		return nil, fmt.Errorf("query message must be a JSON object: %w", err)
	}
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"contract": structpb.NewStringValue(contract.String()),
		"msg":      structpb.NewStructValue(body),
	}}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SmartMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return protojson.Marshal(out)
}

// Block returns the latest block as JSON.
func (c *QueryClient) Block(ctx context.Context, opts ...grpc.CallOption) (json.RawMessage, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, BlockMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return protojson.Marshal(out)
}
