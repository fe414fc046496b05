package server

import (
	"context"
	"math"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtding233/wish-backend/internal/wish"
)

const serviceName = "wish.v1.Wish"

// WishServer is the gRPC surface. Requests and replies are free-form
// structs carrying the same fields as the HTTP API.
type WishServer interface {
	Perform(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Status(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*WishServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Perform", Handler: unary("Perform", WishServer.Perform)},
		{MethodName: "Status", Handler: unary("Status", WishServer.Status)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wish/v1/wish.proto",
}

func unary(method string, call func(WishServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	full := "/" + serviceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(WishServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(WishServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func RegisterWishServer(s grpc.ServiceRegistrar, srv WishServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// GRPC implements WishServer over the engine.
type GRPC struct {
	engine *wish.Engine
}

func NewGRPC(engine *wish.Engine) *GRPC { return &GRPC{engine: engine} }

// NewGRPCServer returns a server with the wish service and a logging
// interceptor registered.
func NewGRPCServer(engine *wish.Engine, log *zap.Logger) *grpc.Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := grpc.NewServer(grpc.UnaryInterceptor(logUnary(log)))
	RegisterWishServer(s, NewGRPC(engine))
	return s
}

func logUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Info("grpc",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)))
		return resp, err
	}
}

func (g *GRPC) Perform(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	acct, pool := str(in, "account"), str(in, "pool")
	if acct == "" || pool == "" {
		return nil, status.Error(codes.InvalidArgument, "account and pool are required")
	}
	count, ok := intField(in, "count")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "count must be a whole number")
	}
	out, err := g.engine.PerformWish(ctx, acct, pool, count)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(out)
}

func (g *GRPC) Status(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	acct, pool := str(in, "account"), str(in, "pool")
	if acct == "" || pool == "" {
		return nil, status.Error(codes.InvalidArgument, "account and pool are required")
	}
	st, err := g.engine.QueryStatus(ctx, acct, pool)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(st)
}

func str(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

// intField reads a whole number; a missing field is 0.
func intField(in *structpb.Struct, key string) (int, bool) {
	v := in.GetFields()[key].GetNumberValue()
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

// toStruct goes through JSON so the reply matches the HTTP body field for field.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := jsoniter.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func grpcError(err error) error {
	var c codes.Code
	switch wish.ReasonOf(err) {
	case wish.InvalidCount, wish.InvalidAccount:
		c = codes.InvalidArgument
	case wish.PoolMissing, wish.UnknownTicket:
		c = codes.NotFound
	case wish.PoolNotActive, wish.CostInsufficient:
		c = codes.FailedPrecondition
	case wish.LimitReached:
		c = codes.ResourceExhausted
	case wish.CostFailure:
		c = codes.Aborted
	case wish.LedgerUnavailable:
		c = codes.Unavailable
	default:
		c = codes.Internal
	}
	return status.Error(c, err.Error())
}
