package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/bcinsights/bcinsights/internal/models"
	"github.com/bcinsights/bcinsights/internal/utils"
)

// DashboardServiceName is the fully qualified gRPC service name.
const DashboardServiceName = "bcinsights.v1.Dashboard"

// DashboardServer is the gRPC surface of the dashboard. Requests and
// responses are google.protobuf.Struct documents with the same JSON shape
// as the HTTP API.
type DashboardServer interface {
	RenderView(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Navigate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Options(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterDashboardServer registers srv on s.
func RegisterDashboardServer(s grpc.ServiceRegistrar, srv DashboardServer) {
	s.RegisterService(&dashboardServiceDesc, srv)
}

var dashboardServiceDesc = grpc.ServiceDesc{
	ServiceName: DashboardServiceName,
	HandlerType: (*DashboardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RenderView", Handler: unaryHandler("RenderView", DashboardServer.RenderView)},
		{MethodName: "CreateSession", Handler: unaryHandler("CreateSession", DashboardServer.CreateSession)},
		{MethodName: "GetSession", Handler: unaryHandler("GetSession", DashboardServer.GetSession)},
		{MethodName: "Navigate", Handler: unaryHandler("Navigate", DashboardServer.Navigate)},
		{MethodName: "Options", Handler: unaryHandler("Options", DashboardServer.Options)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bcinsights/v1/dashboard.proto",
}

// FullMethod returns the gRPC method path of a dashboard RPC.
func FullMethod(method string) string {
	return "/" + DashboardServiceName + "/" + method
}

type structMethod func(DashboardServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call structMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DashboardServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DashboardServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GRPCDashboard adapts a Dashboard to DashboardServer.
type GRPCDashboard struct {
	svc    Dashboard
	logger *slog.Logger
}

// NewGRPCDashboard constructs the gRPC adapter.
func NewGRPCDashboard(svc Dashboard, logger *slog.Logger) *GRPCDashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCDashboard{svc: svc, logger: logger.With("component", "grpc")}
}

// RenderView renders {"view", "selection", "survivalBy", "sessionId"} into a page.
func (g *GRPCDashboard) RenderView(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in models.RenderRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	in.Selection = in.Selection.OrderYears()
	page, err := g.svc.RenderView(ctx, in)
	if err != nil {
		return nil, g.toStatus("RenderView", err)
	}
	return toStruct(page)
}

// CreateSession starts a session. The request body is ignored.
func (g *GRPCDashboard) CreateSession(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sess, err := g.svc.CreateSession(ctx)
	if err != nil {
		return nil, g.toStatus("CreateSession", err)
	}
	return toStruct(sess)
}

// GetSession returns {"sessionId"}.
func (g *GRPCDashboard) GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := req.GetFields()["sessionId"].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "sessionId is required")
	}
	sess, err := g.svc.GetSession(ctx, id)
	if err != nil {
		return nil, g.toStatus("GetSession", err)
	}
	return toStruct(sess)
}

// Navigate moves {"sessionId"} to {"view"}.
func (g *GRPCDashboard) Navigate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in models.NavigateRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	sess, err := g.svc.Navigate(ctx, in)
	if err != nil {
		return nil, g.toStatus("Navigate", err)
	}
	return toStruct(sess)
}

// Options lists {"dataset"} {"column"} choices as {"values": [...]}.
func (g *GRPCDashboard) Options(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	values, err := g.svc.Options(ctx, fields["dataset"].GetStringValue(), fields["column"].GetStringValue())
	if err != nil {
		return nil, g.toStatus("Options", err)
	}
	if values == nil {
		values = []string{}
	}
	return toStruct(map[string]any{"values": values})
}

// GRPCCode maps a service error onto a gRPC status code.
func GRPCCode(err error) codes.Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}
	switch utils.KindOf(err) {
	case utils.KindInvalidArgument:
		return codes.InvalidArgument
	case utils.KindNotFound:
		return codes.NotFound
	case utils.KindEmptyResult:
		return codes.FailedPrecondition
	case utils.KindDataUnavailable:
		return codes.Unavailable
	}
	return codes.Internal
}

func (g *GRPCDashboard) toStatus(method string, err error) error {
	code := GRPCCode(err)
	if code == codes.Internal {
		g.logger.Error("rpc failed", slog.String("method", method), slog.Any("error", err))
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}

func fromStruct(in *structpb.Struct, out any) error {
	if in == nil {
		return status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "encode request: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	return nil
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "decode response: %v", err)
	}
	return out, nil
}
