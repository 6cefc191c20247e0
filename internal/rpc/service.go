// Package rpc serves the scoring pipeline over gRPC. Requests and responses
// are google.protobuf.Struct values carrying the same JSON documents the
// HTTP API accepts and returns, so no generated message types are needed.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
	"github.com/nyashahama/vitality-blueprint-backend/internal/ruleset"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "blueprint.v1.Assessments"

const (
	methodAssess        = "/" + ServiceName + "/Assess"
	methodDescribeRules = "/" + ServiceName + "/DescribeRules"
)

// AssessmentsServer is the server API for blueprint.v1.Assessments.
type AssessmentsServer interface {
	// Assess scores one submission and returns the result document.
	Assess(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

	// DescribeRules returns the version, fingerprint and composites of the
	// loaded rule table.
	DescribeRules(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

// ─── SERVICE DESCRIPTOR ───────────────────────────────────────────────────────

// ServiceDesc is the grpc.ServiceDesc for blueprint.v1.Assessments.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AssessmentsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Assess", Handler: assessHandler},
		{MethodName: "DescribeRules", Handler: describeRulesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "blueprint/v1/assessments.proto",
}

func assessHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AssessmentsServer).Assess(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodAssess}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AssessmentsServer).Assess(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func describeRulesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AssessmentsServer).DescribeRules(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodDescribeRules}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AssessmentsServer).DescribeRules(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// Service implements AssessmentsServer on top of assessment.Run.
type Service struct {
	rules *ruleset.Ruleset
}

// NewService returns a Service scoring against rules.
func NewService(rules *ruleset.Ruleset) *Service {
	return &Service{rules: rules}
}

// Assess decodes the submission, runs the pipeline and encodes the result.
func (s *Service) Assess(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "encode request: %v", err)
	}

	sub, err := assessment.ParseInput(raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := sub.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := assessment.Run(s.rules, sub)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "run assessment: %v", err)
	}

	return toStruct(res)
}

// DescribeRules reports which rule table the server scores against.
func (s *Service) DescribeRules(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.rules.Summary())
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// ─── SERVER ───────────────────────────────────────────────────────────────────

// NewServer returns a grpc.Server with the Assessments service and the
// standard health service registered.
func NewServer(rules *ruleset.Ruleset, logger *slog.Logger) *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		recoverInterceptor(logger),
		logInterceptor(logger),
	))
	srv.RegisterService(&ServiceDesc, NewService(rules))

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}

// logInterceptor logs each call with method, code, and duration.
func logInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

// recoverInterceptor turns a handler panic into codes.Internal.
func recoverInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("grpc: panic", "method", info.FullMethod, "panic", p)
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// ─── CLIENT ───────────────────────────────────────────────────────────────────

// Client calls blueprint.v1.Assessments over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Assess sends a submission and returns the decoded result.
func (c *Client) Assess(ctx context.Context, in assessment.Input, opts ...grpc.CallOption) (assessment.Result, error) {
	req, err := toStruct(in)
	if err != nil {
		return assessment.Result{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodAssess, req, out, opts...); err != nil {
		return assessment.Result{}, err
	}

	b, err := protojson.Marshal(out)
	if err != nil {
		return assessment.Result{}, err
	}
	var res assessment.Result
	if err := json.Unmarshal(b, &res); err != nil {
		return assessment.Result{}, errors.Join(errors.New("rpc: decode result"), err)
	}
	return res, nil
}

// DescribeRules returns the server's rule table summary.
func (c *Client) DescribeRules(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodDescribeRules, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
