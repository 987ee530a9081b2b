package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chazu/stackc/compiler"
	"github.com/chazu/stackc/harness"
	"github.com/chazu/stackc/pkg/word"
)

const (
	// ExecutionServiceName is the fully qualified service name shared by
	// the Connect and gRPC transports.
	ExecutionServiceName = "stackc.v1.ExecutionService"

	// ExecuteProcedure is the path of the Execute method.
	ExecuteProcedure = "/" + ExecutionServiceName + "/Execute"
)

// errBadRequest marks request errors the caller can fix.
var errBadRequest = errors.New("invalid request")

// ExecuteService runs assembly programs through a harness pipeline.
type ExecuteService struct {
	pipeline *harness.Pipeline
}

// NewExecuteService creates an ExecuteService.
func NewExecuteService(p *harness.Pipeline) *ExecuteService {
	return &ExecuteService{pipeline: p}
}

// Execute is the Connect handler.
func (s *ExecuteService) Execute(
	ctx context.Context,
	req *connect.Request[ExecuteRequest],
) (*connect.Response[ExecuteResponse], error) {
	resp, err := s.execute(ctx, req.Msg)
	if err != nil {
		if invalidArgument(err) {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, connect.NewError(connect.CodeCanceled, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(resp), nil
}

// grpcExecute is the gRPC handler body.
func (s *ExecuteService) grpcExecute(ctx context.Context, req *ExecuteRequest) (*ExecuteResponse, error) {
	resp, err := s.execute(ctx, req)
	if err != nil {
		if invalidArgument(err) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.Error(codes.Canceled, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func (s *ExecuteService) execute(ctx context.Context, req *ExecuteRequest) (*ExecuteResponse, error) {
	if req.Source == "" {
		return nil, fmt.Errorf("%w: source is required", errBadRequest)
	}
	in, err := decodeArray("in", req.In)
	if err != nil {
		return nil, err
	}
	out, err := decodeArray("out", req.Out)
	if err != nil {
		return nil, err
	}

	res, err := s.pipeline.Run(ctx, req.Source, in, out)
	if err != nil {
		return nil, err
	}

	resp := &ExecuteResponse{
		Status:     uint8(res.Status),
		StatusText: res.Status.String(),
		In:         encodeArray(&res.In, len(req.In)),
		Out:        encodeArray(&res.Out, len(req.Out)),
		Cached:     res.Cached,
	}
	if res.RunID != uuid.Nil {
		resp.RunID = res.RunID.String()
	}
	log.Debugf("execute: status %d, cached=%t", resp.Status, resp.Cached)
	return resp, nil
}

func decodeArray(name string, vals []string) (word.Array, error) {
	var a word.Array
	if len(vals) > word.ArrayCapacity {
		return a, fmt.Errorf("%w: array %s has %d elements, maximum is %d",
			errBadRequest, name, len(vals), word.ArrayCapacity)
	}
	for i, v := range vals {
		w, err := word.Parse(v)
		if err != nil {
			return a, fmt.Errorf("%w: %s[%d]: %w", errBadRequest, name, i, err)
		}
		a[i] = w
	}
	return a, nil
}

func encodeArray(a *word.Array, least int) []string {
	n := a.Len()
	if least > n {
		n = least
	}
	return a.Strings(n)
}

func invalidArgument(err error) bool {
	var perr *compiler.ParseError
	return errors.Is(err, errBadRequest) || errors.As(err, &perr)
}

// executionServer is the handler type of the gRPC service description.
type executionServer interface {
	grpcExecute(context.Context, *ExecuteRequest) (*ExecuteResponse, error)
}

func executeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ExecuteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(executionServer).grpcExecute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ExecuteProcedure,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(executionServer).grpcExecute(ctx, req.(*ExecuteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// executionServiceDesc describes the service by hand; messages travel as
// CBOR, so there is no generated stub.
var executionServiceDesc = grpc.ServiceDesc{
	ServiceName: ExecutionServiceName,
	HandlerType: (*executionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Execute", Handler: executeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stackc/v1/execution",
}
