package paced

import (
	"context"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/pkg/logger"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC and Connect service name.
const ServiceName = "pacing.v1.PacingService"

// Procedure paths, shared by gRPC and Connect.
const (
	ProcedureCreateRun       = "/" + ServiceName + "/CreateRun"
	ProcedureStartRun        = "/" + ServiceName + "/StartRun"
	ProcedureStopRun         = "/" + ServiceName + "/StopRun"
	ProcedureGetRun          = "/" + ServiceName + "/GetRun"
	ProcedureListRuns        = "/" + ServiceName + "/ListRuns"
	ProcedureGetRunMetrics   = "/" + ServiceName + "/GetRunMetrics"
	ProcedureGetRunTrace     = "/" + ServiceName + "/GetRunTrace"
	ProcedureStreamRunEvents = "/" + ServiceName + "/StreamRunEvents"
)

// PacingServiceServer is the server API. Messages are JSON-shaped Structs
// with the same fields as the HTTP API.
type PacingServiceServer interface {
	CreateRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRunMetrics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRunTrace(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StreamRunEvents(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

type unaryMethod func(PacingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(procedure string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PacingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: procedure}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PacingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func streamRunEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PacingServiceServer).StreamRunEvents(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// PacingServiceDesc describes the service for grpc.Server.RegisterService.
var PacingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PacingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateRun", Handler: unaryHandler(ProcedureCreateRun, PacingServiceServer.CreateRun)},
		{MethodName: "StartRun", Handler: unaryHandler(ProcedureStartRun, PacingServiceServer.StartRun)},
		{MethodName: "StopRun", Handler: unaryHandler(ProcedureStopRun, PacingServiceServer.StopRun)},
		{MethodName: "GetRun", Handler: unaryHandler(ProcedureGetRun, PacingServiceServer.GetRun)},
		{MethodName: "ListRuns", Handler: unaryHandler(ProcedureListRuns, PacingServiceServer.ListRuns)},
		{MethodName: "GetRunMetrics", Handler: unaryHandler(ProcedureGetRunMetrics, PacingServiceServer.GetRunMetrics)},
		{MethodName: "GetRunTrace", Handler: unaryHandler(ProcedureGetRunTrace, PacingServiceServer.GetRunTrace)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamRunEvents", Handler: streamRunEventsHandler, ServerStreams: true},
	},
	Metadata: "pacing/v1/pacing.proto",
}

// RegisterPacingServiceServer registers srv on s.
func RegisterPacingServiceServer(s grpc.ServiceRegistrar, srv PacingServiceServer) {
	s.RegisterService(&PacingServiceDesc, srv)
}

// PacingGRPCServer implements PacingServiceServer over an API.
type PacingGRPCServer struct {
	api *API
	// PollInterval paces StreamRunEvents.
	PollInterval time.Duration
}

func NewPacingGRPCServer(api *API) *PacingGRPCServer {
	return &PacingGRPCServer{api: api, PollInterval: 500 * time.Millisecond}
}

func grpcError(err error) error {
	return status.Error(codeOf(err), err.Error())
}

func reply(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func decodeRunID(req *structpb.Struct) (string, error) {
	var in runIDRequest
	if err := fromStruct(req, &in); err != nil {
		return "", grpcError(err)
	}
	if in.RunID == "" {
		return "", status.Error(codes.InvalidArgument, ErrRunIDMissing.Error())
	}
	return in.RunID, nil
}

func (s *PacingGRPCServer) CreateRun(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in createRunRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, grpcError(err)
	}
	run, err := s.api.CreateRun(in)
	if err != nil {
		return nil, grpcError(err)
	}
	logger.Info("run created", "run_id", run.ID)
	return reply(map[string]any{"run": run})
}

func (s *PacingGRPCServer) StartRun(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID, err := decodeRunID(req)
	if err != nil {
		return nil, err
	}
	run, err := s.api.StartRun(runID)
	if err != nil {
		return nil, grpcError(err)
	}
	logger.Info("run started (executor)", "run_id", runID)
	return reply(map[string]any{"run": run})
}

func (s *PacingGRPCServer) StopRun(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID, err := decodeRunID(req)
	if err != nil {
		return nil, err
	}
	run, err := s.api.StopRun(runID)
	if err != nil {
		return nil, grpcError(err)
	}
	logger.Info("run cancelled", "run_id", runID)
	return reply(map[string]any{"run": run})
}

func (s *PacingGRPCServer) GetRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID, err := decodeRunID(req)
	if err != nil {
		return nil, err
	}
	run, err := s.api.GetRun(ctx, runID)
	if err != nil {
		return nil, grpcError(err)
	}
	return reply(map[string]any{"run": run})
}

func (s *PacingGRPCServer) ListRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in listRunsRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, grpcError(err)
	}
	runs, err := s.api.ListRuns(ctx, in)
	if err != nil {
		return nil, grpcError(err)
	}
	return reply(map[string]any{"runs": runs})
}

func (s *PacingGRPCServer) GetRunMetrics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID, err := decodeRunID(req)
	if err != nil {
		return nil, err
	}
	view, err := s.api.Metrics(ctx, runID)
	if err != nil {
		return nil, grpcError(err)
	}
	return reply(view)
}

func (s *PacingGRPCServer) GetRunTrace(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID, err := decodeRunID(req)
	if err != nil {
		return nil, err
	}
	view, err := s.api.Trace(ctx, runID)
	if err != nil {
		return nil, grpcError(err)
	}
	return reply(view)
}

type statusChanged struct {
	RunID    string             `json:"run_id"`
	AtUnixMs int64              `json:"at_unix_ms"`
	Previous models.RunStatus   `json:"previous,omitempty"`
	Current  models.RunStatus   `json:"current"`
	Summary  *models.RunSummary `json:"summary,omitempty"`
}

// StreamRunEvents sends the current status, then every status change, and
// returns once the run is terminal.
func (s *PacingGRPCServer) StreamRunEvents(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	runID, err := decodeRunID(req)
	if err != nil {
		return err
	}
	ctx := stream.Context()

	view, err := s.api.GetRun(ctx, runID)
	if err != nil {
		return grpcError(err)
	}

	send := func(previous models.RunStatus, v RunView) error {
		msg, err := reply(statusChanged{
			RunID:    runID,
			AtUnixMs: time.Now().UTC().UnixMilli(),
			Previous: previous,
			Current:  v.Status,
			Summary:  v.Summary,
		})
		if err != nil {
			return err
		}
		return stream.Send(msg)
	}

	if err := send("", view); err != nil {
		return err
	}
	previous := view.Status
	if previous.IsTerminal() {
		return nil
	}

	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			view, err := s.api.GetRun(ctx, runID)
			if err != nil {
				return grpcError(err)
			}
			if view.Status == previous {
				continue
			}
			if err := send(previous, view); err != nil {
				return err
			}
			previous = view.Status
			if previous.IsTerminal() {
				return nil
			}
		}
	}
}
