package paced

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// registerConnectHandlers exposes the unary PacingService methods over the
// Connect protocol on mux, backed by the same implementation as gRPC.
func registerConnectHandlers(mux *http.ServeMux, api *API) {
	srv := NewPacingGRPCServer(api)
	unary := map[string]unaryMethod{
		ProcedureCreateRun:     PacingServiceServer.CreateRun,
		ProcedureStartRun:      PacingServiceServer.StartRun,
		ProcedureStopRun:       PacingServiceServer.StopRun,
		ProcedureGetRun:        PacingServiceServer.GetRun,
		ProcedureListRuns:      PacingServiceServer.ListRuns,
		ProcedureGetRunMetrics: PacingServiceServer.GetRunMetrics,
		ProcedureGetRunTrace:   PacingServiceServer.GetRunTrace,
	}
	for procedure, call := range unary {
		mux.Handle(procedure, connect.NewUnaryHandler(procedure, connectUnary(srv, call)))
	}
}

func connectUnary(srv PacingServiceServer, call unaryMethod) func(context.Context, *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
		out, err := call(srv, ctx, req.Msg)
		if err != nil {
			st := status.Convert(err)
			return nil, connect.NewError(connect.Code(st.Code()), errors.New(st.Message()))
		}
		return connect.NewResponse(out), nil
	}
}
