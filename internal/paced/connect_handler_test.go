package paced

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestConnectHandlers(t *testing.T) {
	srv, exec := newTestHTTPServer(t)
	ctx := context.Background()

	create := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+ProcedureCreateRun)
	start := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+ProcedureStartRun)
	get := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+ProcedureGetRun)

	resp, err := create.CallUnary(ctx, connect.NewRequest(mustStruct(t, map[string]any{
		"run_id": "connect-run",
		"input":  map[string]any{"scenario_yaml": flatScenario},
	})))
	if err != nil {
		t.Fatalf("CreateRun error: %v", err)
	}
	if s := runStatusOf(t, resp.Msg); s != "pending" {
		t.Fatalf("expected pending, got %s", s)
	}

	if _, err := start.CallUnary(ctx, connect.NewRequest(mustStruct(t, map[string]any{"run_id": "connect-run"}))); err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	exec.Wait()

	got, err := get.CallUnary(ctx, connect.NewRequest(mustStruct(t, map[string]any{"run_id": "connect-run"})))
	if err != nil {
		t.Fatalf("GetRun error: %v", err)
	}
	if s := runStatusOf(t, got.Msg); s != "completed" {
		t.Fatalf("expected completed, got %s", s)
	}

	_, err = get.CallUnary(ctx, connect.NewRequest(mustStruct(t, map[string]any{"run_id": "missing"})))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Fatalf("expected CodeNotFound, got %v", err)
	}
	_, err = get.CallUnary(ctx, connect.NewRequest(mustStruct(t, map[string]any{})))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Fatalf("expected CodeInvalidArgument, got %v", err)
	}
}
