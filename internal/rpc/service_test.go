package rpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
	"github.com/nyashahama/vitality-blueprint-backend/internal/rpc"
	"github.com/nyashahama/vitality-blueprint-backend/internal/ruleset"
	"github.com/nyashahama/vitality-blueprint-backend/internal/scoring"
)

func defaultRules(t *testing.T) *ruleset.Ruleset {
	t.Helper()
	rs, err := ruleset.Default()
	if err != nil {
		t.Fatalf("ruleset.Default: %v", err)
	}
	return rs
}

// dial starts an in-memory gRPC server and returns a connection to it.
func dial(t *testing.T, rs *ruleset.Ruleset) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := rpc.NewServer(rs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestAssess_MatchesLocalRun(t *testing.T) {
	rs := defaultRules(t)
	client := rpc.NewClient(dial(t, rs))

	in := assessment.Input{
		Persona: "executive",
		Answers: scoring.Answers{
			"1.1": "Always",
			"2.1": "Often",
			"4.1": "Always",
			"6.4": "5.5 hours",
			"BG7": []any{"Persistent fatigue"},
		},
		Biological: &scoring.BiologicalShape{Age: 52, Gender: "female"},
	}

	got, err := client.Assess(context.Background(), in)
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}

	want, err := assessment.Run(rs, in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(want)
	if !bytes.Equal(gotJSON, wantJSON) {
		t.Errorf("remote result differs from local run\n got: %s\nwant: %s", gotJSON, wantJSON)
	}
}

func TestAssess_EmptySubmission_InvalidArgument(t *testing.T) {
	conn := dial(t, defaultRules(t))

	_, err := rpc.NewClient(conn).Assess(context.Background(), assessment.Input{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestAssess_MalformedAnswers_InvalidArgument(t *testing.T) {
	conn := dial(t, defaultRules(t))

	req, err := structpb.NewStruct(map[string]any{"answers": "not an object"})
	if err != nil {
		t.Fatal(err)
	}
	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), "/"+rpc.ServiceName+"/Assess", req, out)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestDescribeRules(t *testing.T) {
	rs := defaultRules(t)
	got, err := rpc.NewClient(dial(t, rs)).DescribeRules(context.Background())
	if err != nil {
		t.Fatalf("DescribeRules: %v", err)
	}

	fields := got.GetFields()
	if v := fields["version"].GetStringValue(); v != rs.Version {
		t.Errorf("version: got %q, want %q", v, rs.Version)
	}
	if fp := fields["fingerprint"].GetStringValue(); fp != rs.Fingerprint() {
		t.Errorf("fingerprint: got %q, want %q", fp, rs.Fingerprint())
	}
	if n := len(fields["composites"].GetListValue().GetValues()); n != len(rs.Composites) {
		t.Errorf("composites: got %d, want %d", n, len(rs.Composites))
	}
}

func TestHealth_Serving(t *testing.T) {
	conn := dial(t, defaultRules(t))

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{
		Service: rpc.ServiceName,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status: got %v, want SERVING", resp.GetStatus())
	}
}
