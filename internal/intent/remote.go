package intent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/prescription"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// ParseMethod is the full gRPC method name of the remote intent service.
// Requests and responses are google.protobuf.Struct messages.
const ParseMethod = "/coach.v1.IntentService/Parse"

// #region client-struct
// RemoteParser calls an external intent service (typically an LLM front end)
// over gRPC.
type RemoteParser struct {
	conn    grpc.ClientConnInterface
	closer  func() error
	timeout time.Duration
	locale  string
}
// #endregion client-struct

// #region constructor
// NewRemoteParser connects to the intent service at addr.
func NewRemoteParser(addr string, timeout time.Duration) (*RemoteParser, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &RemoteParser{conn: conn, closer: conn.Close, timeout: timeout, locale: "en"}, nil
}

// NewRemoteParserWithConn creates a RemoteParser over an existing connection.
// The caller keeps ownership of conn.
func NewRemoteParserWithConn(conn grpc.ClientConnInterface, timeout time.Duration) *RemoteParser {
	return &RemoteParser{conn: conn, timeout: timeout, locale: "en"}
}
// #endregion constructor

// #region close
// Close shuts down the gRPC connection if this parser opened it.
func (r *RemoteParser) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
// #endregion close

// #region parse
// Parse implements Parser.
func (r *RemoteParser) Parse(ctx context.Context, text string, now time.Time) (Intent, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := structpb.NewStruct(map[string]any{
		"text":   text,
		"now":    now.Format(time.RFC3339),
		"locale": r.locale,
	})
	if err != nil {
		return Intent{}, fmt.Errorf("build intent request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := r.conn.Invoke(ctx, ParseMethod, req, resp); err != nil {
		return Intent{}, fmt.Errorf("parse intent rpc: %w", err)
	}
	return decodeIntent(resp, now.Location())
}

func decodeIntent(s *structpb.Struct, loc *time.Location) (Intent, error) {
	f := s.GetFields()
	in := Intent{
		Sport:       prescription.ParseSport(f["sport"].GetStringValue()),
		DurationMin: int(f["duration_min"].GetNumberValue()),
		DistanceM:   int(f["distance_m"].GetNumberValue()),
		Title:       f["title"].GetStringValue(),
		Confidence:  int(f["confidence"].GetNumberValue()),
	}
	if f["sport"].GetStringValue() == "" {
		return Intent{}, errors.New("intent response has no sport")
	}
	date := f["date"].GetStringValue()
	if date == "" {
		return Intent{}, errors.New("intent response has no date")
	}
	d, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return Intent{}, fmt.Errorf("intent response date %q: %w", date, err)
	}
	in.Date = d
	return in, nil
}
// #endregion parse
