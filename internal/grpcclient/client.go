// Package grpcclient provides a client for the OCR inference gRPC server.
//
// The service schema is small and stable, so messages are built at runtime
// with dynamicpb instead of generated stubs.
package grpcclient

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/dynamicpb"

	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
	"github.com/GriffinCanCode/screenlate/internal/trace"
)

// Result is one OCR reading returned by the server.
type Result struct {
	Text       string
	Confidence float64
}

// Client wraps the inference OCR and health services.
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
	schema *schema
}

// New creates a new inference client. The connection is established lazily.
func New(addr string) (*Client, error) {
	s, err := loadSchema()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "build OCR schema")
	}

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                DefaultKeepaliveTime,
			Timeout:             DefaultKeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithChainUnaryInterceptor(trace.UnaryClientInterceptor()),
	)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.Unavailable, "dial inference server %s", addr)
	}

	return &Client{conn: conn, health: healthpb.NewHealthClient(conn), schema: s}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Check asks the server's health service whether the OCR service is serving.
func (c *Client) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return apperrors.FromGRPCError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return apperrors.Newf(apperrors.Unavailable, "OCR service is %s", resp.GetStatus())
	}
	return nil
}

// ExtractText performs OCR on an encoded image.
func (c *Client) ExtractText(ctx context.Context, image []byte, format, language string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, RecognizeTimeout)
	defer cancel()

	req := dynamicpb.NewMessage(c.schema.request)
	fields := c.schema.request.Fields()
	req.Set(fields.ByName("image_data"), protoBytes(image))
	req.Set(fields.ByName("format"), protoString(format))
	req.Set(fields.ByName("language"), protoString(language))

	resp := dynamicpb.NewMessage(c.schema.response)
	if err := c.conn.Invoke(ctx, recognizeMethod, req, resp); err != nil {
		return Result{}, apperrors.FromGRPCError(err)
	}

	out := c.schema.response.Fields()
	return Result{
		Text:       resp.Get(out.ByName("text")).String(),
		Confidence: resp.Get(out.ByName("confidence")).Float(),
	}, nil
}
