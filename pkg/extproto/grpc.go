// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extproto

import (
	"context"

	"github.com/samber/oops"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the gRPC service carrying the isolation channel.
const ServiceName = "extensionhost.v1.Channel"

const openMethod = "/" + ServiceName + "/Open"

// ChannelServer is implemented by the extension process. Open serves one
// channel until the host ends it.
type ChannelServer interface {
	Open(ctx context.Context, stream Stream) error
}

// ChannelServiceDesc describes the Channel service: a single bidirectional
// Open stream of structpb.Struct envelopes.
var ChannelServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChannelServer)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    "Open",
		Handler:       openHandler,
		ServerStreams: true,
		ClientStreams: true,
	}},
	Metadata: "extensionhost/v1/channel.proto",
}

// RegisterChannelServer registers srv on s.
func RegisterChannelServer(s grpc.ServiceRegistrar, srv ChannelServer) {
	s.RegisterService(&ChannelServiceDesc, srv)
}

func openHandler(srv any, stream grpc.ServerStream) error {
	return srv.(ChannelServer).Open(stream.Context(), &serverStream{stream: stream})
}

type serverStream struct {
	stream grpc.ServerStream
}

func (s *serverStream) Send(env *Envelope) error {
	msg, err := Encode(env)
	if err != nil {
		return err
	}
	return s.stream.SendMsg(msg)
}

func (s *serverStream) Recv() (*Envelope, error) {
	msg := &structpb.Struct{}
	if err := s.stream.RecvMsg(msg); err != nil {
		return nil, err
	}
	return DecodeEnvelope(msg)
}

// Close is a no-op; the server side ends when Open returns.
func (s *serverStream) Close() error { return nil }

// Client opens channels on a connection to an extension process.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Open starts a channel. The stream lives until Close is called on it,
// independent of ctx.
func (c *Client) Open(ctx context.Context) (Stream, error) {
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cs, err := c.conn.NewStream(sctx, &ChannelServiceDesc.Streams[0], openMethod)
	if err != nil {
		cancel()
		return nil, oops.In("extproto").Wrapf(err, "open isolation channel")
	}
	return &clientStream{stream: cs, cancel: cancel}, nil
}

type clientStream struct {
	stream grpc.ClientStream
	cancel context.CancelFunc
}

func (s *clientStream) Send(env *Envelope) error {
	msg, err := Encode(env)
	if err != nil {
		return err
	}
	return s.stream.SendMsg(msg)
}

func (s *clientStream) Recv() (*Envelope, error) {
	msg := &structpb.Struct{}
	if err := s.stream.RecvMsg(msg); err != nil {
		return nil, err
	}
	return DecodeEnvelope(msg)
}

func (s *clientStream) Close() error {
	err := s.stream.CloseSend()
	s.cancel()
	return err
}
