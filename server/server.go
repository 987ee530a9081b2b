// Package server exposes the execution pipeline over Connect and gRPC and
// provides an LSP server for assembly files.
package server

import (
	"fmt"
	"net"
	"net/http"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	"google.golang.org/grpc"

	"github.com/chazu/stackc/harness"
)

var log = commonlog.GetLogger("stackc.server")

// StackcServer serves the execution service. Connect (HTTP, CBOR bodies)
// and gRPC listen on separate addresses.
type StackcServer struct {
	exec *ExecuteService
	mux  *http.ServeMux
	grpc *grpc.Server
}

// New creates a StackcServer running programs through p.
func New(p *harness.Pipeline) *StackcServer {
	s := &StackcServer{
		exec: NewExecuteService(p),
		mux:  http.NewServeMux(),
		grpc: grpc.NewServer(),
	}

	s.mux.Handle(ExecuteProcedure, connect.NewUnaryHandler(
		ExecuteProcedure,
		s.exec.Execute,
		connect.WithCodec(cborCodec{}),
	))
	s.grpc.RegisterService(&executionServiceDesc, s.exec)

	return s
}

// Handler returns the Connect HTTP handler.
func (s *StackcServer) Handler() http.Handler {
	return s.mux
}

// ServeGRPC serves gRPC on lis until Stop is called.
func (s *StackcServer) ServeGRPC(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// ListenAndServe starts the Connect server on addr and, when grpcAddr is
// not empty, the gRPC server on grpcAddr. It returns when either fails.
func (s *StackcServer) ListenAndServe(addr, grpcAddr string) error {
	errs := make(chan error, 2)

	if grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("cannot listen on %s: %w", grpcAddr, err)
		}
		log.Noticef("gRPC listening on %s", lis.Addr())
		go func() { errs <- s.ServeGRPC(lis) }()
	}

	log.Noticef("Connect listening on http://%s%s", addr, ExecuteProcedure)
	go func() { errs <- http.ListenAndServe(addr, s.mux) }()

	err := <-errs
	s.Stop()
	return err
}

// Stop shuts down the gRPC server.
func (s *StackcServer) Stop() {
	s.grpc.Stop()
}
