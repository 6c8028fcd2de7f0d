package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey  = "advisor"
	serviceName   = "microstep.advisor.v1.Advisor"
	jsonCodecName = "json"

	methodSuggestFirstActions = "/" + serviceName + "/SuggestFirstActions"
	methodSuggestStuckCauses  = "/" + serviceName + "/SuggestStuckCauses"
	methodSuggestPivot        = "/" + serviceName + "/SuggestPivot"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "MICROSTEP_ADVISOR",
	MagicCookieValue: "microstep",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type TaskContext struct {
	SessionID     string   `json:"session_id"`
	TaskID        string   `json:"task_id"`
	TaskTitle     string   `json:"task_title"`
	TaskNote      string   `json:"task_note"`
	CurrentAction string   `json:"current_action"`
	History       []string `json:"history"`
	Phase         string   `json:"phase"`
}

type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type PivotRequest struct {
	Context TaskContext `json:"context"`
	Reason  string      `json:"reason"`
}

type PivotResponse struct {
	Empathy string   `json:"empathy"`
	Pivots  []string `json:"pivots"`
}

type AdvisorServer interface {
	SuggestFirstActions(ctx context.Context, in *TaskContext) (*SuggestionsResponse, error)
	SuggestStuckCauses(ctx context.Context, in *TaskContext) (*SuggestionsResponse, error)
	SuggestPivot(ctx context.Context, in *PivotRequest) (*PivotResponse, error)
}

type AdvisorClient interface {
	SuggestFirstActions(ctx context.Context, in *TaskContext) (*SuggestionsResponse, error)
	SuggestStuckCauses(ctx context.Context, in *TaskContext) (*SuggestionsResponse, error)
	SuggestPivot(ctx context.Context, in *PivotRequest) (*PivotResponse, error)
}

type advisorClient struct {
	conn *grpc.ClientConn
}

func NewAdvisorClient(conn *grpc.ClientConn) AdvisorClient {
	return &advisorClient{conn: conn}
}

func (c *advisorClient) SuggestFirstActions(ctx context.Context, in *TaskContext) (*SuggestionsResponse, error) {
	out := &SuggestionsResponse{}
	if err := c.conn.Invoke(ctx, methodSuggestFirstActions, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *advisorClient) SuggestStuckCauses(ctx context.Context, in *TaskContext) (*SuggestionsResponse, error) {
	out := &SuggestionsResponse{}
	if err := c.conn.Invoke(ctx, methodSuggestStuckCauses, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *advisorClient) SuggestPivot(ctx context.Context, in *PivotRequest) (*PivotResponse, error) {
	out := &PivotResponse{}
	if err := c.conn.Invoke(ctx, methodSuggestPivot, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// unary adapts a typed server method to a grpc.MethodDesc handler.
func unary[Req any, Resp any](fullMethod string, call func(context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*Req)
			if !ok {
				return nil, fmt.Errorf("invalid request type %T", req)
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, in, info, handler)
	}
}

func RegisterAdvisorServer(server grpc.ServiceRegistrar, impl AdvisorServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*AdvisorServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "SuggestFirstActions", Handler: unary(methodSuggestFirstActions, impl.SuggestFirstActions)},
			{MethodName: "SuggestStuckCauses", Handler: unary(methodSuggestStuckCauses, impl.SuggestStuckCauses)},
			{MethodName: "SuggestPivot", Handler: unary(methodSuggestPivot, impl.SuggestPivot)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "advisor-rpc-v1",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl AdvisorServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterAdvisorServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewAdvisorClient(conn), nil
}

func PluginMap(impl AdvisorServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
