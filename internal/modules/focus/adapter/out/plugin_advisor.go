package out

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	advisorrpc "microstep/internal/modules/focus/adapter/out/rpc"
	"microstep/internal/modules/focus/domain"
	focusout "microstep/internal/modules/focus/port/out"
	apperrors "microstep/internal/platform/errors"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"go.uber.org/zap"
)

const defaultStartTimeout = 3 * time.Second

// PluginAdvisor talks to an advisor binary over go-plugin. The process is
// started on first use and restarted after a failed call.
type PluginAdvisor struct {
	binary string
	logger *zap.Logger

	mu     sync.Mutex
	client *plugin.Client
	rpc    advisorrpc.AdvisorClient
}

func NewPluginAdvisor(binary string, logger *zap.Logger) *PluginAdvisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PluginAdvisor{binary: binary, logger: logger}
}

var _ focusout.Advisor = (*PluginAdvisor)(nil)

func (a *PluginAdvisor) SuggestFirstActions(ctx context.Context, req domain.AdvisorContext) ([]string, error) {
	client, err := a.connect()
	if err != nil {
		return nil, err
	}
	in := toTaskContext(req)
	resp, err := client.SuggestFirstActions(ctx, &in)
	if err != nil {
		a.reset()
		return nil, fmt.Errorf("suggest first actions: %w", err)
	}
	return resp.Suggestions, nil
}

func (a *PluginAdvisor) SuggestStuckCauses(ctx context.Context, req domain.AdvisorContext) ([]string, error) {
	client, err := a.connect()
	if err != nil {
		return nil, err
	}
	in := toTaskContext(req)
	resp, err := client.SuggestStuckCauses(ctx, &in)
	if err != nil {
		a.reset()
		return nil, fmt.Errorf("suggest stuck causes: %w", err)
	}
	return resp.Suggestions, nil
}

func (a *PluginAdvisor) SuggestPivot(ctx context.Context, req domain.AdvisorContext, reason string) (domain.PivotOffer, error) {
	client, err := a.connect()
	if err != nil {
		return domain.PivotOffer{}, err
	}
	resp, err := client.SuggestPivot(ctx, &advisorrpc.PivotRequest{Context: toTaskContext(req), Reason: reason})
	if err != nil {
		a.reset()
		return domain.PivotOffer{}, fmt.Errorf("suggest pivot: %w", err)
	}
	return domain.PivotOffer{Empathy: resp.Empathy, Pivots: resp.Pivots}, nil
}

// Close stops the plugin process if it is running.
func (a *PluginAdvisor) Close() {
	a.reset()
}

func (a *PluginAdvisor) connect() (advisorrpc.AdvisorClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rpc != nil && a.client != nil && !a.client.Exited() {
		return a.rpc, nil
	}
	if a.binary == "" {
		return nil, fmt.Errorf("%w: no advisor binary configured", apperrors.ErrAdvisorUnavailable)
	}

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  advisorrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          advisorrpc.PluginMap(nil),
		Cmd:              exec.Command(a.binary),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:   "advisor",
			Output: zap.NewStdLog(a.logger).Writer(),
			Level:  hclog.Warn,
		}),
	})
	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("%w: start plugin: %v", apperrors.ErrAdvisorUnavailable, err)
	}
	raw, err := rpcClient.Dispense(advisorrpc.PluginMapKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("%w: dispense plugin: %v", apperrors.ErrAdvisorUnavailable, err)
	}
	typed, ok := raw.(advisorrpc.AdvisorClient)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("%w: advisor rpc client type mismatch", apperrors.ErrAdvisorUnavailable)
	}
	a.client = client
	a.rpc = typed
	a.logger.Info("advisor plugin started", zap.String("binary", a.binary))
	return typed, nil
}

func (a *PluginAdvisor) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		a.client.Kill()
	}
	a.client = nil
	a.rpc = nil
}

func toTaskContext(req domain.AdvisorContext) advisorrpc.TaskContext {
	return advisorrpc.TaskContext{
		SessionID:     req.SessionID,
		TaskID:        req.TaskID,
		TaskTitle:     req.TaskTitle,
		TaskNote:      req.TaskNote,
		CurrentAction: req.CurrentAction,
		History:       append([]string{}, req.History...),
		Phase:         string(req.Phase),
	}
}
