package main

import (
	"os"

	advisorrpc "microstep/internal/modules/focus/adapter/out/rpc"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "advisor",
		Output:     os.Stderr,
		Level:      hclog.Info,
		JSONFormat: true,
	})
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: advisorrpc.HandshakeConfig,
		Plugins:         advisorrpc.PluginMap(&server{logger: logger}),
		GRPCServer:      plugin.DefaultGRPCServer,
		Logger:          logger,
	})
}
