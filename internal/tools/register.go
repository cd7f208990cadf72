package tools

import (
	"github.com/haasonsaas/sentry/internal/toolregistry"
	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

// Config configures the builtin tool set registered at startup.
type Config struct {
	Workspace string // root for read/write file tools
	Shell     string // shell binary for ShellTool, defaults to /bin/sh
}

// RegisterBuiltins registers every builtin tool into reg with its
// default risk tag (§4.4): read-only filesystem/network ⇒ green,
// local filesystem writes ⇒ yellow, arbitrary shell and
// service-impacting container actions ⇒ red. None of these are
// IsDynamic, so the registry's dynamic-tool-starts-red rule does not
// apply to them.
func RegisterBuiltins(reg *toolregistry.Registry, cfg Config) error {
	writeCfg := WriteFileConfig{Workspace: cfg.Workspace}

	specs := []struct {
		spec    orchtypes.ToolSpec
		handler toolregistry.Handler
	}{
		{
			spec: orchtypes.ToolSpec{
				Name: "read_file", Description: "Read a file from the workspace.",
				InputSchema: ReadFileSchema, Risk: orchtypes.RiskGreen, Source: "builtin",
			},
			handler: NewReadFileTool(writeCfg),
		},
		{
			spec: orchtypes.ToolSpec{
				Name: "write_file", Description: "Write a file's full contents in the workspace.",
				InputSchema: WriteFileSchema, Risk: orchtypes.RiskYellow, Source: "builtin",
			},
			handler: NewWriteFileTool(writeCfg),
		},
		{
			spec: orchtypes.ToolSpec{
				Name: "http_get", Description: "Fetch a URL over HTTP GET.",
				InputSchema: HTTPGetSchema, Risk: orchtypes.RiskGreen, Source: "builtin",
			},
			handler: NewHTTPGetTool(),
		},
		{
			spec: orchtypes.ToolSpec{
				Name: "container_list", Description: "List containers and their status.",
				InputSchema: ContainerListSchema, Risk: orchtypes.RiskGreen, Source: "builtin",
			},
			handler: &ContainerListTool{},
		},
		{
			spec: orchtypes.ToolSpec{
				Name: "container_restart", Description: "Restart a named container.",
				InputSchema: ContainerRestartSchema, Risk: orchtypes.RiskRed, Source: "builtin",
			},
			handler: &ContainerRestartTool{},
		},
		{
			spec: orchtypes.ToolSpec{
				Name: "shell", Description: "Run a shell command.",
				InputSchema: ShellSchema, Risk: orchtypes.RiskRed, Source: "builtin",
			},
			handler: &ShellTool{Shell: cfg.Shell},
		},
	}

	for _, s := range specs {
		if err := reg.Register(s.spec, s.handler, false); err != nil {
			return err
		}
	}
	return nil
}
