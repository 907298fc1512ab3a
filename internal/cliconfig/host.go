package cliconfig

import "github.com/bft-labs/puppetlink/pkg/puppetlink"

// HostConfig converts the CLI configuration into a library configuration.
func (c Config) HostConfig() puppetlink.Config {
	hc := puppetlink.DefaultConfig()
	hc.PuppetPath = c.PuppetPath
	hc.WorkingDir = c.WorkingDir
	hc.Roles = c.ParsedRoles()
	hc.CustomArgs = c.CustomArgs
	hc.ImportPaths = c.ImportPaths
	hc.FileMapping = c.FileMapping
	hc.Env = c.Env
	hc.AliveInterval = c.AliveInterval
	hc.StartTimeout = c.StartTimeout
	hc.ConnectTimeout = c.ConnectTimeout
	hc.ForwardOutput = c.ForwardOutput
	hc.DebugPuppet = c.DebugPuppet
	hc.SocketDir = c.SocketDir
	hc.RenderBackend = c.RenderBackend
	hc.UsePTY = c.UsePTY
	hc.RestartAttempts = c.RestartAttempts
	return hc
}
