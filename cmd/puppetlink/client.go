package main

import (
	"github.com/rs/zerolog"

	"github.com/bft-labs/puppetlink/pkg/puppetlink"
)

// loggingClient logs what the workers report.
type loggingClient struct {
	puppetlink.NopClient
	logger zerolog.Logger
}

func (c *loggingClient) ComponentCompleted(cmd puppetlink.ComponentCompleted) {
	c.logger.Info().Interface("instances", cmd.InstanceIDs).Msg("component completed")
}

func (c *loggingClient) SceneCreated(cmd puppetlink.SceneCreated) {
	c.logger.Info().Interface("scene", cmd).Msg("scene created")
}

func (c *loggingClient) Token(cmd puppetlink.Token) {
	c.logger.Debug().Str("name", cmd.Name).Int32("number", cmd.Number).Msg("token")
}

func (c *loggingClient) DebugOutput(cmd puppetlink.DebugOutput) {
	c.logger.Info().Str("type", cmd.Type).Str("text", cmd.Text).Msg("puppet debug output")
}

func (c *loggingClient) HandlePuppetToCreator(cmd puppetlink.PuppetToCreator) {
	c.logger.Debug().Interface("payload", cmd).Msg("puppet to creator")
}
