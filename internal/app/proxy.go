package app

import (
	"context"
	"fmt"

	"github.com/bft-labs/puppetlink/internal/domain"
	"github.com/bft-labs/puppetlink/internal/ports"
)

// ServerProxy is the typed facade over a Manager. Outbound methods wrap
// their argument in a command and write it to every worker; inbound
// commands are routed to the Client.
//
// A proxy sets up its manager on construction and shuts it down on Close.
type ServerProxy struct {
	manager *Manager
	client  ports.Client
}

// NewServerProxy sets up m and returns a proxy routing inbound commands to
// client.
func NewServerProxy(ctx context.Context, m *Manager, client ports.Client, src SceneSource) (*ServerProxy, error) {
	p := &ServerProxy{manager: m, client: client}
	if err := m.SetUp(ctx, p, src); err != nil {
		return nil, fmt.Errorf("set up puppets: %w", err)
	}
	return p, nil
}

// Close shuts the manager down.
func (p *ServerProxy) Close() error {
	p.manager.ShutDown()
	return nil
}

// Manager returns the underlying connection manager.
func (p *ServerProxy) Manager() *Manager {
	return p.manager
}

// DispatchCommand routes an inbound command to the client. A command kind
// without a client callback panics: it means the dispatch switch was not
// updated when the command was added.
func (p *ServerProxy) DispatchCommand(cmd domain.Command, role string) {
	switch c := cmd.(type) {
	case domain.ValuesChanged:
		p.client.ValuesChanged(c)
	case domain.ValuesModified:
		p.client.ValuesModified(c)
	case domain.PixmapChanged:
		p.client.PixmapChanged(c)
	case domain.InformationChanged:
		p.client.InformationChanged(c)
	case domain.ChildrenChanged:
		p.client.ChildrenChanged(c)
	case domain.StatePreviewImageChanged:
		p.client.StatePreviewImagesChanged(c)
	case domain.ComponentCompleted:
		p.client.ComponentCompleted(c)
	case domain.Token:
		p.client.Token(c)
	case domain.DebugOutput:
		p.client.DebugOutput(c)
	case domain.SceneCreated:
		p.client.SceneCreated(c)
	case domain.ChangeSelection:
		p.client.SelectionChanged(c)
	case domain.PuppetToCreator:
		p.client.HandlePuppetToCreator(c)
	default:
		panic(fmt.Sprintf("puppetlink: no dispatch for command %q from %s", cmd.Kind(), role))
	}
}

func (p *ServerProxy) CreateScene(cmd domain.CreateScene) error {
	return p.manager.WriteCommand(cmd)
}

func (p *ServerProxy) ClearScene() error {
	return p.manager.WriteCommand(domain.ClearScene{})
}

func (p *ServerProxy) CreateInstances(cmd domain.CreateInstances) error {
	return p.manager.WriteCommand(cmd)
}

func (p *ServerProxy) RemoveInstances(cmd domain.RemoveInstances) error {
	return p.manager.WriteCommand(cmd)
}

func (p *ServerProxy) ChangePropertyValues(cmd domain.ChangeValues) error {
	return p.manager.WriteCommand(cmd)
}

func (p *ServerProxy) ChangeAuxiliaryValues(cmd domain.ChangeAuxiliaryValues) error {
	return p.manager.WriteCommand(cmd)
}

func (p *ServerProxy) ChangePropertyBindings(cmd domain.ChangeBindings) error {
	return p.manager.WriteCommand(cmd)
}

func (p *ServerProxy) ChangeIds(cmd domain.ChangeIds) error {
	return p.manager.WriteCommand(cmd)
}

func (p *ServerProxy) ChangeFileURL(cmd domain.ChangeFileURL) error {
	return p.manager.WriteCommand(cmd)
}

func (p *ServerProxy) ChangeState(cmd domain.ChangeState) error {
	return p.manager.WriteCommand(cmd)
}

func (p *ServerProxy) ChangeSelection(cmd domain.ChangeSelection) error {
	return p.manager.WriteCommand(cmd)
}

func (p *ServerProxy) CompleteComponent(cmd domain.CompleteComponent) error {
	return p.manager.WriteCommand(cmd)
}

func (p *ServerProxy) UpdateActiveScene(cmd domain.UpdateActiveScene) error {
	return p.manager.WriteCommand(cmd)
}

func (p *ServerProxy) View3DAction(cmd domain.View3DAction) error {
	return p.manager.WriteCommand(cmd)
}

func (p *ServerProxy) RequestModelNodePreviewImage(cmd domain.RequestModelNodePreviewImage) error {
	return p.manager.WriteCommand(cmd)
}

func (p *ServerProxy) Token(cmd domain.Token) error {
	return p.manager.WriteCommand(cmd)
}

// SyncBarrier sends a tracing barrier. Workers consume it without replying.
func (p *ServerProxy) SyncBarrier(name string) error {
	return p.manager.WriteCommand(domain.SyncBarrier{Name: name})
}
