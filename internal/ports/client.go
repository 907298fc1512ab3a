package ports

import "github.com/bft-labs/puppetlink/internal/domain"

// Client receives the inbound commands of all worker connections.
//
// Calls for one connection arrive in the order the worker sent them. Calls
// for different connections may run concurrently, so implementations must
// be safe for concurrent use.
type Client interface {
	ValuesChanged(domain.ValuesChanged)
	ValuesModified(domain.ValuesModified)
	PixmapChanged(domain.PixmapChanged)
	InformationChanged(domain.InformationChanged)
	ChildrenChanged(domain.ChildrenChanged)
	StatePreviewImagesChanged(domain.StatePreviewImageChanged)
	ComponentCompleted(domain.ComponentCompleted)
	Token(domain.Token)
	DebugOutput(domain.DebugOutput)
	SceneCreated(domain.SceneCreated)
	SelectionChanged(domain.ChangeSelection)
	HandlePuppetToCreator(domain.PuppetToCreator)
}

// Dispatcher receives every command the connection layer does not consume
// itself, tagged with the role it came from.
type Dispatcher interface {
	DispatchCommand(cmd domain.Command, role string)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(cmd domain.Command, role string)

func (f DispatcherFunc) DispatchCommand(cmd domain.Command, role string) {
	f(cmd, role)
}
