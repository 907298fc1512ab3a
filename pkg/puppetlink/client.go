package puppetlink

import "github.com/bft-labs/puppetlink/internal/domain"

// NopClient ignores every inbound command. Embed it to implement only the
// callbacks you need.
type NopClient struct{}

func (NopClient) ValuesChanged(domain.ValuesChanged)                        {}
func (NopClient) ValuesModified(domain.ValuesModified)                      {}
func (NopClient) PixmapChanged(domain.PixmapChanged)                        {}
func (NopClient) InformationChanged(domain.InformationChanged)              {}
func (NopClient) ChildrenChanged(domain.ChildrenChanged)                    {}
func (NopClient) StatePreviewImagesChanged(domain.StatePreviewImageChanged) {}
func (NopClient) ComponentCompleted(domain.ComponentCompleted)              {}
func (NopClient) Token(domain.Token)                                        {}
func (NopClient) DebugOutput(domain.DebugOutput)                            {}
func (NopClient) SceneCreated(domain.SceneCreated)                          {}
func (NopClient) SelectionChanged(domain.ChangeSelection)                   {}
func (NopClient) HandlePuppetToCreator(domain.PuppetToCreator)              {}

var _ Client = NopClient{}
