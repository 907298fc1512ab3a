package domain

// Kind is the wire tag of a Command.
type Kind string

// Command kinds. The set is closed: adding a kind means rebuilding the host
// and the worker together.
const (
	KindCreateScene                  Kind = "CreateScene"
	KindClearScene                   Kind = "ClearScene"
	KindCreateInstances              Kind = "CreateInstances"
	KindRemoveInstances              Kind = "RemoveInstances"
	KindChangeValues                 Kind = "ChangeValues"
	KindChangeAuxiliaryValues        Kind = "ChangeAuxiliaryValues"
	KindChangeBindings               Kind = "ChangeBindings"
	KindChangeIds                    Kind = "ChangeIds"
	KindChangeFileURL                Kind = "ChangeFileURL"
	KindChangeState                  Kind = "ChangeState"
	KindChangeSelection              Kind = "ChangeSelection"
	KindCompleteComponent            Kind = "CompleteComponent"
	KindUpdateActiveScene            Kind = "UpdateActiveScene"
	KindView3DAction                 Kind = "View3DAction"
	KindRequestModelNodePreviewImage Kind = "RequestModelNodePreviewImage"
	KindToken                        Kind = "Token"
	KindEndPuppet                    Kind = "EndPuppet"
	KindSyncBarrier                  Kind = "SyncBarrier"
	KindPuppetAlive                  Kind = "PuppetAlive"

	KindValuesChanged            Kind = "ValuesChanged"
	KindValuesModified           Kind = "ValuesModified"
	KindPixmapChanged            Kind = "PixmapChanged"
	KindInformationChanged       Kind = "InformationChanged"
	KindChildrenChanged          Kind = "ChildrenChanged"
	KindStatePreviewImageChanged Kind = "StatePreviewImageChanged"
	KindComponentCompleted       Kind = "ComponentCompleted"
	KindDebugOutput              Kind = "DebugOutput"
	KindSceneCreated             Kind = "SceneCreated"
	KindPuppetToCreator          Kind = "PuppetToCreator"
)

// Command is one message of the puppet protocol. Only types in this package
// implement it.
type Command interface {
	Kind() Kind
	isCommand()
}

// PropertyValue assigns Value to property Name of instance InstanceID.
type PropertyValue struct {
	InstanceID int32  `json:"instanceId"`
	Name       string `json:"name"`
	Value      any    `json:"value,omitempty"`
	Dynamic    string `json:"dynamicTypeName,omitempty"`
}

// PropertyBinding assigns a binding expression to a property.
type PropertyBinding struct {
	InstanceID int32  `json:"instanceId"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

// Instance describes one node instance created in the worker scene.
type Instance struct {
	InstanceID    int32  `json:"instanceId"`
	TypeName      string `json:"typeName"`
	MajorVersion  int    `json:"majorVersion"`
	MinorVersion  int    `json:"minorVersion"`
	ComponentPath string `json:"componentPath,omitempty"`
	NodeSource    string `json:"nodeSource,omitempty"`
}

// IDContainer pairs an instance with its QML id.
type IDContainer struct {
	InstanceID int32  `json:"instanceId"`
	ID         string `json:"id"`
}

// Information is one piece of instance metadata reported by the worker.
type Information struct {
	InstanceID int32  `json:"instanceId"`
	Name       string `json:"name"`
	Value      any    `json:"value,omitempty"`
}

// ImageContainer carries a rendered image for an instance.
type ImageContainer struct {
	InstanceID int32  `json:"instanceId"`
	KeyNumber  int32  `json:"keyNumber"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Data       []byte `json:"data,omitempty"`
}

// CreateScene builds the initial scene in the worker.
type CreateScene struct {
	Instances     []Instance        `json:"instances,omitempty"`
	ReparentTo    map[int32]int32   `json:"reparentTo,omitempty"`
	IDs           []IDContainer     `json:"ids,omitempty"`
	Values        []PropertyValue   `json:"values,omitempty"`
	Bindings      []PropertyBinding `json:"bindings,omitempty"`
	Imports       []string          `json:"imports,omitempty"`
	FileURL       string            `json:"fileUrl"`
	ResourceURL   string            `json:"resourceUrl,omitempty"`
	StateInstance int32             `json:"stateInstanceId"`
	Language      string            `json:"language,omitempty"`
}

// ClearScene drops everything in the worker scene.
type ClearScene struct{}

// CreateInstances adds instances to an existing scene.
type CreateInstances struct {
	Instances []Instance `json:"instances"`
}

// RemoveInstances deletes instances.
type RemoveInstances struct {
	InstanceIDs []int32 `json:"instanceIds"`
}

// ChangeValues sets property values.
type ChangeValues struct {
	Values []PropertyValue `json:"values"`
}

// ChangeAuxiliaryValues sets designer-only auxiliary values.
type ChangeAuxiliaryValues struct {
	Values []PropertyValue `json:"values"`
}

// ChangeBindings sets binding expressions.
type ChangeBindings struct {
	Bindings []PropertyBinding `json:"bindings"`
}

// ChangeIds renames instances.
type ChangeIds struct {
	IDs []IDContainer `json:"ids"`
}

// ChangeFileURL points the worker at a new document.
type ChangeFileURL struct {
	FileURL string `json:"fileUrl"`
}

// ChangeState activates a state instance.
type ChangeState struct {
	StateInstanceID int32 `json:"stateInstanceId"`
}

// ChangeSelection travels both ways: the host tells the worker what is
// selected, the worker reports selection made in the 3D view.
type ChangeSelection struct {
	InstanceIDs []int32 `json:"instanceIds"`
}

// CompleteComponent finishes construction of the given instances.
type CompleteComponent struct {
	InstanceIDs []int32 `json:"instanceIds"`
}

// UpdateActiveScene switches the active 3D scene.
type UpdateActiveScene struct {
	Data map[string]any `json:"data"`
}

// View3DAction forwards a toolbar action to the 3D view.
type View3DAction struct {
	Action  string `json:"action"`
	Enabled bool   `json:"enabled"`
	Value   any    `json:"value,omitempty"`
}

// RequestModelNodePreviewImage asks for a preview image of one instance.
type RequestModelNodePreviewImage struct {
	InstanceID    int32  `json:"instanceId"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	ComponentPath string `json:"componentPath,omitempty"`
	RequestID     string `json:"requestId,omitempty"`
}

// Token is a round-trip marker: the host sends one, the worker echoes it
// back once all earlier commands are processed.
type Token struct {
	Name        string  `json:"name"`
	Number      int32   `json:"number"`
	InstanceIDs []int32 `json:"instanceIds,omitempty"`
}

// EndPuppet asks the worker to exit.
type EndPuppet struct{}

// SyncBarrier flushes the tracing channel. It is echoed by the connection
// layer and never reaches the application.
type SyncBarrier struct {
	Name string `json:"name"`
}

// PuppetAlive is the worker heartbeat.
type PuppetAlive struct{}

// ValuesChanged reports property values changed inside the worker.
type ValuesChanged struct {
	Values []PropertyValue `json:"values"`
}

// ValuesModified reports values edited interactively in the worker views.
type ValuesModified struct {
	Values []PropertyValue `json:"values"`
}

// PixmapChanged delivers rendered instance images.
type PixmapChanged struct {
	Images []ImageContainer `json:"images"`
}

// InformationChanged delivers instance metadata.
type InformationChanged struct {
	Information []Information `json:"information"`
}

// ChildrenChanged reports the children of a parent instance.
type ChildrenChanged struct {
	ParentInstanceID int32         `json:"parentInstanceId"`
	Children         []int32       `json:"children"`
	Information      []Information `json:"information,omitempty"`
}

// StatePreviewImageChanged delivers state preview images.
type StatePreviewImageChanged struct {
	Images []ImageContainer `json:"images"`
}

// ComponentCompleted reports instances whose construction finished.
type ComponentCompleted struct {
	InstanceIDs []int32 `json:"instanceIds"`
}

// DebugOutput carries worker-side warnings and errors.
type DebugOutput struct {
	Type        string  `json:"type"`
	Text        string  `json:"text"`
	InstanceIDs []int32 `json:"instanceIds,omitempty"`
}

// SceneCreated reports that CreateScene finished.
type SceneCreated struct {
	SceneID string `json:"sceneId,omitempty"`
}

// PuppetToCreator is the generic worker-to-host channel for small events
// (key presses in the 3D view, edit-3D state changes, ...).
type PuppetToCreator struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func (CreateScene) Kind() Kind                  { return KindCreateScene }
func (ClearScene) Kind() Kind                   { return KindClearScene }
func (CreateInstances) Kind() Kind              { return KindCreateInstances }
func (RemoveInstances) Kind() Kind              { return KindRemoveInstances }
func (ChangeValues) Kind() Kind                 { return KindChangeValues }
func (ChangeAuxiliaryValues) Kind() Kind        { return KindChangeAuxiliaryValues }
func (ChangeBindings) Kind() Kind               { return KindChangeBindings }
func (ChangeIds) Kind() Kind                    { return KindChangeIds }
func (ChangeFileURL) Kind() Kind                { return KindChangeFileURL }
func (ChangeState) Kind() Kind                  { return KindChangeState }
func (ChangeSelection) Kind() Kind              { return KindChangeSelection }
func (CompleteComponent) Kind() Kind            { return KindCompleteComponent }
func (UpdateActiveScene) Kind() Kind            { return KindUpdateActiveScene }
func (View3DAction) Kind() Kind                 { return KindView3DAction }
func (RequestModelNodePreviewImage) Kind() Kind { return KindRequestModelNodePreviewImage }
func (Token) Kind() Kind                        { return KindToken }
func (EndPuppet) Kind() Kind                    { return KindEndPuppet }
func (SyncBarrier) Kind() Kind                  { return KindSyncBarrier }
func (PuppetAlive) Kind() Kind                  { return KindPuppetAlive }
func (ValuesChanged) Kind() Kind                { return KindValuesChanged }
func (ValuesModified) Kind() Kind               { return KindValuesModified }
func (PixmapChanged) Kind() Kind                { return KindPixmapChanged }
func (InformationChanged) Kind() Kind           { return KindInformationChanged }
func (ChildrenChanged) Kind() Kind              { return KindChildrenChanged }
func (StatePreviewImageChanged) Kind() Kind     { return KindStatePreviewImageChanged }
func (ComponentCompleted) Kind() Kind           { return KindComponentCompleted }
func (DebugOutput) Kind() Kind                  { return KindDebugOutput }
func (SceneCreated) Kind() Kind                 { return KindSceneCreated }
func (PuppetToCreator) Kind() Kind              { return KindPuppetToCreator }

func (CreateScene) isCommand()                  {}
func (ClearScene) isCommand()                   {}
func (CreateInstances) isCommand()              {}
func (RemoveInstances) isCommand()              {}
func (ChangeValues) isCommand()                 {}
func (ChangeAuxiliaryValues) isCommand()        {}
func (ChangeBindings) isCommand()               {}
func (ChangeIds) isCommand()                    {}
func (ChangeFileURL) isCommand()                {}
func (ChangeState) isCommand()                  {}
func (ChangeSelection) isCommand()              {}
func (CompleteComponent) isCommand()            {}
func (UpdateActiveScene) isCommand()            {}
func (View3DAction) isCommand()                 {}
func (RequestModelNodePreviewImage) isCommand() {}
func (Token) isCommand()                        {}
func (EndPuppet) isCommand()                    {}
func (SyncBarrier) isCommand()                  {}
func (PuppetAlive) isCommand()                  {}
func (ValuesChanged) isCommand()                {}
func (ValuesModified) isCommand()               {}
func (PixmapChanged) isCommand()                {}
func (InformationChanged) isCommand()           {}
func (ChildrenChanged) isCommand()              {}
func (StatePreviewImageChanged) isCommand()     {}
func (ComponentCompleted) isCommand()           {}
func (DebugOutput) isCommand()                  {}
func (SceneCreated) isCommand()                 {}
func (PuppetToCreator) isCommand()              {}

// NewCommand returns a pointer to a zero value of the command with the given
// kind, ready to be unmarshalled into. ok is false for unknown kinds.
func NewCommand(kind Kind) (ptr any, ok bool) {
	switch kind {
	case KindCreateScene:
		return &CreateScene{}, true
	case KindClearScene:
		return &ClearScene{}, true
	case KindCreateInstances:
		return &CreateInstances{}, true
	case KindRemoveInstances:
		return &RemoveInstances{}, true
	case KindChangeValues:
		return &ChangeValues{}, true
	case KindChangeAuxiliaryValues:
		return &ChangeAuxiliaryValues{}, true
	case KindChangeBindings:
		return &ChangeBindings{}, true
	case KindChangeIds:
		return &ChangeIds{}, true
	case KindChangeFileURL:
		return &ChangeFileURL{}, true
	case KindChangeState:
		return &ChangeState{}, true
	case KindChangeSelection:
		return &ChangeSelection{}, true
	case KindCompleteComponent:
		return &CompleteComponent{}, true
	case KindUpdateActiveScene:
		return &UpdateActiveScene{}, true
	case KindView3DAction:
		return &View3DAction{}, true
	case KindRequestModelNodePreviewImage:
		return &RequestModelNodePreviewImage{}, true
	case KindToken:
		return &Token{}, true
	case KindEndPuppet:
		return &EndPuppet{}, true
	case KindSyncBarrier:
		return &SyncBarrier{}, true
	case KindPuppetAlive:
		return &PuppetAlive{}, true
	case KindValuesChanged:
		return &ValuesChanged{}, true
	case KindValuesModified:
		return &ValuesModified{}, true
	case KindPixmapChanged:
		return &PixmapChanged{}, true
	case KindInformationChanged:
		return &InformationChanged{}, true
	case KindChildrenChanged:
		return &ChildrenChanged{}, true
	case KindStatePreviewImageChanged:
		return &StatePreviewImageChanged{}, true
	case KindComponentCompleted:
		return &ComponentCompleted{}, true
	case KindDebugOutput:
		return &DebugOutput{}, true
	case KindSceneCreated:
		return &SceneCreated{}, true
	case KindPuppetToCreator:
		return &PuppetToCreator{}, true
	}
	return nil, false
}
