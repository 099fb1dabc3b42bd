package domain

// Property names raised in PropertyChange and used by SetProperty commands.
const (
	PropNodes                   = "Nodes"
	PropConnectors              = "Connectors"
	PropViewport                = "Viewport"
	PropHeader                  = "Header"
	PropHeaderBackgroundColor   = "HeaderBackgroundColor"
	PropHeaderFontColor         = "HeaderFontColor"
	PropAllowEditingHeader      = "AllowEditingHeader"
	PropAllowCircularConnection = "AllowCircularConnection"
	PropX                       = "X"
	PropY                       = "Y"
	PropZIndex                  = "ZIndex"
	PropIsSelected              = "IsSelected"
	PropExecutionState          = "ExecutionState"
	PropPorts                   = "Ports"
	PropDisplayName             = "DisplayName"
	PropIsPortEnabled           = "IsPortEnabled"
	PropIsEnabled               = "IsEnabled"
	PropValue                   = "Value"
	PropStartPort               = "StartPort"
	PropEndPort                 = "EndPort"
)

// Transaction names used by edits that record themselves.
const (
	TransactionSetProperty = "Setting Property"
)

// Type identifiers written to persisted documents.
const (
	TypeFlowChart    = "nodegraph.FlowChart"
	TypeNode         = "nodegraph.Node"
	TypeFlowPort     = "nodegraph.FlowPort"
	TypePropertyPort = "nodegraph.PropertyPort"
	TypeConnector    = "nodegraph.Connector"
)
