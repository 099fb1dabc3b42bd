package format

// FlowChartRecord is the persisted form of a flow chart: every node with its ports,
// then every connector. GUIDs are written in their canonical string form.
type FlowChartRecord struct {
	GUID                    string            `yaml:"guid" json:"guid" msgpack:"guid"`
	Type                    string            `yaml:"type" json:"type" msgpack:"type"`
	AllowCircularConnection bool              `yaml:"allow_circular_connection" json:"allow_circular_connection" msgpack:"allow_circular_connection"`
	Viewport                ViewportRecord    `yaml:"viewport" json:"viewport" msgpack:"viewport"`
	Nodes                   []NodeRecord      `yaml:"nodes" json:"nodes" msgpack:"nodes"`
	Connectors              []ConnectorRecord `yaml:"connectors" json:"connectors" msgpack:"connectors"`
}

// ViewportRecord is the persisted pan and zoom.
type ViewportRecord struct {
	OffsetX float64 `yaml:"offset_x" json:"offset_x" msgpack:"offset_x"`
	OffsetY float64 `yaml:"offset_y" json:"offset_y" msgpack:"offset_y"`
	Scale   float64 `yaml:"scale" json:"scale" msgpack:"scale"`
}

// NodeRecord is the persisted form of a node with its four port groups.
type NodeRecord struct {
	GUID                    string       `yaml:"guid" json:"guid" msgpack:"guid"`
	Type                    string       `yaml:"type" json:"type" msgpack:"type"`
	Owner                   string       `yaml:"owner" json:"owner" msgpack:"owner"`
	ViewType                string       `yaml:"view_type,omitempty" json:"view_type,omitempty" msgpack:"view_type,omitempty"`
	Header                  string       `yaml:"header" json:"header" msgpack:"header"`
	HeaderBackgroundColor   string       `yaml:"header_background_color" json:"header_background_color" msgpack:"header_background_color"`
	HeaderFontColor         string       `yaml:"header_font_color" json:"header_font_color" msgpack:"header_font_color"`
	AllowEditingHeader      bool         `yaml:"allow_editing_header" json:"allow_editing_header" msgpack:"allow_editing_header"`
	AllowCircularConnection bool         `yaml:"allow_circular_connection" json:"allow_circular_connection" msgpack:"allow_circular_connection"`
	X                       float64      `yaml:"x" json:"x" msgpack:"x"`
	Y                       float64      `yaml:"y" json:"y" msgpack:"y"`
	ZIndex                  int          `yaml:"z_index" json:"z_index" msgpack:"z_index"`
	InputFlowPorts          []PortRecord `yaml:"input_flow_ports,omitempty" json:"input_flow_ports,omitempty" msgpack:"input_flow_ports,omitempty"`
	OutputFlowPorts         []PortRecord `yaml:"output_flow_ports,omitempty" json:"output_flow_ports,omitempty" msgpack:"output_flow_ports,omitempty"`
	InputPropertyPorts      []PortRecord `yaml:"input_property_ports,omitempty" json:"input_property_ports,omitempty" msgpack:"input_property_ports,omitempty"`
	OutputPropertyPorts     []PortRecord `yaml:"output_property_ports,omitempty" json:"output_property_ports,omitempty" msgpack:"output_property_ports,omitempty"`
}

// PortRecord is the persisted form of a flow or property port.
type PortRecord struct {
	GUID                string `yaml:"guid" json:"guid" msgpack:"guid"`
	Type                string `yaml:"type" json:"type" msgpack:"type"`
	Owner               string `yaml:"owner" json:"owner" msgpack:"owner"`
	ViewType            string `yaml:"view_type,omitempty" json:"view_type,omitempty" msgpack:"view_type,omitempty"`
	IsInput             bool   `yaml:"is_input" json:"is_input" msgpack:"is_input"`
	Name                string `yaml:"name" json:"name" msgpack:"name"`
	DisplayName         string `yaml:"display_name" json:"display_name" msgpack:"display_name"`
	AllowMultipleInput  bool   `yaml:"allow_multiple_input" json:"allow_multiple_input" msgpack:"allow_multiple_input"`
	AllowMultipleOutput bool   `yaml:"allow_multiple_output" json:"allow_multiple_output" msgpack:"allow_multiple_output"`
	IsPortEnabled       bool   `yaml:"is_port_enabled" json:"is_port_enabled" msgpack:"is_port_enabled"`
	IsEnabled           bool   `yaml:"is_enabled" json:"is_enabled" msgpack:"is_enabled"`

	// Property ports only.
	ValueType     string `yaml:"value_type,omitempty" json:"value_type,omitempty" msgpack:"value_type,omitempty"`
	RealValueType string `yaml:"real_value_type,omitempty" json:"real_value_type,omitempty" msgpack:"real_value_type,omitempty"`
	HasEditor     bool   `yaml:"has_editor,omitempty" json:"has_editor,omitempty" msgpack:"has_editor,omitempty"`
	Value         any    `yaml:"value" json:"value" msgpack:"value"`
}

// ConnectorRecord is the persisted form of a connector.
type ConnectorRecord struct {
	GUID      string `yaml:"guid" json:"guid" msgpack:"guid"`
	Type      string `yaml:"type" json:"type" msgpack:"type"`
	Owner     string `yaml:"owner" json:"owner" msgpack:"owner"`
	ViewType  string `yaml:"view_type,omitempty" json:"view_type,omitempty" msgpack:"view_type,omitempty"`
	StartPort string `yaml:"start_port" json:"start_port" msgpack:"start_port"`
	EndPort   string `yaml:"end_port" json:"end_port" msgpack:"end_port"`
}

// Ports returns the port records of all four groups in persisted order.
func (n *NodeRecord) Ports() []PortRecord {
	var all []PortRecord
	all = append(all, n.InputFlowPorts...)
	all = append(all, n.OutputFlowPorts...)
	all = append(all, n.InputPropertyPorts...)
	all = append(all, n.OutputPropertyPorts...)
	return all
}
