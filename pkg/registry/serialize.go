package registry

import (
	"encoding"
	"fmt"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/format"
	"github.com/aretw0/nodegraph/pkg/schema"
	"github.com/google/uuid"
)

// FlowChartRecord converts fc into its persisted form.
func (r *Registry) FlowChartRecord(fc *domain.FlowChart) format.FlowChartRecord {
	vp := fc.Viewport()
	rec := format.FlowChartRecord{
		GUID:                    fc.GUID().String(),
		Type:                    domain.TypeFlowChart,
		AllowCircularConnection: fc.AllowCircularConnection(),
		Viewport:                format.ViewportRecord{OffsetX: vp.OffsetX, OffsetY: vp.OffsetY, Scale: vp.Scale},
	}
	for _, n := range fc.Nodes() {
		rec.Nodes = append(rec.Nodes, nodeRecord(n))
	}
	for _, c := range fc.Connectors() {
		rec.Connectors = append(rec.Connectors, connectorRecord(c))
	}
	return rec
}

func nodeRecord(n *domain.Node) format.NodeRecord {
	rec := format.NodeRecord{
		GUID:                    n.GUID().String(),
		Type:                    n.Type(),
		Owner:                   n.Owner().GUID().String(),
		ViewType:                n.ViewType(),
		Header:                  n.Header(),
		HeaderBackgroundColor:   n.HeaderBackgroundColor().String(),
		HeaderFontColor:         n.HeaderFontColor().String(),
		AllowEditingHeader:      n.AllowEditingHeader(),
		AllowCircularConnection: n.AllowCircularConnection(),
		X:                       n.X(),
		Y:                       n.Y(),
		ZIndex:                  n.ZIndex(),
	}
	for _, g := range domain.PortGroups {
		var ports []format.PortRecord
		for _, p := range n.Ports(g) {
			ports = append(ports, portRecord(p))
		}
		switch g {
		case domain.InputFlowPorts:
			rec.InputFlowPorts = ports
		case domain.OutputFlowPorts:
			rec.OutputFlowPorts = ports
		case domain.InputPropertyPorts:
			rec.InputPropertyPorts = ports
		case domain.OutputPropertyPorts:
			rec.OutputPropertyPorts = ports
		}
	}
	return rec
}

func portRecord(p *domain.Port) format.PortRecord {
	rec := format.PortRecord{
		GUID:                p.GUID().String(),
		Type:                domain.TypeFlowPort,
		Owner:               p.Owner().GUID().String(),
		ViewType:            p.ViewType(),
		IsInput:             p.IsInput(),
		Name:                p.Name(),
		DisplayName:         p.DisplayName(),
		AllowMultipleInput:  p.AllowMultipleInput(),
		AllowMultipleOutput: p.AllowMultipleOutput(),
		IsPortEnabled:       p.IsPortEnabled(),
		IsEnabled:           p.IsEnabled(),
	}
	if p.IsProperty() {
		v := p.OwnValue()
		rec.Type = domain.TypePropertyPort
		rec.ValueType = p.ValueType().Name()
		rec.RealValueType = realTypeName(p.ValueType(), v)
		rec.HasEditor = p.HasEditor()
		rec.Value = persistValue(v)
	}
	return rec
}

func connectorRecord(c *domain.Connector) format.ConnectorRecord {
	return format.ConnectorRecord{
		GUID:      c.GUID().String(),
		Type:      domain.TypeConnector,
		Owner:     c.Owner().GUID().String(),
		ViewType:  c.ViewType(),
		StartPort: c.StartPort().String(),
		EndPort:   c.EndPort().String(),
	}
}

// realTypeName names the concrete type of v. It differs from the declared type only for "any" ports.
func realTypeName(declared schema.Type, v any) string {
	if declared.Name() != "any" {
		return declared.Name()
	}
	switch v.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case domain.Color:
		return "color"
	}
	return ""
}

// persistValue writes text-marshalable values such as colors as strings.
func persistValue(v any) any {
	if m, ok := v.(encoding.TextMarshaler); ok {
		text, err := m.MarshalText()
		if err == nil {
			return string(text)
		}
	}
	return v
}

func (r *Registry) SerializeFlowChart(fc *domain.FlowChart) ([]byte, error) {
	return r.codec.Marshal(r.FlowChartRecord(fc))
}

func (r *Registry) SerializeNode(n *domain.Node) ([]byte, error) {
	return r.codec.Marshal(nodeRecord(n))
}

func (r *Registry) SerializeNodePort(p *domain.Port) ([]byte, error) {
	return r.codec.Marshal(portRecord(p))
}

func (r *Registry) SerializeConnector(c *domain.Connector) ([]byte, error) {
	return r.codec.Marshal(connectorRecord(c))
}

// LoadFlowChart decodes a whole document with the registry codec and builds it.
func (r *Registry) LoadFlowChart(data []byte) (*domain.FlowChart, error) {
	var rec format.FlowChartRecord
	if err := r.codec.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformed, err)
	}
	return r.LoadFlowChartRecord(rec)
}

// LoadFlowChartRecord builds a flow chart from its persisted form.
//
// Nodes with their ports are loaded first, then connectors resolve their ports by
// GUID. Entities built before a failure stay registered and the partial flow chart
// is returned with the error. A live flow chart with the same GUID is replaced.
func (r *Registry) LoadFlowChartRecord(rec format.FlowChartRecord) (*domain.FlowChart, error) {
	id, err := parseGUID(rec.GUID, "flowchart")
	if err != nil {
		return nil, err
	}
	if rec.Type != "" && rec.Type != domain.TypeFlowChart {
		return nil, fmt.Errorf("%w: flowchart %s has type %q", domain.ErrMalformed, id, rec.Type)
	}
	if err := r.replaceable(id, domain.KindFlowChart); err != nil {
		return nil, err
	}
	r.DestroyFlowChart(id)

	fc := r.newFlowChart(id)
	fc.SetAllowCircularConnection(rec.AllowCircularConnection)
	fc.SetViewport(viewport(rec.Viewport))
	r.addFlowChart(fc)

	nodes, err := r.loadNodes(fc, rec.Nodes)
	if err != nil {
		return fc, err
	}
	connectors, err := r.loadConnectors(fc, rec.Connectors)
	if err != nil {
		return fc, err
	}

	r.deserialized(fc)
	for _, n := range nodes {
		r.deserializedNode(n)
	}
	for _, c := range connectors {
		r.deserialized(c)
	}
	r.logger.Debug("registry: load flowchart", "flowchart", id, "nodes", len(nodes), "connectors", len(connectors))
	return fc, nil
}

func viewport(v format.ViewportRecord) domain.Viewport {
	if v.Scale == 0 {
		v.Scale = domain.DefaultViewport.Scale
	}
	return domain.Viewport{OffsetX: v.OffsetX, OffsetY: v.OffsetY, Scale: v.Scale}
}

// loadNodes is the first load phase: every node is built and registered with its ports.
func (r *Registry) loadNodes(fc *domain.FlowChart, recs []format.NodeRecord) ([]*domain.Node, error) {
	nodes := make([]*domain.Node, 0, len(recs))
	for _, rec := range recs {
		n, err := r.loadNode(fc, rec)
		if err != nil {
			return nodes, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// loadConnectors is the second load phase: connectors are wired to ports loaded by loadNodes.
func (r *Registry) loadConnectors(fc *domain.FlowChart, recs []format.ConnectorRecord) ([]*domain.Connector, error) {
	connectors := make([]*domain.Connector, 0, len(recs))
	for _, rec := range recs {
		c, err := r.loadConnector(fc, rec)
		if err != nil {
			return connectors, err
		}
		connectors = append(connectors, c)
	}
	return connectors, nil
}

func (r *Registry) deserialized(e interface {
	domain.Entity
	MarkInitialized()
}) {
	r.onDeserialize(e)
	e.MarkInitialized()
}

func (r *Registry) deserializedNode(n *domain.Node) {
	for _, p := range n.AllPorts() {
		r.deserialized(p)
	}
	r.deserialized(n)
}

// DeserializeNode builds a node with its ports from a fragment.
// A nil owner is resolved from the fragment. A live node with the same GUID is replaced,
// keeping its position when the owner is unchanged, once the fragment has been built.
// A fragment that fails leaves the live node untouched.
func (r *Registry) DeserializeNode(data []byte, owner *domain.FlowChart) (*domain.Node, error) {
	return r.deserializeNode(data, owner, -1)
}

func (r *Registry) deserializeNode(data []byte, owner *domain.FlowChart, index int) (*domain.Node, error) {
	var rec format.NodeRecord
	if err := r.codec.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: node fragment: %w", domain.ErrMalformed, err)
	}
	fc, err := r.ownerFlowChart(owner, rec.Owner, "node "+rec.GUID)
	if err != nil {
		return nil, err
	}
	id, err := parseGUID(rec.GUID, "node")
	if err != nil {
		return nil, err
	}

	existing, live := r.nodes[id]
	var replaced map[uuid.UUID]bool
	if live {
		replaced = map[uuid.UUID]bool{id: true}
		for _, p := range existing.AllPorts() {
			replaced[p.GUID()] = true
		}
		if index < 0 && existing.Owner() == fc {
			index = fc.NodeIndex(existing)
		}
	}

	n, err := r.buildNode(fc, rec, replaced)
	if err != nil {
		return nil, err
	}
	if live {
		if err := r.destroyNode(existing, false); err != nil {
			return nil, err
		}
	}
	r.addNode(n)
	fc.InsertNode(index, n)
	r.deserializedNode(n)
	return n, nil
}

// loadNode builds a node with its ports, then registers them and appends the node to fc.
func (r *Registry) loadNode(fc *domain.FlowChart, rec format.NodeRecord) (*domain.Node, error) {
	n, err := r.buildNode(fc, rec, nil)
	if err != nil {
		return nil, err
	}
	r.addNode(n)
	fc.AppendNode(n)
	return n, nil
}

// buildNode constructs a node and its ports from rec. Nothing is registered.
// GUIDs in replaced may still be live.
func (r *Registry) buildNode(fc *domain.FlowChart, rec format.NodeRecord, replaced map[uuid.UUID]bool) (*domain.Node, error) {
	id, err := parseGUID(rec.GUID, "node")
	if err != nil {
		return nil, err
	}
	if err := checkOwner(rec.Owner, fc.GUID(), "node", id); err != nil {
		return nil, err
	}
	if err := r.reclaim(id, domain.KindNode, replaced); err != nil {
		return nil, err
	}
	typeName := rec.Type
	if typeName == "" {
		typeName = domain.TypeNode
	}
	nt, ok := r.catalog.Lookup(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: node %s: %q: %w", domain.ErrMalformed, id, typeName, domain.ErrUnknownType)
	}

	bg, err := parseColor(rec.HeaderBackgroundColor, domain.Black)
	if err != nil {
		return nil, fmt.Errorf("%w: node %s: header background: %w", domain.ErrMalformed, id, err)
	}
	font, err := parseColor(rec.HeaderFontColor, domain.White)
	if err != nil {
		return nil, fmt.Errorf("%w: node %s: header font: %w", domain.ErrMalformed, id, err)
	}

	var behavior any
	if nt.New != nil {
		behavior = nt.New()
	}
	n := domain.NewNode(id, fc, typeName, behavior)
	n.SetViewType(rec.ViewType)
	n.SetHeader(rec.Header)
	n.SetHeaderBackgroundColor(bg)
	n.SetHeaderFontColor(font)
	n.SetAllowEditingHeader(rec.AllowEditingHeader)
	n.SetAllowCircularConnection(rec.AllowCircularConnection)
	n.SetX(rec.X)
	n.SetY(rec.Y)
	n.SetZIndex(rec.ZIndex)

	seen := make(map[uuid.UUID]bool)
	for _, prec := range rec.Ports() {
		p, err := r.buildPort(n, nt, prec, replaced)
		if err != nil {
			return nil, err
		}
		if seen[p.GUID()] {
			return nil, fmt.Errorf("%w: node %s: port %s: %w", domain.ErrMalformed, id, p.GUID(), domain.ErrDuplicateID)
		}
		seen[p.GUID()] = true
		n.AppendPort(p)
	}
	return n, nil
}

// DeserializeNodePort builds a port from a fragment and adds it to its node.
// A nil owner is resolved from the fragment. A live port with the same GUID is replaced
// once the fragment has been built; a fragment that fails leaves it untouched.
func (r *Registry) DeserializeNodePort(data []byte, owner *domain.Node) (*domain.Port, error) {
	var rec format.PortRecord
	if err := r.codec.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: port fragment: %w", domain.ErrMalformed, err)
	}
	id, err := parseGUID(rec.GUID, "port")
	if err != nil {
		return nil, err
	}
	n := owner
	if n == nil {
		ownerID, err := parseGUID(rec.Owner, "port owner")
		if err != nil {
			return nil, err
		}
		var ok bool
		if n, ok = r.nodes[ownerID]; !ok {
			return nil, fmt.Errorf("port %s: owner node %s: %w", id, ownerID, domain.ErrInvalidReference)
		}
	}

	existing, live := r.ports[id]
	var replaced map[uuid.UUID]bool
	if live {
		replaced = map[uuid.UUID]bool{id: true}
	}
	nt, _ := r.catalog.Lookup(n.Type())
	p, err := r.buildPort(n, nt, rec, replaced)
	if err != nil {
		return nil, err
	}
	if live {
		if err := r.destroyNodePort(existing, false); err != nil {
			return nil, err
		}
	}
	r.ports[id] = p
	n.AppendPort(p)
	r.deserialized(p)
	return p, nil
}

// buildPort constructs a port from its record. Static ports get their accessor from
// the node type's matching declaration. GUIDs in replaced may still be live.
func (r *Registry) buildPort(n *domain.Node, nt NodeType, rec format.PortRecord, replaced map[uuid.UUID]bool) (*domain.Port, error) {
	id, err := parseGUID(rec.GUID, "port")
	if err != nil {
		return nil, err
	}
	if err := checkOwner(rec.Owner, n.GUID(), "port", id); err != nil {
		return nil, err
	}
	if err := r.reclaim(id, domain.KindPort, replaced); err != nil {
		return nil, err
	}

	spec := domain.PortSpec{
		Kind:                domain.PortFlow,
		IsInput:             rec.IsInput,
		Name:                rec.Name,
		DisplayName:         rec.DisplayName,
		AllowMultipleInput:  rec.AllowMultipleInput,
		AllowMultipleOutput: rec.AllowMultipleOutput,
		IsPortEnabled:       rec.IsPortEnabled,
		IsEnabled:           rec.IsEnabled,
		ViewType:            rec.ViewType,
	}

	switch rec.Type {
	case domain.TypeFlowPort, "":
	case domain.TypePropertyPort:
		spec.Kind = domain.PortProperty
		spec.HasEditor = rec.HasEditor
		spec.ValueType, err = r.types.Parse(rec.ValueType)
		if err != nil {
			return nil, fmt.Errorf("%w: port %s: %w: %w", domain.ErrMalformed, id, domain.ErrUnknownType, err)
		}
		if declared, ok := nt.spec(domain.GroupOf(domain.PortProperty, rec.IsInput), rec.Name); ok {
			spec.Accessor = declared.Accessor
		}
		spec.Value, err = r.decodeValue(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: port %s: %w", domain.ErrMalformed, id, err)
		}
	default:
		return nil, fmt.Errorf("%w: port %s: %q: %w", domain.ErrMalformed, id, rec.Type, domain.ErrUnknownType)
	}

	p, err := domain.NewPort(id, n, spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformed, err)
	}
	return p, nil
}

// decodeValue restores the canonical Go value of a persisted property value.
func (r *Registry) decodeValue(rec format.PortRecord) (any, error) {
	if rec.Value == nil || rec.RealValueType == "" || rec.RealValueType == rec.ValueType {
		return rec.Value, nil
	}
	actual, err := r.types.Parse(rec.RealValueType)
	if err != nil {
		return nil, fmt.Errorf("real value type: %w", err)
	}
	return actual.Coerce(rec.Value)
}

// DeserializeConnector wires a connector from a fragment to its live ports.
// A nil owner is resolved from the fragment. A live connector with the same GUID is
// replaced once the fragment resolves and fits its ports; otherwise nothing changes.
func (r *Registry) DeserializeConnector(data []byte, owner *domain.FlowChart) (*domain.Connector, error) {
	var rec format.ConnectorRecord
	if err := r.codec.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: connector fragment: %w", domain.ErrMalformed, err)
	}
	fc, err := r.ownerFlowChart(owner, rec.Owner, "connector "+rec.GUID)
	if err != nil {
		return nil, err
	}
	id, err := parseGUID(rec.GUID, "connector")
	if err != nil {
		return nil, err
	}

	existing, live := r.connectors[id]
	var replaced map[uuid.UUID]bool
	if live {
		replaced = map[uuid.UUID]bool{id: true}
	}
	c, start, end, err := r.buildConnector(fc, rec, replaced)
	if err != nil {
		return nil, err
	}
	if live {
		if err := r.destroyConnector(existing, false); err != nil {
			return nil, err
		}
	}
	if err := r.wireConnector(fc, c, start, end); err != nil {
		return nil, err
	}
	r.deserialized(c)
	return c, nil
}

func (r *Registry) loadConnector(fc *domain.FlowChart, rec format.ConnectorRecord) (*domain.Connector, error) {
	c, start, end, err := r.buildConnector(fc, rec, nil)
	if err != nil {
		return nil, err
	}
	if err := r.wireConnector(fc, c, start, end); err != nil {
		return nil, err
	}
	return c, nil
}

// buildConnector resolves the ports of rec and checks they can take the connector.
// Nothing is registered. A GUID in replaced may still be live; its connector does not
// count against the capacity of the ports.
func (r *Registry) buildConnector(fc *domain.FlowChart, rec format.ConnectorRecord, replaced map[uuid.UUID]bool) (*domain.Connector, *domain.Port, *domain.Port, error) {
	id, err := parseGUID(rec.GUID, "connector")
	if err != nil {
		return nil, nil, nil, err
	}
	if rec.Type != "" && rec.Type != domain.TypeConnector {
		return nil, nil, nil, fmt.Errorf("%w: connector %s has type %q", domain.ErrMalformed, id, rec.Type)
	}
	if err := checkOwner(rec.Owner, fc.GUID(), "connector", id); err != nil {
		return nil, nil, nil, err
	}
	if err := r.reclaim(id, domain.KindConnector, replaced); err != nil {
		return nil, nil, nil, err
	}

	start, err := r.resolvePort(id, "start", rec.StartPort)
	if err != nil {
		return nil, nil, nil, err
	}
	end, err := r.resolvePort(id, "end", rec.EndPort)
	if err != nil {
		return nil, nil, nil, err
	}

	c := domain.NewConnector(id, fc)
	c.SetViewType(rec.ViewType)
	var freed uuid.UUID
	if replaced[id] {
		freed = id
	}
	if err := domain.CheckWire(c, start, end, freed); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", domain.ErrMalformed, err)
	}
	return c, start, end, nil
}

func (r *Registry) wireConnector(fc *domain.FlowChart, c *domain.Connector, start, end *domain.Port) error {
	if err := domain.Wire(c, start, end); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrMalformed, err)
	}
	r.connectors[c.GUID()] = c
	fc.AppendConnector(c)
	r.onConnect(start, end, c)
	return nil
}

func (r *Registry) resolvePort(connector uuid.UUID, end, raw string) (*domain.Port, error) {
	id, err := parseGUID(raw, "connector "+end+" port")
	if err != nil {
		return nil, err
	}
	p, ok := r.ports[id]
	if !ok {
		return nil, fmt.Errorf("%w: connector %s: %s port %s: %w", domain.ErrMalformed, connector, end, id, domain.ErrInvalidReference)
	}
	return p, nil
}

func (r *Registry) ownerFlowChart(explicit *domain.FlowChart, raw, what string) (*domain.FlowChart, error) {
	if explicit != nil {
		if r.flowCharts[explicit.GUID()] != explicit {
			return nil, fmt.Errorf("%s: owner: %w", what, domain.ErrInvalidReference)
		}
		return explicit, nil
	}
	id, err := parseGUID(raw, what+" owner")
	if err != nil {
		return nil, err
	}
	fc, ok := r.flowCharts[id]
	if !ok {
		return nil, fmt.Errorf("%s: owner flowchart %s: %w", what, id, domain.ErrInvalidReference)
	}
	return fc, nil
}

// reclaim checks id is free for a new entity of kind. A GUID in replaced only has to
// be live as the same kind.
func (r *Registry) reclaim(id uuid.UUID, kind domain.Kind, replaced map[uuid.UUID]bool) error {
	if replaced[id] {
		return r.replaceable(id, kind)
	}
	_, err := r.claim(id, kind)
	return err
}

// replaceable fails when id is live as another kind.
func (r *Registry) replaceable(id uuid.UUID, kind domain.Kind) error {
	if live, ok := r.kindOf(id); ok && live != kind {
		return fmt.Errorf("%s %s is a %s: %w", kind, id, live, domain.ErrKindMismatch)
	}
	return nil
}

func parseGUID(raw, what string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: %s: missing guid", domain.ErrMalformed, what)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s: %w", domain.ErrMalformed, what, err)
	}
	return id, nil
}

func checkOwner(raw string, want uuid.UUID, kind string, id uuid.UUID) error {
	if raw == "" {
		return nil
	}
	owner, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s %s: owner: %w", domain.ErrMalformed, kind, id, err)
	}
	if owner != want {
		return fmt.Errorf("%w: %s %s: owner %s, expected %s", domain.ErrMalformed, kind, id, owner, want)
	}
	return nil
}

func parseColor(raw string, fallback domain.Color) (domain.Color, error) {
	if raw == "" {
		return fallback, nil
	}
	return domain.ParseColor(raw)
}
