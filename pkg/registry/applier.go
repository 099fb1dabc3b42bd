package registry

import (
	"fmt"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/history"
	"github.com/google/uuid"
)

// applier is the history.Graph of a registry. Unlike the registry's own destroy
// operations it fails on every GUID that is not live.
type applier struct {
	r *Registry
}

var _ history.Graph = (*applier)(nil)

func missing(kind domain.Kind, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrInvalidReference)
}

func (a *applier) DestroyNode(id uuid.UUID) error {
	if _, ok := a.r.nodes[id]; !ok {
		return missing(domain.KindNode, id)
	}
	return a.r.DestroyNode(id)
}

func (a *applier) RestoreNode(fragment []byte, index int) error {
	_, err := a.r.deserializeNode(fragment, nil, index)
	return err
}

func (a *applier) DestroyNodePort(id uuid.UUID) error {
	if _, ok := a.r.ports[id]; !ok {
		return missing(domain.KindPort, id)
	}
	return a.r.DestroyNodePort(id)
}

func (a *applier) RestoreNodePort(fragment []byte) error {
	_, err := a.r.DeserializeNodePort(fragment, nil)
	return err
}

func (a *applier) DestroyConnector(id uuid.UUID) error {
	if _, ok := a.r.connectors[id]; !ok {
		return missing(domain.KindConnector, id)
	}
	return a.r.DestroyConnector(id)
}

func (a *applier) RestoreConnector(fragment []byte) error {
	_, err := a.r.DeserializeConnector(fragment, nil)
	return err
}

func (a *applier) SetViewport(flowChart uuid.UUID, v history.Viewport) error {
	fc, ok := a.r.flowCharts[flowChart]
	if !ok {
		return missing(domain.KindFlowChart, flowChart)
	}
	fc.SetViewport(v)
	return nil
}

func (a *applier) SetProperty(target uuid.UUID, property string, value any) error {
	if fc, ok := a.r.flowCharts[target]; ok {
		return setFlowChartProperty(fc, property, value)
	}
	if n, ok := a.r.nodes[target]; ok {
		return setNodeProperty(n, property, value)
	}
	if p, ok := a.r.ports[target]; ok {
		return setPortProperty(p, property, value)
	}
	if _, ok := a.r.connectors[target]; ok {
		return unknownProperty(domain.KindConnector, target, property)
	}
	return fmt.Errorf("property %s of %s: %w", property, target, domain.ErrInvalidReference)
}

func setFlowChartProperty(fc *domain.FlowChart, property string, value any) error {
	switch property {
	case domain.PropAllowCircularConnection:
		return assign(value, property, fc.SetAllowCircularConnection)
	case domain.PropViewport:
		return assign(value, property, fc.SetViewport)
	}
	return unknownProperty(domain.KindFlowChart, fc.GUID(), property)
}

func setNodeProperty(n *domain.Node, property string, value any) error {
	switch property {
	case domain.PropHeader:
		return assign(value, property, n.SetHeader)
	case domain.PropHeaderBackgroundColor:
		return assign(value, property, n.SetHeaderBackgroundColor)
	case domain.PropHeaderFontColor:
		return assign(value, property, n.SetHeaderFontColor)
	case domain.PropAllowEditingHeader:
		return assign(value, property, n.SetAllowEditingHeader)
	case domain.PropAllowCircularConnection:
		return assign(value, property, n.SetAllowCircularConnection)
	case domain.PropX:
		return assign(value, property, n.SetX)
	case domain.PropY:
		return assign(value, property, n.SetY)
	case domain.PropZIndex:
		return assign(value, property, n.SetZIndex)
	case domain.PropIsSelected:
		return assign(value, property, n.SetSelected)
	case domain.PropExecutionState:
		return assign(value, property, n.SetExecutionState)
	}
	return unknownProperty(domain.KindNode, n.GUID(), property)
}

func setPortProperty(p *domain.Port, property string, value any) error {
	switch property {
	case domain.PropValue:
		return p.SetValue(value)
	case domain.PropDisplayName:
		return assign(value, property, p.SetDisplayName)
	case domain.PropIsPortEnabled:
		return assign(value, property, p.SetPortEnabled)
	case domain.PropIsEnabled:
		return assign(value, property, p.SetEnabled)
	}
	return unknownProperty(domain.KindPort, p.GUID(), property)
}

func assign[T any](value any, property string, set func(T)) error {
	v, ok := value.(T)
	if !ok {
		var want T
		return fmt.Errorf("property %s: %w: want %T, got %T", property, domain.ErrTypeMismatch, want, value)
	}
	set(v)
	return nil
}

func unknownProperty(kind domain.Kind, id uuid.UUID, property string) error {
	return fmt.Errorf("%s %s: unknown property %q", kind, id, property)
}
