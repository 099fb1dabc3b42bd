/*
Package domain contains the entity model of a node graph.

A FlowChart owns Nodes and Connectors; a Node owns four ordered groups of Ports.
Everything is identified by a GUID, and relations that are not ownership (a
connector's ports, a port's connectors) are held as GUIDs resolved through the
flow chart's Resolver. The package holds no registry of its own and performs no I/O.

# Key Entities

  - FlowChart: the root container, with a viewport, a graph-level cycle rule and a History.
  - Node: a vertex with header settings, position, execution state and a type-specific Behavior.
  - Port: a flow port or a property port. Property ports carry a declared schema.Type and
    either store their own value or bind to the node's Behavior through an Accessor.
    A connected input property port reads its value from the connector's start port.
  - Connector: a directed edge from an output port to an input port.

Every entity raises a PropertyChange after a state change. Edits of header settings
and port values made after initialization are recorded as SetProperty commands.
*/
package domain
