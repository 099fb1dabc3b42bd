/*
Package nodegraph is the graph-management core of a visual node-graph editor.

It keeps the entity model of a node graph (flow charts holding nodes, nodes holding
flow and property ports, connectors joining an output port to an input port), the
rules that decide which ports may connect, a transactional undo/redo history per
flow chart and a GUID-keyed document format that survives round trips.

Rendering, hit testing and input devices stay outside: a host drives the
interaction controller with already resolved ports, nodes and coordinates.

# Usage

An Editor wires the registry, the connection engine, the interaction controller,
the executor, a document store and a codec:

	ed, err := nodegraph.New(
		nodegraph.WithStore(file.New("./documents")),
		nodegraph.WithLogger(logger),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer ed.Close()

	fc, err := ed.Open(ctx, "pipeline")
	if err != nil {
		log.Fatal(err)
	}
	ed.Interaction().SelectAll(fc)
	if _, err := ed.Run(ctx, fc); err != nil {
		log.Fatal(err)
	}

Opening is all or nothing: a document that fails to load leaves the editor
unchanged.

# Packages

  - pkg/domain: entities, change notification, lifecycle hooks.
  - pkg/registry: identity indexes, node-type catalog, (de)serialization.
  - pkg/connection: connection rules.
  - pkg/history: transactions and commands.
  - pkg/interaction: connecting, dragging and selection gestures.
  - pkg/execution: running nodes along flow connectors.
  - pkg/store and pkg/adapters: document persistence.
*/
package nodegraph
