/*
Package dsl provides a fluent builder for constructing flow charts in Go code.

Nodes are declared by a local name and a node type; connections refer to those
names and are made through the connection engine, so the usual connection rules
apply. This is useful for tests, generated documents and examples.

Example usage:

	b := dsl.New()

	b.Add("start", nodes.TypeStart).Go("greet")

	b.Add("greet", nodes.TypeLog).
		At(200, 0).
		Set(nodes.PortMsg, "Hello, nodegraph!")

	g, err := b.Build(reg)
	if err != nil {
		return err
	}
	// g.FlowChart is registered in reg; g.Nodes["greet"] is the Log node.
*/
package dsl
