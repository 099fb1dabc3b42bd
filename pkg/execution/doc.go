/*
Package execution runs flow charts along their flow connectors.

Each node goes through three phases: PreExecute marks it Executing, Execute calls
its behavior when it implements domain.NodeExecutor, and PostExecute marks it
Executed and continues with every node connected to an enabled output flow port.
A failing node is marked Failed and stops the run.
*/
package execution
