/*
Package history implements the bounded, transactional undo/redo log of a flow chart.

Edits are grouped into named transactions. Each transaction is an ordered list of
commands; undo applies them in reverse, redo in order. The log is a fixed-capacity
ring with a cursor: committing after an undo discards the redo branch, and committing
into a full ring evicts the oldest transaction.

While an undo, redo or move is being applied the history is "processing": the
mutations made by commands are not recorded again.

# Key Entities

  - History: the ring, the cursor and the open transaction.
  - Transaction: a named group of commands.
  - Command: one reversible mutation. The variants are CreateNode, DestroyNode,
    CreateNodePort, DestroyNodePort, Connect, Disconnect, SetProperty and ZoomPan.
  - Graph: the surface commands mutate, resolved by GUID.
*/
package history
