/*
Package interaction implements the editor gestures of a flow chart view.

A Controller is in one mode at a time: connecting two ports, dragging nodes or
rubber-band selecting. Each gesture previews its effect on the live graph and
commits it as a single named history transaction when it ends, so one undo reverts
the whole gesture.
*/
package interaction
