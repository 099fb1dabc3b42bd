// Package nodes provides the standard node types: Start, Constant, Add and Log.
//
// They are small enough to serve as examples of behaviors with static property
// ports and are what the command line tool registers by default.
package nodes
