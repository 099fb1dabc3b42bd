/*
Package store defines the persistence port for flow chart documents.

A DocumentStore keeps encoded documents under a name; it never looks inside them.
Adapters live under pkg/adapters (memory, file, redis) and are verified with
RunDocumentStoreContract. Middlewares such as encryption wrap a store without the
editor noticing.
*/
package store
