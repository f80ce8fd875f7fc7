// Package destination places load job files on a storage driver and
// manages the dataset they belong to.
//
// A Client is bound to one dataset (a folder below the bucket root) and one
// schema. It creates Jobs, each transferring a single staged file exactly
// once to the path rendered from the layout, and exposes the dataset
// lifecycle: InitializeStorage (optional truncation plus folder creation),
// IsStorageInitialized and CompleteLoad (the completion marker).
//
// In staging mode a completed Job also yields a reference job so a
// downstream loader can pick the file up from its remote path.
package destination
