// Package reconcile moves Multipass toward the state declared in a manifest.
//
// Each operation compares the manifest with the live state reported by
// Multipass and hands the commands it decides on to a batch executor:
//   - Launch: create configured instances that do not exist yet
//   - Mount: add missing mounts and move mounts whose guest path changed
//   - Stop, Delete: stop or delete live instances, or every instance
//   - Status: report configured and live state side by side
//   - Init: write the default manifest
//
// Error Handling:
//
// Failing to read live state is an error of the whole operation. Per-instance
// mismatches (an instance not in the manifest, an instance that exists
// already, a host path that does not exist) are logged as warnings and the
// instance is skipped. Whether failed commands are errors is decided by the
// batch policy configured for the operation.
package reconcile
