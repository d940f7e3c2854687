// Package syncer keeps a local cache directory and the cold store eventually
// consistent.
//
// The path of a file relative to the cache root, slash separated, is its object
// name in the cold store. Names are preserved exactly in both directions.
//
// Three pass types are provided:
//
//   - Push uploads every local file. Existing objects are left untouched.
//   - Pull downloads every remote object that is missing locally.
//   - Reconcile computes a Manifest and transfers only the difference.
//
// Per-file failures never abort a pass; they are counted in the Report.
// A pass returns an error only when it cannot start at all: another pass holds
// the sync lock, the local directory cannot be read or the remote listing fails.
//
// Example usage:
//
//	engine := syncer.New(store, hotStore.Locker(), syncer.DefaultConfig(), logger)
//	report, err := engine.Push(ctx, "./cache")
//	if err != nil {
//	    return err
//	}
//	logger.Info().Int("failed", report.Failed).Msg("push done")
//
// Passes are serialized through a Locker. With a Redis-backed locker this holds
// across processes sharing the namespace; LocalLocker only covers one process.
package syncer
