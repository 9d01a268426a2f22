package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/arbor/pkg/ports"
)

// ErrNoBackend is returned by the snapshot commands when neither a directory
// nor a redis URL is configured.
var ErrNoBackend = errors.New("no snapshot backend configured (use --snapshots or --redis)")

func withStore(opts Options, fn func(ports.SnapshotStore) error) error {
	store, _, closer, err := OpenSnapshotStore(opts)
	if err != nil {
		return err
	}
	if store == nil {
		return ErrNoBackend
	}
	if closer != nil {
		defer closer()
	}
	return fn(store)
}

// ListSnapshots prints one stored root ID per line.
func ListSnapshots(ctx context.Context, opts Options, w io.Writer) error {
	return withStore(opts, func(store ports.SnapshotStore) error {
		ids, err := store.List(ctx)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			printSystemMessage(w, "No snapshots stored.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(w, id)
		}
		return nil
	})
}

// InspectSnapshot prints the snapshot of rootID as indented JSON.
func InspectSnapshot(ctx context.Context, opts Options, rootID string, w io.Writer) error {
	return withStore(opts, func(store ports.SnapshotStore) error {
		snap, err := store.Load(ctx, rootID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	})
}

// DeleteSnapshot removes the snapshot of rootID.
func DeleteSnapshot(ctx context.Context, opts Options, rootID string) error {
	return withStore(opts, func(store ports.SnapshotStore) error {
		return store.Delete(ctx, rootID)
	})
}
