/*
Package ports defines the driven ports (interfaces) of the arbor engine.

These interfaces decouple the build core from external implementations, so the
engine can publish trees to any rendering backend and persist state snapshots
to any storage.

# Key Interfaces

  - Renderer: Receives each committed generation together with its diff.
  - Animator: Plays the animation groups carried by node bridges.
  - SnapshotStore: Persists state snapshots keyed by root ID.
  - DistributedLocker: Serializes snapshot writes across replicas.
*/
package ports
