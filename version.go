package arbor

// Version is the library release, reported by the CLI and the HTTP adapter.
var Version = "0.1.0"
