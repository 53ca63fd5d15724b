// Package node builds the capability-to-factory routing table that a
// dockgrid node serves browser sessions from.
//
// The bootstrap flow, driven entirely by runtime configuration:
//
//  1. Parse the image/stereotype configuration into a grouping of
//     capability sets by image name.
//  2. Probe whether the Docker daemon is reachable and supported; if not,
//     container sessions are disabled and an empty table is returned.
//  3. Resolve the daemon endpoint and concurrently warm every referenced
//     image (plus the video sidecar image when recording is configured),
//     failing the whole bootstrap on the first pull error.
//  4. Expand every (image, stereotype) pair into one session factory per
//     host CPU, producing the final immutable routing table.
//
// The table is rebuilt from scratch on every bootstrap run; nothing is
// persisted between invocations.
package node
