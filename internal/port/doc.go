// Package port implements host port scanning for published session
// containers.
//
// When a session container is launched, its WebDriver port must be
// published to a free host port so the factory can hand out a reachable
// endpoint. The Scanner verifies OS-level availability via net.Listen,
// probing sequentially from a base port so the same free port is selected
// consistently across runs.
package port
