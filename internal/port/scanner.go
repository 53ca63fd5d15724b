package port

import (
	"fmt"
	"net"

	"github.com/mmr-tortoise/dockgrid/internal/model"
)

// Default scan range for published WebDriver ports. The range starts just
// above the conventional WebDriver port 4444 so the host-side ports remain
// recognizable in `docker ps` output.
const (
	// DefaultRangeStart is the first host port probed for a session.
	DefaultRangeStart = 4445

	// DefaultRangeEnd is the last host port probed (inclusive).
	DefaultRangeEnd = 4544
)

// Scanner checks whether host ports are free by asking the operating
// system directly: a successful net.Listen bind means the port is
// available. This is more reliable than parsing /proc/net/* and needs no
// elevated permissions.
//
// The struct is stateless; it exists as a type so it can be injected into
// session factories and replaced in tests.
type Scanner struct{}

// NewScanner creates a new Scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsAvailable reports whether a TCP port is free on the host.
//
// The probe binds to all interfaces (":port") because Docker publishes
// ports on 0.0.0.0, so the check must cover the same address space.
func (s *Scanner) IsAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	// The bind itself is the test; release the port immediately.
	defer func() { _ = listener.Close() }()
	return true
}

// FindFree scans [start, end] (inclusive) and returns the first free TCP
// port. The sequential order keeps port selection deterministic.
//
// Returns a CLIError with ExitPortAllocationFailed when the whole range is
// in use.
func (s *Scanner) FindFree(start, end int) (int, error) {
	for port := start; port <= end; port++ {
		if s.IsAvailable(port) {
			return port, nil
		}
	}
	return 0, model.NewCLIError(
		model.ExitPortAllocationFailed,
		fmt.Sprintf("no free host port in range %d-%d", start, end),
	)
}
