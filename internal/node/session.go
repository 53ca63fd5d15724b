package node

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mmr-tortoise/dockgrid/internal/capabilities"
	"github.com/mmr-tortoise/dockgrid/internal/model"
	"github.com/mmr-tortoise/dockgrid/internal/port"
)

// Session is a running browser session produced by a SessionFactory. It
// tracks the containers backing the session so Stop can release them.
type Session struct {
	// ID is the session identifier, shared by the browser container and
	// its sidecar via labels.
	ID string

	// URL is the WebDriver endpoint of the session, reachable from the
	// host.
	URL *url.URL

	// Status is the current lifecycle state.
	Status model.SessionStatus

	driver      Driver
	log         *logrus.Logger
	containerID string
	videoID     string // empty when recording is disabled
}

// NewSession launches a browser session for the given request.
//
// The request must satisfy the factory's stereotype. The browser
// container's WebDriver port is published on a free host port; when
// recording is configured, the sidecar is started after the browser
// container so it finds the display to attach to.
func (f *SessionFactory) NewSession(ctx context.Context, request capabilities.Set) (*Session, error) {
	if !f.Test(request) {
		return nil, fmt.Errorf(
			"session request %s does not match stereotype %s", request, f.stereotype)
	}

	hostPort, err := f.ports.FindFree(port.DefaultRangeStart, port.DefaultRangeEnd)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	spec := f.sessionContainerSpec(sessionID, hostPort)

	containerID, err := f.driver.CreateContainer(ctx, spec)
	if err != nil {
		return nil, err
	}
	if err := f.driver.StartContainer(ctx, containerID); err != nil {
		// Creation succeeded, so clean up rather than leak the container.
		_ = f.driver.RemoveContainer(ctx, containerID)
		return nil, err
	}

	session := &Session{
		ID: sessionID,
		URL: &url.URL{
			Scheme: "http",
			Host:   fmt.Sprintf("localhost:%d", hostPort),
		},
		Status:      model.StatusRunning,
		driver:      f.driver,
		log:         f.log,
		containerID: containerID,
	}

	if f.RecordsVideo() {
		// A session without its recording is worthless for the caller who
		// asked for one; any sidecar failure tears the whole session down.
		videoID, err := f.driver.CreateContainer(ctx, f.videoContainerSpec(sessionID, spec.Name))
		if err != nil {
			_ = session.Stop(ctx)
			return nil, err
		}
		if err := f.driver.StartContainer(ctx, videoID); err != nil {
			// Created but never started, so Stop does not know about it
			// yet; remove it here before tearing the browser down.
			_ = f.driver.RemoveContainer(ctx, videoID)
			_ = session.Stop(ctx)
			return nil, err
		}
		session.videoID = videoID
	}

	f.log.WithFields(logrus.Fields{
		"session": sessionID,
		"image":   f.image.Name,
		"url":     session.URL.String(),
	}).Info("started browser session")

	return session, nil
}

// Stop shuts the session down and removes its containers. The sidecar is
// stopped first so it can finalize the video artifact while the display
// is still up. Stop is idempotent on an already stopped session.
func (s *Session) Stop(ctx context.Context) error {
	if s.Status == model.StatusStopped {
		return nil
	}

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.videoID != "" {
		keep(s.driver.StopContainer(ctx, s.videoID))
		keep(s.driver.RemoveContainer(ctx, s.videoID))
	}
	keep(s.driver.StopContainer(ctx, s.containerID))
	keep(s.driver.RemoveContainer(ctx, s.containerID))

	s.Status = model.StatusStopped
	s.log.WithField("session", s.ID).Info("stopped browser session")

	return firstErr
}
