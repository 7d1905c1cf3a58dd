package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Revalidator tracks a version per cache tag. Every event bumps the tags of
// the lists it changes, so ETags computed from those tags go stale.
// Versions live in memory; the epoch keeps tags from a previous process from matching.
type Revalidator struct {
	mu       sync.RWMutex
	versions map[string]uint64
	epoch    string
}

// NewRevalidator creates an empty registry.
func NewRevalidator() *Revalidator {
	return &Revalidator{
		versions: map[string]uint64{},
		epoch:    strconv.FormatInt(time.Now().UnixNano(), 36),
	}
}

// Name implements Sink.
func (r *Revalidator) Name() string { return "revalidate" }

// Handle implements Sink.
func (r *Revalidator) Handle(_ context.Context, e Event) error {
	r.Bump(TagsFor(e)...)
	return nil
}

// Bump increments the version of each tag.
func (r *Revalidator) Bump(tags ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tags {
		r.versions[t]++
	}
}

// Version returns the current version of tag.
func (r *Revalidator) Version(tag string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.versions[tag]
}

// ETag returns a weak entity tag covering tags.
// POST: changes whenever any of the tags is bumped
func (r *Revalidator) ETag(tags ...string) string {
	r.mu.RLock()
	var b strings.Builder
	b.WriteString(r.epoch)
	b.WriteByte(';')
	for _, t := range tags {
		b.WriteString(t)
		b.WriteByte('=')
		b.WriteString(strconv.FormatUint(r.versions[t], 10))
		b.WriteByte(';')
	}
	r.mu.RUnlock()
	sum := sha256.Sum256([]byte(b.String()))
	return `W/"` + hex.EncodeToString(sum[:8]) + `"`
}

// ClubApplicationsTag covers a club's application list.
func ClubApplicationsTag(clubID string) string {
	return "club:" + clubID + ":applications"
}

// UserApplicationsTag covers the applicant's own application list.
func UserApplicationsTag(userID string) string {
	return "user:" + userID + ":applications"
}

// ActivityRegistrationsTag covers an activity's registration list.
func ActivityRegistrationsTag(activityID string) string {
	return "activity:" + activityID + ":registrations"
}

// ActivityCheckInsTag covers an activity's check-in list.
func ActivityCheckInsTag(activityID string) string {
	return "activity:" + activityID + ":checkins"
}

// TagsFor returns the cache tags invalidated by e.
func TagsFor(e Event) []string {
	p := e.Payload
	var tags []string
	switch {
	case strings.HasPrefix(e.Kind, "application."):
		if p[KeyClubID] != "" {
			tags = append(tags, ClubApplicationsTag(p[KeyClubID]))
		}
		if p[KeyUserID] != "" {
			tags = append(tags, UserApplicationsTag(p[KeyUserID]))
		}
	case strings.HasPrefix(e.Kind, "registration."):
		if p[KeyActivityID] != "" {
			tags = append(tags, ActivityRegistrationsTag(p[KeyActivityID]))
		}
	case e.Kind == CheckInRecorded:
		if p[KeyActivityID] != "" {
			tags = append(tags, ActivityCheckInsTag(p[KeyActivityID]))
		}
	}
	return tags
}
