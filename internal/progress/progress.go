// Package progress reports real byte-level upload progress.
package progress

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/infra/cache"
)

// Reader counts bytes as the transport consumes them.
type Reader struct {
	r          io.Reader
	total      int64
	sent       atomic.Int64
	onProgress func(domain.Progress)
}

// NewReader wraps r. onProgress may be nil.
func NewReader(r io.Reader, total int64, onProgress func(domain.Progress)) *Reader {
	return &Reader{r: r, total: total, onProgress: onProgress}
}

func (p *Reader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		sent := p.sent.Add(int64(n))
		if p.onProgress != nil {
			p.onProgress(domain.Progress{Sent: sent, Total: p.total})
		}
	}
	return n, err
}

// Sent returns the bytes read so far.
func (p *Reader) Sent() int64 { return p.sent.Load() }

// Upload states.
const (
	StateUploading  = "uploading"
	StateProcessing = "processing"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// Status is a snapshot of one upload.
type Status struct {
	UploadID  string          `json:"upload_id"`
	State     string          `json:"state"`
	Progress  domain.Progress `json:"progress"`
	Percent   float64         `json:"percent"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Tracker keeps upload statuses for polling clients. Entries are scoped to
// the session that started the upload and expire after ttl.
type Tracker struct {
	items *cache.InMemory[Status]
}

// NewTracker creates a tracker.
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{items: cache.New[Status](ttl)}
}

func key(owner, id string) string {
	return owner + "\x00" + id
}

// Start registers an upload for owner.
func (t *Tracker) Start(owner, id string, total int64) {
	t.items.Set(key(owner, id), Status{
		UploadID:  id,
		State:     StateUploading,
		Progress:  domain.Progress{Total: total},
		UpdatedAt: time.Now(),
	})
}

// Update records transferred bytes. Once every byte is sent the upload is
// processing remotely. Finished uploads are left as they are.
func (t *Tracker) Update(owner, id string, p domain.Progress) {
	t.items.Update(key(owner, id), func(st Status, ok bool) (Status, bool) {
		if !ok || st.State == StateCompleted || st.State == StateFailed {
			return st, false
		}
		st.Progress = p
		st.Percent = p.Percent()
		if p.Total > 0 && p.Sent >= p.Total {
			st.State = StateProcessing
		}
		st.UpdatedAt = time.Now()
		return st, true
	})
}

// Finish closes an upload; err nil means success.
func (t *Tracker) Finish(owner, id string, err error) {
	t.items.Update(key(owner, id), func(st Status, ok bool) (Status, bool) {
		if !ok {
			st = Status{UploadID: id}
		}
		if err != nil {
			st.State = StateFailed
			st.Error = err.Error()
		} else {
			st.State = StateCompleted
			st.Percent = 100
		}
		st.UpdatedAt = time.Now()
		return st, true
	})
}

// Get returns the status of an upload owner started.
func (t *Tracker) Get(owner, id string) (Status, bool) {
	return t.items.Get(key(owner, id))
}

// Close stops background eviction.
func (t *Tracker) Close() {
	t.items.Close()
}
