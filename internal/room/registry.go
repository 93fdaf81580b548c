package room

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imom29/CodeCollab/internal/lang"
)

// SeedFileName is the file every room starts with.
const SeedFileName = "index.js"

// File is a named unit of shared text content in a room. Code is replaced
// wholesale on every edit; there is no history or versioning.
type File struct {
	FileName string `json:"fileName"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

// Outcome reports what a registry mutation did. Lookups that miss are not
// errors; they are named no-ops so callers can decide whether to log them.
type Outcome int

const (
	Applied Outcome = iota
	IgnoredRoomNotFound
	IgnoredFileNotFound
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case IgnoredRoomNotFound:
		return "ignored: room not found"
	case IgnoredFileNotFound:
		return "ignored: file not found"
	default:
		return "unknown"
	}
}

type entry struct {
	files   []*File
	touched time.Time
}

// Registry is the authoritative, process-lifetime mapping from room ID to
// its ordered file list. All state is in memory and discarded on restart.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*entry
	log   *logrus.Entry
}

func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		rooms: make(map[string]*entry),
		log:   logger.WithField("component", "registry"),
	}
}

// EnsureRoom creates the room with its seed file if it does not exist yet.
// Calling it for an existing room only refreshes the idle timestamp. The
// room ID is accepted as-is; there is no format validation.
func (r *Registry) EnsureRoom(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.rooms[roomID]; ok {
		e.touched = time.Now()
		return
	}

	r.rooms[roomID] = &entry{
		files: []*File{{
			FileName: SeedFileName,
			Code:     lang.SeedCode,
			Language: lang.Default,
		}},
		touched: time.Now(),
	}
	r.log.WithField("room_id", roomID).Info("Room created with seed file")
}

// ListFiles returns a snapshot of the room's file list in creation order,
// or nil if the room was never initialized.
func (r *Registry) ListFiles(roomID string) []File {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return snapshot(e)
}

// SetFileCode overwrites the file's code unconditionally; last write wins.
// There is no conflict detection and no version check.
func (r *Registry) SetFileCode(roomID, fileName, newCode string) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[roomID]
	if !ok {
		return IgnoredRoomNotFound
	}

	for _, f := range e.files {
		if f.FileName == fileName {
			f.Code = newCode
			e.touched = time.Now()
			return Applied
		}
	}
	return IgnoredFileNotFound
}

// CreateFile appends a new file with an inferred language and that
// language's starter template. Duplicate names are not rejected here; the
// client UI is the only place that checks, so two same-named files can
// coexist if two clients race.
func (r *Registry) CreateFile(roomID, fileName string) (File, Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[roomID]
	if !ok {
		return File{}, IgnoredRoomNotFound
	}

	language := lang.FromFileName(fileName)
	f := &File{
		FileName: fileName,
		Code:     lang.Template(language),
		Language: language,
	}
	e.files = append(e.files, f)
	e.touched = time.Now()

	r.log.WithFields(logrus.Fields{
		"room_id":   roomID,
		"file_name": fileName,
		"language":  language,
	}).Info("File created")
	return *f, Applied
}

// DeleteFile removes the first file whose name matches and returns the
// remaining list. A miss leaves the list untouched but still returns it,
// because the relay announces the (unchanged) list either way.
func (r *Registry) DeleteFile(roomID, fileName string) ([]File, Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[roomID]
	if !ok {
		return nil, IgnoredRoomNotFound
	}
	e.touched = time.Now()

	for i, f := range e.files {
		if f.FileName == fileName {
			e.files = append(e.files[:i], e.files[i+1:]...)
			r.log.WithFields(logrus.Fields{
				"room_id":   roomID,
				"file_name": fileName,
			}).Info("File deleted")
			return snapshot(e), Applied
		}
	}
	return snapshot(e), IgnoredFileNotFound
}

// RoomCount returns the number of initialized rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// EvictIdle removes rooms untouched for longer than maxIdle, skipping any
// room the active callback reports as still having connected clients.
// Returns the number of rooms evicted.
func (r *Registry) EvictIdle(maxIdle time.Duration, active func(roomID string) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	cutoff := time.Now().Add(-maxIdle)
	for id, e := range r.rooms {
		if e.touched.After(cutoff) {
			continue
		}
		if active != nil && active(id) {
			continue
		}
		delete(r.rooms, id)
		evicted++
		r.log.WithField("room_id", id).Info("Idle room evicted")
	}
	return evicted
}

func snapshot(e *entry) []File {
	out := make([]File, len(e.files))
	for i, f := range e.files {
		out[i] = *f
	}
	return out
}
