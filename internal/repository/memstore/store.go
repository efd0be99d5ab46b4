// Package memstore keeps the board's tables in process memory. It backs
// STORE_DRIVER=memory deployments and the service tests. When a snapshot
// path is given, every write is flushed to a JSON file and reloaded on
// start; a write whose flush fails is rolled back.
package memstore

import (
	"context"
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
	"github.com/halpe-hal/pizza-course-manager-app/internal/repository"
)

type snapshot struct {
	Courses      []model.CourseTemplate `json:"courses"`
	Items        []model.CourseItem     `json:"items"`
	Reservations []model.Reservation    `json:"reservations"`
	Progress     []model.ProgressRecord `json:"progress"`
	NextID       uint64                 `json:"next_id"`
}

// Store is a mutex-guarded set of tables with the same method set as the
// MySQL repositories.
type Store struct {
	mu     sync.RWMutex
	path   string
	nextID uint64

	courses      map[uint64]model.CourseTemplate
	items        map[uint64]model.CourseItem
	reservations map[uint64]model.Reservation
	progress     map[uint64]model.ProgressRecord
}

// New returns an empty store. A non-empty path enables JSON persistence.
func New(path string) (*Store, error) {
	s := &Store{
		path:         path,
		courses:      map[uint64]model.CourseTemplate{},
		items:        map[uint64]model.CourseItem{},
		reservations: map[uint64]model.Reservation{},
		progress:     map[uint64]model.ProgressRecord{},
	}
	snap, err := readSnapshot(path)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		for _, c := range snap.Courses {
			s.courses[c.ID] = c
		}
		for _, it := range snap.Items {
			s.items[it.ID] = it
		}
		for _, r := range snap.Reservations {
			s.reservations[r.ID] = r
		}
		for _, p := range snap.Progress {
			s.progress[p.ID] = p
		}
		s.nextID = snap.NextID
	}
	return s, nil
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

// --- course templates ---

func (s *Store) ListCourses(_ context.Context, activeOnly bool) ([]model.CourseTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.CourseTemplate
	for _, c := range s.courses {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetCourse(_ context.Context, id uint64) (*model.CourseTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCourse(_ context.Context, c *model.CourseTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.checkpoint()
	if s.nameTaken(c.Name, 0) {
		return repository.ErrDuplicate
	}
	c.ID = s.id()
	s.courses[c.ID] = *c
	return s.commit(restore)
}

func (s *Store) UpdateCourse(_ context.Context, c *model.CourseTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.checkpoint()
	if _, ok := s.courses[c.ID]; !ok {
		return repository.ErrNotFound
	}
	if s.nameTaken(c.Name, c.ID) {
		return repository.ErrDuplicate
	}
	s.courses[c.ID] = *c
	return s.commit(restore)
}

func (s *Store) DeleteCourse(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.checkpoint()
	if _, ok := s.courses[id]; !ok {
		return repository.ErrNotFound
	}
	for _, r := range s.reservations {
		if r.CourseID == id {
			return repository.ErrInUse
		}
	}
	for iid, it := range s.items {
		if it.CourseID == id {
			s.dropItemLocked(iid)
		}
	}
	delete(s.courses, id)
	return s.commit(restore)
}

func (s *Store) nameTaken(name string, except uint64) bool {
	for _, c := range s.courses {
		if c.ID != except && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// --- course items ---

func (s *Store) ListItems(_ context.Context, courseID uint64) ([]model.CourseItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.CourseItem
	for _, it := range s.items {
		if it.CourseID == courseID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetItem(_ context.Context, id uint64) (*model.CourseItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &it, nil
}

func (s *Store) MaxDisplayOrder(_ context.Context, courseID uint64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	max := 0
	for _, it := range s.items {
		if it.CourseID == courseID && it.DisplayOrder > max {
			max = it.DisplayOrder
		}
	}
	return max, nil
}

func (s *Store) CreateItem(_ context.Context, it *model.CourseItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.checkpoint()
	if _, ok := s.courses[it.CourseID]; !ok {
		return repository.ErrNotFound
	}
	it.ID = s.id()
	s.items[it.ID] = *it
	return s.commit(restore)
}

func (s *Store) UpdateItem(_ context.Context, it *model.CourseItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.checkpoint()
	cur, ok := s.items[it.ID]
	if !ok {
		return repository.ErrNotFound
	}
	it.CourseID = cur.CourseID
	s.items[it.ID] = *it
	return s.commit(restore)
}

func (s *Store) DeleteItem(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.checkpoint()
	if _, ok := s.items[id]; !ok {
		return repository.ErrNotFound
	}
	s.dropItemLocked(id)
	return s.commit(restore)
}

func (s *Store) dropItemLocked(id uint64) {
	for pid, p := range s.progress {
		if p.CourseItemID == id {
			delete(s.progress, pid)
		}
	}
	delete(s.items, id)
}

// --- reservations ---

func (s *Store) CreateReservation(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.checkpoint()
	if _, ok := s.courses[r.CourseID]; !ok {
		return repository.ErrNotFound
	}
	r.ID = s.id()
	s.reservations[r.ID] = *r
	return s.commit(restore)
}

func (s *Store) GetReservation(_ context.Context, id uint64) (*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *Store) UpdateReservation(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.checkpoint()
	cur, ok := s.reservations[r.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.GuestName = r.GuestName
	cur.GuestCount = r.GuestCount
	cur.TableNo = r.TableNo
	cur.Status = r.Status
	cur.Note = r.Note
	cur.MainChoice = r.MainChoice
	cur.ArrivedAt = r.ArrivedAt
	cur.UpdatedAt = r.UpdatedAt
	s.reservations[r.ID] = cur
	return s.commit(restore)
}

func (s *Store) UpdateStatus(_ context.Context, id uint64, status model.Status, arrivedAt *time.Time, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.checkpoint()
	cur, ok := s.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Status = status
	cur.ArrivedAt = arrivedAt
	cur.UpdatedAt = updatedAt
	s.reservations[id] = cur
	return s.commit(restore)
}

func (s *Store) DeleteReservation(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.checkpoint()
	if _, ok := s.reservations[id]; !ok {
		return repository.ErrNotFound
	}
	s.dropReservationLocked(id)
	return s.commit(restore)
}

func (s *Store) dropReservationLocked(id uint64) {
	for pid, p := range s.progress {
		if p.ReservationID == id {
			delete(s.progress, pid)
		}
	}
	delete(s.reservations, id)
}

func (s *Store) ListBetween(_ context.Context, from, to time.Time) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterReservations(func(r model.Reservation) bool {
		return !r.ReservedAt.Before(from) && r.ReservedAt.Before(to)
	}), nil
}

func (s *Store) ListBlocking(_ context.Context, table string, from, to time.Time, excludeID uint64) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterReservations(func(r model.Reservation) bool {
		return r.TableNo == table && r.Blocks() && r.ID != excludeID &&
			!r.ReservedAt.Before(from) && r.ReservedAt.Before(to)
	}), nil
}

func (s *Store) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.checkpoint()
	n := 0
	for id, r := range s.reservations {
		if r.ReservedAt.Before(cutoff) {
			s.dropReservationLocked(id)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.commit(restore)
}

func (s *Store) filterReservations(keep func(model.Reservation) bool) []model.Reservation {
	var out []model.Reservation
	for _, r := range s.reservations {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReservedAt.Equal(out[j].ReservedAt) {
			return out[i].ReservedAt.Before(out[j].ReservedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// --- progress records ---

func (s *Store) CreateProgress(_ context.Context, recs []model.ProgressRecord) error {
	if len(recs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.checkpoint()
	for i := range recs {
		if _, ok := s.reservations[recs[i].ReservationID]; !ok {
			return repository.ErrNotFound
		}
	}
	for _, p := range recs {
		p.ID = s.id()
		s.progress[p.ID] = p
	}
	return s.commit(restore)
}

func (s *Store) GetProgress(_ context.Context, id uint64) (*model.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListByReservations(_ context.Context, ids []uint64) ([]model.ProgressRecord, error) {
	want := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterProgress(func(p model.ProgressRecord) bool { return want[p.ReservationID] },
		func(p model.ProgressRecord) time.Time { return p.ScheduledTime }), nil
}

func (s *Store) ListCookedBetween(_ context.Context, from, to time.Time) ([]model.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterProgress(func(p model.ProgressRecord) bool {
		return p.IsCooked && p.CookedAt != nil && !p.CookedAt.Before(from) && p.CookedAt.Before(to)
	}, func(p model.ProgressRecord) time.Time { return *p.CookedAt }), nil
}

func (s *Store) ListServedBetween(_ context.Context, from, to time.Time) ([]model.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterProgress(func(p model.ProgressRecord) bool {
		return p.IsServed && p.ServedAt != nil && !p.ServedAt.Before(from) && p.ServedAt.Before(to)
	}, func(p model.ProgressRecord) time.Time { return *p.ServedAt }), nil
}

func (s *Store) DeleteForItems(_ context.Context, reservationID uint64, itemIDs []uint64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	drop := make(map[uint64]bool, len(itemIDs))
	for _, id := range itemIDs {
		drop[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.checkpoint()
	for pid, p := range s.progress {
		if p.ReservationID == reservationID && drop[p.CourseItemID] {
			delete(s.progress, pid)
		}
	}
	return s.commit(restore)
}

func (s *Store) SetCooked(_ context.Context, id uint64, flag bool, at time.Time) error {
	return s.updateProgress(id, func(p *model.ProgressRecord) {
		p.IsCooked = flag
		switch {
		case !flag:
			p.CookedAt = nil
		case p.CookedAt == nil:
			t := at
			p.CookedAt = &t
		}
	})
}

func (s *Store) SetServed(_ context.Context, id uint64, flag bool, at time.Time) error {
	return s.updateProgress(id, func(p *model.ProgressRecord) {
		p.IsServed = flag
		switch {
		case !flag:
			p.ServedAt = nil
		case p.ServedAt == nil:
			t := at
			p.ServedAt = &t
		}
	})
}

func (s *Store) updateProgress(id uint64, fn func(*model.ProgressRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	restore := s.checkpoint()
	p, ok := s.progress[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&p)
	s.progress[id] = p
	return s.commit(restore)
}

func (s *Store) filterProgress(keep func(model.ProgressRecord) bool, key func(model.ProgressRecord) time.Time) []model.ProgressRecord {
	var out []model.ProgressRecord
	for _, p := range s.progress {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := key(out[i]), key(out[j])
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// --- persistence ---

// checkpoint captures the tables so a write whose snapshot fails can be
// undone. Callers hold mu. Without a snapshot path there is nothing to
// undo.
func (s *Store) checkpoint() func() {
	if s.path == "" {
		return func() {}
	}
	nextID := s.nextID
	courses, items := maps.Clone(s.courses), maps.Clone(s.items)
	reservations, progress := maps.Clone(s.reservations), maps.Clone(s.progress)
	return func() {
		s.nextID = nextID
		s.courses, s.items = courses, items
		s.reservations, s.progress = reservations, progress
	}
}

// commit persists the snapshot and rolls the tables back when that fails,
// so a write reported as failed is never visible to later reads.
func (s *Store) commit(restore func()) error {
	if err := s.persist(); err != nil {
		restore()
		return err
	}
	return nil
}

// persist writes the snapshot when a path is configured. Callers hold mu.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	snap := snapshot{NextID: s.nextID}
	for _, c := range s.courses {
		snap.Courses = append(snap.Courses, c)
	}
	for _, it := range s.items {
		snap.Items = append(snap.Items, it)
	}
	for _, r := range s.reservations {
		snap.Reservations = append(snap.Reservations, r)
	}
	for _, p := range s.progress {
		snap.Progress = append(snap.Progress, p)
	}
	return writeSnapshot(s.path, snap)
}

// readSnapshot loads the persisted JSON file if it exists.
func readSnapshot(path string) (*snapshot, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// writeSnapshot persists the current state to disk through a temp file.
func writeSnapshot(path string, snap snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	temp := path + ".tmp"
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(temp, path)
}
