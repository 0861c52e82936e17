package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"arwaeduc/internal/core"
	"arwaeduc/internal/records"
)

// AttendanceService keeps monthly attendance grids as versioned state
// documents, one per group and month.
type AttendanceService struct {
	state records.StateStore
	now   func() time.Time
	locks keyedLocks
}

func NewAttendanceService(state records.StateStore) *AttendanceService {
	return &AttendanceService{state: state, now: time.Now}
}

// keyedLocks hands out one mutex per state key and forgets it once no
// caller holds or waits on it.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*keyLock{}
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Sheet loads the grid for groupID and month. A missing document yields an
// empty sheet.
func (s *AttendanceService) Sheet(ctx context.Context, groupID string, year, month int) (core.AttendanceSheet, error) {
	doc, err := s.state.LoadState(ctx, core.AttendanceKey(groupID, year, month))
	if errors.Is(err, records.ErrStateNotFound) {
		return core.NewAttendanceSheet(groupID, year, month), nil
	}
	if err != nil {
		return core.AttendanceSheet{}, fmt.Errorf("load attendance: %w", err)
	}
	return decodeSheet(doc)
}

// decodeSheet rejects any schema version it does not know how to read.
func decodeSheet(doc records.Document) (core.AttendanceSheet, error) {
	if doc.SchemaVersion != core.AttendanceSchemaVersion {
		return core.AttendanceSheet{}, fmt.Errorf("%w: %s has version %d", records.ErrUnsupportedSchema, doc.Key, doc.SchemaVersion)
	}
	var sheet core.AttendanceSheet
	if err := json.Unmarshal(doc.Payload, &sheet); err != nil {
		return core.AttendanceSheet{}, fmt.Errorf("decode attendance %s: %w", doc.Key, err)
	}
	if sheet.Marks == nil {
		sheet.Marks = map[string]map[int]core.AttendanceStatus{}
	}
	return sheet, nil
}

// Mark sets studentID's status on date and saves the sheet. Marks on the
// same group and month are applied one at a time so none is lost between
// load and save.
func (s *AttendanceService) Mark(ctx context.Context, groupID, studentID string, date time.Time, status core.AttendanceStatus) (core.AttendanceSheet, error) {
	if groupID == "" {
		return core.AttendanceSheet{}, fmt.Errorf("group id is required")
	}
	if date.IsZero() {
		return core.AttendanceSheet{}, core.ErrInvalidDate
	}
	unlock := s.locks.lock(core.AttendanceKey(groupID, date.Year(), int(date.Month())))
	defer unlock()

	sheet, err := s.Sheet(ctx, groupID, date.Year(), int(date.Month()))
	if err != nil {
		return core.AttendanceSheet{}, err
	}
	if err := sheet.Mark(studentID, date, status); err != nil {
		return core.AttendanceSheet{}, err
	}
	sheet.SchemaVersion = core.AttendanceSchemaVersion
	payload, err := json.Marshal(sheet)
	if err != nil {
		return core.AttendanceSheet{}, fmt.Errorf("encode attendance: %w", err)
	}
	doc := records.Document{
		Key:           core.AttendanceKey(groupID, sheet.Year, sheet.Month),
		SchemaVersion: core.AttendanceSchemaVersion,
		Payload:       payload,
		UpdatedAt:     s.now(),
	}
	if err := s.state.SaveState(ctx, doc); err != nil {
		return core.AttendanceSheet{}, fmt.Errorf("save attendance: %w", err)
	}
	return sheet, nil
}

// Summary counts marks for days inside p. p must lie within one month.
func (s *AttendanceService) Summary(ctx context.Context, groupID string, p core.Period) (core.AttendanceSummary, error) {
	sheet, err := s.Sheet(ctx, groupID, p.Year(), p.Month())
	if err != nil {
		return core.AttendanceSummary{}, err
	}
	sum := core.AttendanceSummary{GroupID: groupID, Period: p, ByStudent: map[string]int{}}
	loc := p.Start.Location()
	for studentID, days := range sheet.Marks {
		for day, status := range days {
			if !p.Contains(time.Date(sheet.Year, time.Month(sheet.Month), day, 12, 0, 0, 0, loc)) {
				continue
			}
			switch status {
			case core.Present:
				sum.Present++
			case core.Absent:
				sum.Absent++
				sum.ByStudent[studentID]++
			case core.Late:
				sum.Late++
			}
		}
	}
	return sum, nil
}
