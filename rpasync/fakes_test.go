package rpasync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/docuconta/books_backend/models"
	"github.com/docuconta/books_backend/utils"
)

// DB-free fakes used across the package tests.

type fakeVendor struct {
	startResult StartJobResult
	startErr    error
	states      map[string]string
	stateErr    map[string]error
	startCalls  int
	statusCalls []string

	lastReleaseKey string
	lastPayload    JobPayload
}

func (f *fakeVendor) StartJob(ctx context.Context, releaseKey string, payload JobPayload) (StartJobResult, error) {
	f.startCalls++
	f.lastReleaseKey = releaseKey
	f.lastPayload = payload
	if f.startErr != nil {
		return StartJobResult{}, f.startErr
	}
	return f.startResult, nil
}

func (f *fakeVendor) JobStatus(ctx context.Context, jobKey string) (string, error) {
	f.statusCalls = append(f.statusCalls, jobKey)
	if err, ok := f.stateErr[jobKey]; ok {
		return "", err
	}
	return f.states[jobKey], nil
}

func (f *fakeVendor) ReleaseKey(direction Direction) string {
	if direction == DirectionIncoming {
		return "release-in"
	}
	return "release-out"
}

type fakeActionStore struct {
	mu      sync.Mutex
	nextId  int
	rows    map[int]*models.RpaAction
	byDoc   map[int][]int
	failNew error
}

func newFakeActionStore() *fakeActionStore {
	return &fakeActionStore{rows: map[int]*models.RpaAction{}, byDoc: map[int][]int{}}
}

func (s *fakeActionStore) Create(ctx context.Context, action *models.RpaAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNew != nil {
		return s.failNew
	}
	s.nextId++
	action.ID = s.nextId
	clone := *action
	s.rows[action.ID] = &clone
	s.byDoc[action.DocumentId] = append(s.byDoc[action.DocumentId], action.ID)
	return nil
}

func (s *fakeActionStore) LatestForDocument(ctx context.Context, documentId int, actionType string) (*models.RpaAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byDoc[documentId]
	for i := len(ids) - 1; i >= 0; i-- {
		if row := s.rows[ids[i]]; row.ActionType == actionType {
			clone := *row
			return &clone, nil
		}
	}
	return nil, utils.ErrorRecordNotFound
}

func (s *fakeActionStore) Pending(ctx context.Context, actionType string) ([]models.RpaAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RpaAction
	for id := 1; id <= s.nextId; id++ {
		if row, ok := s.rows[id]; ok && row.ActionType == actionType && row.Status == models.RpaActionStatusPending {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *fakeActionStore) TerminalizeIfPending(ctx context.Context, actionId int, status models.RpaActionStatus, result models.RpaActionResult) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[actionId]
	if !ok || row.Status != models.RpaActionStatusPending {
		return false, nil
	}
	blob, err := json.Marshal(result)
	if err != nil {
		return false, err
	}
	row.Status = status
	row.Result = blob
	return true, nil
}

func (s *fakeActionStore) get(id int) models.RpaAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.rows[id]
}

type fakeDocumentStore struct {
	doc       *models.Document
	extracted *models.ExtractedInvoice
	err       error
}

func (s *fakeDocumentStore) ProcessedWithExtraction(ctx context.Context, documentId int) (*models.Document, *models.ExtractedInvoice, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	if s.doc == nil || s.doc.ID != documentId {
		return nil, nil, utils.ErrorRecordNotFound
	}
	return s.doc, s.extracted, nil
}

var errVendorDown = errors.New("vendor unreachable")
