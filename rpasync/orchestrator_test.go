package rpasync

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/docuconta/books_backend/config"
	"github.com/docuconta/books_backend/models"
	"github.com/docuconta/books_backend/utils"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(vendor *fakeVendor, docs *fakeDocumentStore, actions *fakeActionStore) *Orchestrator {
	return NewOrchestrator(vendor, docs, actions, config.GetLogger())
}

func testDocument() (*models.Document, *models.ExtractedInvoice) {
	doc := &models.Document{ID: 7, AccountingSubjectId: "subject-1", IsProcessed: true}
	return doc, sampleInvoice()
}

func TestSubmitDataEntry_AcceptedSubmissionIsPending(t *testing.T) {
	doc, extracted := testDocument()
	vendor := &fakeVendor{startResult: StartJobResult{
		JobKey:     "job-key-9",
		HTTPStatus: http.StatusCreated,
		Raw:        json.RawMessage(`{"value":[{"Key":"job-key-9"}]}`),
	}}
	actions := newFakeActionStore()
	o := newTestOrchestrator(vendor, &fakeDocumentStore{doc: doc, extracted: extracted}, actions)

	action, err := o.SubmitDataEntry(context.Background(), 7, 42, "RO999")
	require.NoError(t, err)
	require.Equal(t, models.RpaActionStatusPending, action.Status)
	require.Equal(t, models.RpaActionTypeDataEntry, action.ActionType)
	require.Equal(t, "subject-1", action.AccountingSubjectId)
	require.Equal(t, 42, action.TriggeredById)

	result, err := action.DecodeResult()
	require.NoError(t, err)
	require.Equal(t, "job-key-9", result.JobKey)
	require.NotEmpty(t, result.VendorResponse)

	// Buyer EIN mismatch: the outgoing template runs with the buyer id.
	require.Equal(t, "release-out", vendor.lastReleaseKey)
	require.Equal(t, "RO111", vendor.lastPayload.BuyerEin)
	require.Empty(t, vendor.lastPayload.SellerEin)
}

func TestSubmitDataEntry_IncomingDirection(t *testing.T) {
	doc, extracted := testDocument()
	vendor := &fakeVendor{startResult: StartJobResult{JobKey: "k", HTTPStatus: http.StatusCreated}}
	o := newTestOrchestrator(vendor, &fakeDocumentStore{doc: doc, extracted: extracted}, newFakeActionStore())

	// Caller's subject EIN equals the extracted buyer EIN.
	_, err := o.SubmitDataEntry(context.Background(), 7, 42, "RO111")
	require.NoError(t, err)
	require.Equal(t, "release-in", vendor.lastReleaseKey)
	require.Equal(t, "RO222", vendor.lastPayload.SellerEin)
	require.Empty(t, vendor.lastPayload.BuyerEin)
}

func TestSubmitDataEntry_Http200IsCompleted(t *testing.T) {
	doc, extracted := testDocument()
	vendor := &fakeVendor{startResult: StartJobResult{JobKey: "k", HTTPStatus: http.StatusOK}}
	o := newTestOrchestrator(vendor, &fakeDocumentStore{doc: doc, extracted: extracted}, newFakeActionStore())

	action, err := o.SubmitDataEntry(context.Background(), 7, 42, "RO111")
	require.NoError(t, err)
	require.Equal(t, models.RpaActionStatusCompleted, action.Status)
}

func TestSubmitDataEntry_MissingDocumentIsNotFound(t *testing.T) {
	o := newTestOrchestrator(&fakeVendor{}, &fakeDocumentStore{}, newFakeActionStore())

	_, err := o.SubmitDataEntry(context.Background(), 404, 42, "RO111")
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestSubmitDataEntry_FailureIsDurableAndOriginalErrorPropagates(t *testing.T) {
	doc, extracted := testDocument()
	vendorErr := &VendorError{StatusCode: http.StatusBadGateway, Body: json.RawMessage(`{"message":"robot farm down"}`)}
	vendor := &fakeVendor{startErr: vendorErr}
	actions := newFakeActionStore()
	o := newTestOrchestrator(vendor, &fakeDocumentStore{doc: doc, extracted: extracted}, actions)

	_, err := o.SubmitDataEntry(context.Background(), 7, 42, "RO111")
	require.Error(t, err)
	// The original vendor error is what the caller observes.
	var got *VendorError
	require.ErrorAs(t, err, &got)
	require.ErrorIs(t, err, utils.ErrorVendorCommunication)

	// And a FAILED action row with a non-empty error payload exists.
	saved := actions.get(1)
	require.Equal(t, models.RpaActionStatusFailed, saved.Status)
	result, derr := saved.DecodeResult()
	require.NoError(t, derr)
	require.NotEmpty(t, result.Error)
	require.Contains(t, string(result.VendorResponse), "robot farm down")
}

func TestSubmitDataEntry_AuditWriteFailureDoesNotMaskOriginalError(t *testing.T) {
	doc, extracted := testDocument()
	vendorErr := &VendorError{StatusCode: http.StatusBadGateway}
	actions := newFakeActionStore()
	actions.failNew = errVendorDown
	o := newTestOrchestrator(&fakeVendor{startErr: vendorErr}, &fakeDocumentStore{doc: doc, extracted: extracted}, actions)

	_, err := o.SubmitDataEntry(context.Background(), 7, 42, "RO111")
	var got *VendorError
	require.ErrorAs(t, err, &got)
}

func TestCheckActionStatus_TerminalReturnsWithoutPolling(t *testing.T) {
	vendor := &fakeVendor{}
	actions := newFakeActionStore()
	require.NoError(t, actions.Create(context.Background(), &models.RpaAction{
		DocumentId: 7,
		ActionType: models.RpaActionTypeDataEntry,
		Status:     models.RpaActionStatusCompleted,
	}))
	o := newTestOrchestrator(vendor, &fakeDocumentStore{}, actions)

	action, err := o.CheckActionStatus(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, models.RpaActionStatusCompleted, action.Status)
	require.Empty(t, vendor.statusCalls)
}

func pendingAction(t *testing.T, actions *fakeActionStore, documentId int, jobKey string) int {
	t.Helper()
	blob, err := json.Marshal(models.RpaActionResult{JobKey: jobKey})
	require.NoError(t, err)
	action := &models.RpaAction{
		DocumentId: documentId,
		ActionType: models.RpaActionTypeDataEntry,
		Status:     models.RpaActionStatusPending,
		Result:     blob,
	}
	require.NoError(t, actions.Create(context.Background(), action))
	return action.ID
}

func TestCheckActionStatus_PendingTerminalizesOnSuccess(t *testing.T) {
	actions := newFakeActionStore()
	id := pendingAction(t, actions, 7, "job-key-9")
	vendor := &fakeVendor{states: map[string]string{"job-key-9": "Successful"}}
	o := newTestOrchestrator(vendor, &fakeDocumentStore{}, actions)

	action, err := o.CheckActionStatus(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, models.RpaActionStatusCompleted, action.Status)

	saved := actions.get(id)
	require.Equal(t, models.RpaActionStatusCompleted, saved.Status)
	result, derr := saved.DecodeResult()
	require.NoError(t, derr)
	require.Equal(t, "Successful", result.State)
}

func TestCheckActionStatus_InProgressStaysPending(t *testing.T) {
	actions := newFakeActionStore()
	id := pendingAction(t, actions, 7, "job-key-9")
	vendor := &fakeVendor{states: map[string]string{"job-key-9": "Running"}}
	o := newTestOrchestrator(vendor, &fakeDocumentStore{}, actions)

	action, err := o.CheckActionStatus(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, models.RpaActionStatusPending, action.Status)
	require.Equal(t, models.RpaActionStatusPending, actions.get(id).Status)
}

func TestCheckActionStatus_NoActionIsNotFound(t *testing.T) {
	o := newTestOrchestrator(&fakeVendor{}, &fakeDocumentStore{}, newFakeActionStore())

	_, err := o.CheckActionStatus(context.Background(), 7)
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestCheckActionStatus_MissingJobKey(t *testing.T) {
	actions := newFakeActionStore()
	require.NoError(t, actions.Create(context.Background(), &models.RpaAction{
		DocumentId: 7,
		ActionType: models.RpaActionTypeDataEntry,
		Status:     models.RpaActionStatusPending,
	}))
	o := newTestOrchestrator(&fakeVendor{}, &fakeDocumentStore{}, actions)

	_, err := o.CheckActionStatus(context.Background(), 7)
	require.ErrorIs(t, err, utils.ErrorJobKeyMissing)
}
