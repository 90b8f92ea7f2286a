package service

import (
	"testing"

	"portal/internal/apperror"
	"portal/internal/model"
	"portal/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeEntryService_BasicRollup(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	task := f.task("Development", "100")
	invoice := f.invoice(System, CreateInvoiceRequest{})

	for _, h := range []string{"2", "3", "4"} {
		f.entry(alice, CreateTimeEntryRequest{
			Hours:     h,
			TaskID:    ptr(task.ID.String()),
			InvoiceID: ptr(invoice.ID),
		})
	}

	got := f.reload(invoice.ID)
	assert.Equal(t, "9.00", got.Hours)
	assert.Equal(t, "900.00", got.Amount)
	assert.Equal(t, "0.00", got.Cost)
	assert.Equal(t, "900.00", got.Net)
	assert.Equal(t, "900.00", got.Balance)
	assert.Equal(t, model.InvoiceStateOpen, got.State)
}

func TestTimeEntryService_DefaultTaskFallback(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	project := f.project("Website", ProjectRequest{})

	entry := f.entry(alice, CreateTimeEntryRequest{Hours: "3", ProjectID: ptr(project.ID.String())})

	require.NotNil(t, entry.TaskID)
	assert.Equal(t, "Default Task", entry.TaskName)
	task, err := f.taskRepo.Get(f.ctx, uuid.MustParse(*entry.TaskID))
	require.NoError(t, err)
	assert.True(t, task.IsDefault())
	assert.Equal(t, "300.00", entry.Amount)

	// A second entry reuses the same default task.
	again := f.entry(alice, CreateTimeEntryRequest{Hours: "1"})
	assert.Equal(t, *entry.TaskID, *again.TaskID)
}

func TestTimeEntryService_DefaultTaskOrder(t *testing.T) {
	f := newFixture(t)
	projectTask := f.task("Project work", "80")
	profileTask := f.task("Profile work", "60")
	alice := f.user("alice", false, "")
	_, err := f.users.UpdateProfile(f.ctx, alice, alice.ID.String(), UpdateProfileRequest{DefaultTaskID: ptr(profileTask.ID.String())})
	require.NoError(t, err)

	withDefault := f.project("With default", ProjectRequest{DefaultTaskID: ptr(projectTask.ID.String())})
	withoutDefault := f.project("Without default", ProjectRequest{})

	e1 := f.entry(alice, CreateTimeEntryRequest{Hours: "1", ProjectID: ptr(withDefault.ID.String())})
	assert.Equal(t, projectTask.ID.String(), *e1.TaskID)

	e2 := f.entry(alice, CreateTimeEntryRequest{Hours: "1", ProjectID: ptr(withoutDefault.ID.String())})
	assert.Equal(t, profileTask.ID.String(), *e2.TaskID)
	assert.Equal(t, "60.00", e2.Amount)
}

func TestTimeEntryService_ClearingTaskReappliesDefault(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	task := f.task("Design", "120")
	entry := f.entry(alice, CreateTimeEntryRequest{Hours: "2", TaskID: ptr(task.ID.String())})
	assert.Equal(t, "240.00", entry.Amount)

	updated, err := f.entries.Update(f.ctx, alice, entry.ID, UpdateTimeEntryRequest{TaskID: ptr("")})
	require.NoError(t, err)
	require.NotNil(t, updated.TaskID)
	assert.NotEqual(t, task.ID.String(), *updated.TaskID)
	assert.Equal(t, "Default Task", updated.TaskName)
	assert.Equal(t, "200.00", updated.Amount)
}

func TestTimeEntryService_DeleteRecomputesInvoice(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	task := f.task("Development", "100")
	invoice := f.invoice(System, CreateInvoiceRequest{})

	var four *TimeEntryResponse
	for _, h := range []string{"3", "4", "3"} {
		e := f.entry(alice, CreateTimeEntryRequest{Hours: h, TaskID: ptr(task.ID.String()), InvoiceID: ptr(invoice.ID)})
		if h == "4" {
			four = e
		}
	}
	require.Equal(t, "1000.00", f.reload(invoice.ID).Amount)

	require.NoError(t, f.entries.Delete(f.ctx, alice, four.ID))

	got := f.reload(invoice.ID)
	assert.Equal(t, "6.00", got.Hours)
	assert.Equal(t, "600.00", got.Amount)
}

func TestTimeEntryService_PermissionDenied(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	bob := f.user("bob", false, "")
	entry := f.entry(alice, CreateTimeEntryRequest{Hours: "2", Description: "original"})

	_, err := f.entries.Update(f.ctx, bob, entry.ID, UpdateTimeEntryRequest{Hours: ptr("8"), Description: ptr("changed")})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	err = f.entries.Delete(f.ctx, bob, entry.ID)
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	got, err := f.entries.Get(f.ctx, alice, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "2.00", got.Hours)
	assert.Equal(t, "original", got.Description)
}

func TestTimeEntryService_CreateForAnotherUser(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	bob := f.user("bob", false, "")
	admin := f.user("admin", true, "")

	_, err := f.entries.Create(f.ctx, bob, CreateTimeEntryRequest{Hours: "1", UserID: ptr(alice.ID.String())})
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	entry, err := f.entries.Create(f.ctx, admin, CreateTimeEntryRequest{Hours: "1", UserID: ptr(alice.ID.String())})
	require.NoError(t, err)
	assert.Equal(t, alice.ID.String(), entry.UserID)
}

func TestTimeEntryService_UpdatePreservesUser(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	admin := f.user("admin", true, "")
	entry := f.entry(alice, CreateTimeEntryRequest{Hours: "2"})

	updated, err := f.entries.Update(f.ctx, admin, entry.ID, UpdateTimeEntryRequest{Hours: ptr("5")})
	require.NoError(t, err)
	assert.Equal(t, alice.ID.String(), updated.UserID)
	assert.Equal(t, "5.00", updated.Hours)
}

func TestTimeEntryService_MovingEntryRecomputesBothInvoices(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	task := f.task("Development", "100")
	first := f.invoice(System, CreateInvoiceRequest{})
	second := f.invoice(System, CreateInvoiceRequest{})

	entry := f.entry(alice, CreateTimeEntryRequest{Hours: "2", TaskID: ptr(task.ID.String()), InvoiceID: ptr(first.ID)})
	require.Equal(t, "200.00", f.reload(first.ID).Amount)

	_, err := f.entries.Update(f.ctx, alice, entry.ID, UpdateTimeEntryRequest{InvoiceID: ptr(second.ID)})
	require.NoError(t, err)

	assert.Equal(t, "0.00", f.reload(first.ID).Amount)
	assert.Equal(t, "0.00", f.reload(first.ID).Hours)
	assert.Equal(t, "200.00", f.reload(second.ID).Amount)
}

func TestTimeEntryService_Validation(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")

	_, err := f.entries.Create(f.ctx, alice, CreateTimeEntryRequest{Hours: "-1"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.entries.Create(f.ctx, alice, CreateTimeEntryRequest{Hours: "1", ProjectID: ptr(uuid.NewString())})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.entries.Get(f.ctx, alice, uuid.NewString())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestTimeEntryService_EveryEntryHasTask(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	project := f.project("Website", ProjectRequest{})
	invoice := f.invoice(System, CreateInvoiceRequest{})

	f.entry(alice, CreateTimeEntryRequest{Hours: "1"})
	f.entry(alice, CreateTimeEntryRequest{Hours: "2", ProjectID: ptr(project.ID.String())})
	f.entry(alice, CreateTimeEntryRequest{Hours: "3", InvoiceID: ptr(invoice.ID)})

	entries, total, err := f.entries.List(f.ctx, alice, repository.ListOptions{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	for _, e := range entries {
		assert.NotNil(t, e.TaskID)
	}
}

func TestTimeEntryService_ListOwnerScope(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	bob := f.user("bob", false, "")
	admin := f.user("admin", true, "")
	f.entry(alice, CreateTimeEntryRequest{Hours: "1"})
	f.entry(bob, CreateTimeEntryRequest{Hours: "1"})

	_, total, err := f.entries.List(f.ctx, alice, repository.ListOptions{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, total, err = f.entries.List(f.ctx, admin, repository.ListOptions{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestTimeEntryNotifier(t *testing.T) {
	f := newFixture(t)
	quiet := f.user("quiet", false, "")
	loud := f.user("loud", false, "")
	_, err := f.users.UpdateProfile(f.ctx, loud, loud.ID.String(), UpdateProfileRequest{Mail: ptr(true)})
	require.NoError(t, err)

	f.entry(quiet, CreateTimeEntryRequest{Hours: "1"})
	assert.Empty(t, f.mailer.sent)

	entry := f.entry(loud, CreateTimeEntryRequest{Hours: "1.5", Description: "standup"})
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "office@example.com", f.mailer.sent[0].To)
	assert.Equal(t, "New time entry created by loud", f.mailer.sent[0].Subject)
	assert.Contains(t, f.mailer.sent[0].Body, "standup")

	// Updates do not notify.
	_, err = f.entries.Update(f.ctx, loud, entry.ID, UpdateTimeEntryRequest{Hours: ptr("2")})
	require.NoError(t, err)
	assert.Len(t, f.mailer.sent, 1)
}

func TestTimeEntryNotifier_FailureDoesNotBlockWrite(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = assert.AnError
	loud := f.user("loud", false, "")
	_, err := f.users.UpdateProfile(f.ctx, loud, loud.ID.String(), UpdateProfileRequest{Mail: ptr(true)})
	require.NoError(t, err)

	_, err = f.entries.Create(f.ctx, loud, CreateTimeEntryRequest{Hours: "1"})
	require.NoError(t, err)
	assert.Len(t, f.mailer.sent, 1)
}

func TestTimeEntryService_CannotLogOnAnotherUsersInvoice(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	bob := f.user("bob", false, "")
	task := f.task("Development", "100")
	bobs := f.invoice(bob, CreateInvoiceRequest{})
	shared := f.invoice(System, CreateInvoiceRequest{})

	_, err := f.entries.Create(f.ctx, alice, CreateTimeEntryRequest{Hours: "5", TaskID: ptr(task.ID.String()), InvoiceID: ptr(bobs.ID)})
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))
	assert.Equal(t, "0.00", f.reload(bobs.ID).Amount)

	entry := f.entry(alice, CreateTimeEntryRequest{Hours: "5", TaskID: ptr(task.ID.String()), InvoiceID: ptr(shared.ID)})
	_, err = f.entries.Update(f.ctx, alice, entry.ID, UpdateTimeEntryRequest{InvoiceID: ptr(bobs.ID)})
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))
	assert.Equal(t, "0.00", f.reload(bobs.ID).Amount)
	assert.Equal(t, "500.00", f.reload(shared.ID).Amount)

	// Other edits on an entry already on the invoice are unaffected.
	_, err = f.entries.Update(f.ctx, alice, entry.ID, UpdateTimeEntryRequest{Description: ptr("refactor")})
	assert.NoError(t, err)

	f.entry(bob, CreateTimeEntryRequest{Hours: "1", TaskID: ptr(task.ID.String()), InvoiceID: ptr(bobs.ID)})
	assert.Equal(t, "100.00", f.reload(bobs.ID).Amount)
}

func TestTimeEntryService_ProjectChangeRederivesClient(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	c1, err := f.catalog.CreateClient(f.ctx, System, ClientRequest{Name: ptr("Acme")})
	require.NoError(t, err)
	c2, err := f.catalog.CreateClient(f.ctx, System, ClientRequest{Name: ptr("Globex")})
	require.NoError(t, err)
	p1 := f.project("One", ProjectRequest{ClientID: ptr(c1.ID.String())})
	p2 := f.project("Two", ProjectRequest{ClientID: ptr(c2.ID.String())})
	p3 := f.project("Three", ProjectRequest{})

	entry := f.entry(alice, CreateTimeEntryRequest{Hours: "1", ProjectID: ptr(p1.ID.String())})
	require.NotNil(t, entry.ClientID)
	assert.Equal(t, c1.ID.String(), *entry.ClientID)

	moved, err := f.entries.Update(f.ctx, alice, entry.ID, UpdateTimeEntryRequest{ProjectID: ptr(p2.ID.String())})
	require.NoError(t, err)
	require.NotNil(t, moved.ClientID)
	assert.Equal(t, c2.ID.String(), *moved.ClientID)

	// An explicit client wins over the project's.
	moved, err = f.entries.Update(f.ctx, alice, entry.ID, UpdateTimeEntryRequest{ProjectID: ptr(p1.ID.String()), ClientID: ptr(c2.ID.String())})
	require.NoError(t, err)
	assert.Equal(t, c2.ID.String(), *moved.ClientID)

	// Unrelated edits keep the client as is.
	moved, err = f.entries.Update(f.ctx, alice, entry.ID, UpdateTimeEntryRequest{Hours: ptr("2")})
	require.NoError(t, err)
	assert.Equal(t, c2.ID.String(), *moved.ClientID)

	moved, err = f.entries.Update(f.ctx, alice, entry.ID, UpdateTimeEntryRequest{ProjectID: ptr(p3.ID.String())})
	require.NoError(t, err)
	assert.Nil(t, moved.ClientID)
}
