package service

import (
	"testing"

	"portal/internal/apperror"
	"portal/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_WritesRequireSuperuser(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")

	_, err := f.catalog.CreateCompany(f.ctx, alice, CompanyRequest{Name: ptr("Acme")})
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))
	_, err = f.catalog.CreateTask(f.ctx, alice, TaskRequest{Name: ptr("Dev")})
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	company, err := f.catalog.CreateCompany(f.ctx, System, CompanyRequest{Name: ptr("Acme")})
	require.NoError(t, err)

	// Reads are open.
	got, err := f.catalog.GetCompany(f.ctx, company.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
}

func TestCatalogService_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.CreateClient(f.ctx, System, ClientRequest{Name: ptr("  ")})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.catalog.CreateClient(f.ctx, System, ClientRequest{Name: ptr("Acme"), CompanyID: ptr(uuid.NewString())})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.catalog.CreateTask(f.ctx, System, TaskRequest{Name: ptr("Dev"), Unit: ptr("0")})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.catalog.CreateProject(f.ctx, System, ProjectRequest{
		Name:      ptr("Backwards"),
		StartDate: ptr("2024-05-10"),
		EndDate:   ptr("2024-05-01"),
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.catalog.CreateProject(f.ctx, System, ProjectRequest{Name: ptr("Ghosts"), TeamIDs: &[]string{uuid.NewString()}})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestCatalogService_ProjectTeam(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	bob := f.user("bob", false, "")

	project := f.project("Portal", ProjectRequest{TeamIDs: &[]string{alice.ID.String(), bob.ID.String()}})
	assert.Len(t, project.Team, 2)

	updated, err := f.catalog.UpdateProject(f.ctx, System, project.ID.String(), ProjectRequest{TeamIDs: &[]string{bob.ID.String()}})
	require.NoError(t, err)
	require.Len(t, updated.Team, 1)
	assert.Equal(t, "bob", updated.Team[0].Username)

	// Omitting team_ids keeps the team.
	updated, err = f.catalog.UpdateProject(f.ctx, System, project.ID.String(), ProjectRequest{Description: ptr("v2")})
	require.NoError(t, err)
	assert.Len(t, updated.Team, 1)
	assert.Equal(t, "v2", updated.Description)
}

func TestCatalogService_DeleteTaskReassignsEntries(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	doomed := f.task("Doomed", "300")
	invoice := f.invoice(System, CreateInvoiceRequest{TaskID: ptr(doomed.ID.String())})
	entry := f.entry(alice, CreateTimeEntryRequest{Hours: "2", TaskID: ptr(doomed.ID.String()), InvoiceID: ptr(invoice.ID)})
	require.Equal(t, "600.00", f.reload(invoice.ID).Amount)

	require.NoError(t, f.catalog.DeleteTask(f.ctx, System, doomed.ID.String()))

	got, err := f.entries.Get(f.ctx, alice, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TaskID)
	assert.NotEqual(t, doomed.ID.String(), *got.TaskID)
	assert.Equal(t, "Default Task", got.TaskName)
	assert.Equal(t, "200.00", got.Amount)

	inv := f.reload(invoice.ID)
	assert.Nil(t, inv.TaskID)
	assert.Equal(t, "200.00", inv.Amount)
}

func TestCatalogService_DefaultTaskCannotBeDeleted(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	entry := f.entry(alice, CreateTimeEntryRequest{Hours: "1"})

	err := f.catalog.DeleteTask(f.ctx, System, *entry.TaskID)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.catalog.GetTask(f.ctx, *entry.TaskID)
	assert.NoError(t, err)
}

func TestCatalogService_DeleteClientUnlinks(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	client, err := f.catalog.CreateClient(f.ctx, System, ClientRequest{Name: ptr("Acme")})
	require.NoError(t, err)
	contact, err := f.catalog.CreateContact(f.ctx, System, ContactRequest{FirstName: ptr("Ada"), ClientID: ptr(client.ID.String())})
	require.NoError(t, err)
	project := f.project("Portal", ProjectRequest{ClientID: ptr(client.ID.String())})
	entry := f.entry(alice, CreateTimeEntryRequest{Hours: "1", ProjectID: ptr(project.ID.String())})
	require.NotNil(t, entry.ClientID, "client is filled from the project")

	require.NoError(t, f.catalog.DeleteClient(f.ctx, System, client.ID.String()))

	p, err := f.catalog.GetProject(f.ctx, project.ID.String())
	require.NoError(t, err)
	assert.Nil(t, p.ClientID)
	c, err := f.catalog.GetContact(f.ctx, contact.ID.String())
	require.NoError(t, err)
	assert.Nil(t, c.ClientID)
	e, err := f.entries.Get(f.ctx, alice, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, e.ClientID)
}

func TestCatalogService_ListFilters(t *testing.T) {
	f := newFixture(t)
	acme, err := f.catalog.CreateClient(f.ctx, System, ClientRequest{Name: ptr("Acme")})
	require.NoError(t, err)
	f.project("One", ProjectRequest{ClientID: ptr(acme.ID.String())})
	f.project("Two", ProjectRequest{})
	f.project("Old", ProjectRequest{ClientID: ptr(acme.ID.String()), Archived: ptr(true)})

	projects, total, err := f.catalog.ListProjects(f.ctx, repository.ListOptions{
		Page:    1,
		Limit:   10,
		Filters: map[string]interface{}{"client_id": acme.ID.String()},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, projects, 1)
	assert.Equal(t, "One", projects[0].Name)

	_, total, err = f.catalog.ListProjects(f.ctx, repository.ListOptions{Page: 1, Limit: 10, IncludeArchived: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	_, _, err = f.catalog.ListProjects(f.ctx, repository.ListOptions{
		Page:    1,
		Limit:   10,
		Filters: map[string]interface{}{"password": "x"},
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestCatalogService_UpdateTaskRepricesEntries(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	task := f.task("Development", "100")
	other := f.task("Support", "50")
	invoice := f.invoice(System, CreateInvoiceRequest{})
	entry := f.entry(alice, CreateTimeEntryRequest{Hours: "2", TaskID: ptr(task.ID.String()), InvoiceID: ptr(invoice.ID)})
	f.entry(alice, CreateTimeEntryRequest{Hours: "1", TaskID: ptr(other.ID.String()), InvoiceID: ptr(invoice.ID)})
	require.Equal(t, "250.00", f.reload(invoice.ID).Amount)

	_, err := f.catalog.UpdateTask(f.ctx, System, task.ID.String(), TaskRequest{BillingRate: ptr("120")})
	require.NoError(t, err)
	assert.Equal(t, "290.00", f.reload(invoice.ID).Amount)

	repriced, err := f.entries.Get(f.ctx, alice, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "240.00", repriced.Amount)

	renamed, err := f.catalog.UpdateTask(f.ctx, System, task.ID.String(), TaskRequest{Name: ptr("Engineering")})
	require.NoError(t, err)
	assert.Equal(t, "Engineering", renamed.Name)
	assert.Equal(t, "290.00", f.reload(invoice.ID).Amount)
}
