package handler

import (
	"context"
	"net/http"

	"portal/internal/middleware"
	"portal/internal/repository"
	"portal/internal/service"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves companies, clients, contacts, projects and tasks.
type CatalogHandler struct {
	catalog service.CatalogService
	auth    *middleware.Auth
}

func NewCatalogHandler(catalog service.CatalogService, auth *middleware.Auth) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, auth: auth}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api", h.auth.Required())
	admin := h.auth.RequireSuperuser()

	companies := api.Group("/companies")
	{
		companies.GET("", h.ListCompanies)
		companies.GET("/:id", h.GetCompany)
		companies.POST("", admin, h.CreateCompany)
		companies.PUT("/:id", admin, h.UpdateCompany)
		companies.DELETE("/:id", admin, h.DeleteCompany)
	}
	clients := api.Group("/clients")
	{
		clients.GET("", h.ListClients)
		clients.GET("/:id", h.GetClient)
		clients.POST("", admin, h.CreateClient)
		clients.PUT("/:id", admin, h.UpdateClient)
		clients.DELETE("/:id", admin, h.DeleteClient)
	}
	contacts := api.Group("/contacts")
	{
		contacts.GET("", h.ListContacts)
		contacts.GET("/:id", h.GetContact)
		contacts.POST("", admin, h.CreateContact)
		contacts.PUT("/:id", admin, h.UpdateContact)
		contacts.DELETE("/:id", admin, h.DeleteContact)
	}
	projects := api.Group("/projects")
	{
		projects.GET("", h.ListProjects)
		projects.GET("/:id", h.GetProject)
		projects.POST("", admin, h.CreateProject)
		projects.PUT("/:id", admin, h.UpdateProject)
		projects.DELETE("/:id", admin, h.DeleteProject)
	}
	tasks := api.Group("/tasks")
	{
		tasks.GET("", h.ListTasks)
		tasks.GET("/:id", h.GetTask)
		tasks.POST("", admin, h.CreateTask)
		tasks.PUT("/:id", admin, h.UpdateTask)
		tasks.DELETE("/:id", admin, h.DeleteTask)
	}
}

// The catalog endpoints share one shape; these helpers hold it.

func create[Req any, Res any](c *gin.Context, fn func(context.Context, service.Principal, Req) (Res, error)) {
	var req Req
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := fn(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

func update[Req any, Res any](c *gin.Context, fn func(context.Context, service.Principal, string, Req) (Res, error)) {
	var req Req
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := fn(c.Request.Context(), principal(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

func get[Res any](c *gin.Context, fn func(context.Context, string) (Res, error)) {
	res, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

func list[T any](c *gin.Context, key string, opts repository.ListOptions, fn func(context.Context, repository.ListOptions) ([]T, int64, error)) {
	items, total, err := fn(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, listResponse(key, items, total, opts)))
}

func remove(c *gin.Context, what string, fn func(context.Context, service.Principal, string) error) {
	if err := fn(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, what+" deleted successfully"))
}

// --- Companies ---

// CreateCompany
// @Summary      Create company
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CompanyRequest  true  "Company"
// @Success      201      {object}  response.Response{data=model.Company}
// @Failure      400      {object}  response.Response
// @Router       /api/companies [post]
func (h *CatalogHandler) CreateCompany(c *gin.Context) { create(c, h.catalog.CreateCompany) }

// UpdateCompany
// @Summary      Update company
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Company ID"
// @Param        payload  body      service.CompanyRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Company}
// @Router       /api/companies/{id} [put]
func (h *CatalogHandler) UpdateCompany(c *gin.Context) { update(c, h.catalog.UpdateCompany) }

// GetCompany
// @Summary      Get company
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Company ID"
// @Success      200  {object}  response.Response{data=model.Company}
// @Router       /api/companies/{id} [get]
func (h *CatalogHandler) GetCompany(c *gin.Context) { get(c, h.catalog.GetCompany) }

// ListCompanies
// @Summary      List companies
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        page      query     int   false  "Page number (default 1)"
// @Param        limit     query     int   false  "Items per page (default 10)"
// @Param        archived  query     bool  false  "Include archived"
// @Success      200       {object}  response.Response{data=object}
// @Router       /api/companies [get]
func (h *CatalogHandler) ListCompanies(c *gin.Context) {
	list(c, "companies", listOptions(c), h.catalog.ListCompanies)
}

// DeleteCompany
// @Summary      Delete company
// @Description  Clients of the company are kept and unlinked
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Company ID"
// @Success      200  {object}  response.Response
// @Router       /api/companies/{id} [delete]
func (h *CatalogHandler) DeleteCompany(c *gin.Context) { remove(c, "Company", h.catalog.DeleteCompany) }

// --- Clients ---

// CreateClient
// @Summary      Create client
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ClientRequest  true  "Client"
// @Success      201      {object}  response.Response{data=model.Client}
// @Router       /api/clients [post]
func (h *CatalogHandler) CreateClient(c *gin.Context) { create(c, h.catalog.CreateClient) }

// UpdateClient
// @Summary      Update client
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Client ID"
// @Param        payload  body      service.ClientRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Client}
// @Router       /api/clients/{id} [put]
func (h *CatalogHandler) UpdateClient(c *gin.Context) { update(c, h.catalog.UpdateClient) }

// GetClient
// @Summary      Get client
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  response.Response{data=model.Client}
// @Router       /api/clients/{id} [get]
func (h *CatalogHandler) GetClient(c *gin.Context) { get(c, h.catalog.GetClient) }

// ListClients
// @Summary      List clients
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        company_id  query     string  false  "Filter by company"
// @Success      200         {object}  response.Response{data=object}
// @Router       /api/clients [get]
func (h *CatalogHandler) ListClients(c *gin.Context) {
	list(c, "clients", withFilters(c, listOptions(c), "company_id"), h.catalog.ListClients)
}

// DeleteClient
// @Summary      Delete client
// @Description  Projects, contacts, invoices and time entries are kept and unlinked
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  response.Response
// @Router       /api/clients/{id} [delete]
func (h *CatalogHandler) DeleteClient(c *gin.Context) { remove(c, "Client", h.catalog.DeleteClient) }

// --- Contacts ---

// CreateContact
// @Summary      Create contact
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ContactRequest  true  "Contact"
// @Success      201      {object}  response.Response{data=model.Contact}
// @Router       /api/contacts [post]
func (h *CatalogHandler) CreateContact(c *gin.Context) { create(c, h.catalog.CreateContact) }

// UpdateContact
// @Summary      Update contact
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Contact ID"
// @Param        payload  body      service.ContactRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Contact}
// @Router       /api/contacts/{id} [put]
func (h *CatalogHandler) UpdateContact(c *gin.Context) { update(c, h.catalog.UpdateContact) }

// GetContact
// @Summary      Get contact
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Contact ID"
// @Success      200  {object}  response.Response{data=model.Contact}
// @Router       /api/contacts/{id} [get]
func (h *CatalogHandler) GetContact(c *gin.Context) { get(c, h.catalog.GetContact) }

// ListContacts
// @Summary      List contacts
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        client_id  query     string  false  "Filter by client"
// @Success      200        {object}  response.Response{data=object}
// @Router       /api/contacts [get]
func (h *CatalogHandler) ListContacts(c *gin.Context) {
	list(c, "contacts", withFilters(c, listOptions(c), "client_id"), h.catalog.ListContacts)
}

// DeleteContact
// @Summary      Delete contact
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Contact ID"
// @Success      200  {object}  response.Response
// @Router       /api/contacts/{id} [delete]
func (h *CatalogHandler) DeleteContact(c *gin.Context) { remove(c, "Contact", h.catalog.DeleteContact) }

// --- Projects ---

// CreateProject
// @Summary      Create project
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ProjectRequest  true  "Project"
// @Success      201      {object}  response.Response{data=model.Project}
// @Router       /api/projects [post]
func (h *CatalogHandler) CreateProject(c *gin.Context) { create(c, h.catalog.CreateProject) }

// UpdateProject
// @Summary      Update project
// @Description  team_ids replaces the whole team when present
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Project ID"
// @Param        payload  body      service.ProjectRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Project}
// @Router       /api/projects/{id} [put]
func (h *CatalogHandler) UpdateProject(c *gin.Context) { update(c, h.catalog.UpdateProject) }

// GetProject
// @Summary      Get project
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response{data=model.Project}
// @Router       /api/projects/{id} [get]
func (h *CatalogHandler) GetProject(c *gin.Context) { get(c, h.catalog.GetProject) }

// ListProjects
// @Summary      List projects
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        client_id  query     string  false  "Filter by client"
// @Success      200        {object}  response.Response{data=object}
// @Router       /api/projects [get]
func (h *CatalogHandler) ListProjects(c *gin.Context) {
	list(c, "projects", withFilters(c, listOptions(c), "client_id"), h.catalog.ListProjects)
}

// DeleteProject
// @Summary      Delete project
// @Description  Invoices and time entries are kept and unlinked
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response
// @Router       /api/projects/{id} [delete]
func (h *CatalogHandler) DeleteProject(c *gin.Context) { remove(c, "Project", h.catalog.DeleteProject) }

// --- Tasks ---

// CreateTask
// @Summary      Create task
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.TaskRequest  true  "Task"
// @Success      201      {object}  response.Response{data=model.Task}
// @Router       /api/tasks [post]
func (h *CatalogHandler) CreateTask(c *gin.Context) { create(c, h.catalog.CreateTask) }

// UpdateTask
// @Summary      Update task
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Task ID"
// @Param        payload  body      service.TaskRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Task}
// @Router       /api/tasks/{id} [put]
func (h *CatalogHandler) UpdateTask(c *gin.Context) { update(c, h.catalog.UpdateTask) }

// GetTask
// @Summary      Get task
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  response.Response{data=model.Task}
// @Router       /api/tasks/{id} [get]
func (h *CatalogHandler) GetTask(c *gin.Context) { get(c, h.catalog.GetTask) }

// ListTasks
// @Summary      List tasks
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/tasks [get]
func (h *CatalogHandler) ListTasks(c *gin.Context) {
	list(c, "tasks", listOptions(c), h.catalog.ListTasks)
}

// DeleteTask
// @Summary      Delete task
// @Description  Entries on the task fall back to a default task and are repriced. The default task cannot be deleted.
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/tasks/{id} [delete]
func (h *CatalogHandler) DeleteTask(c *gin.Context) { remove(c, "Task", h.catalog.DeleteTask) }
